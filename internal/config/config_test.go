/*
 * This file is part of VoxStream (https://github.com/voxstream/voxstream).
 * Copyright (C) 2025 VoxStream Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var configEnvVars = []string{
	"DECODE_CONFIG_FILE",
	"DECODE_BEAM", "DECODE_MAX_ACTIVE", "DECODE_MIN_ACTIVE",
	"DECODE_LATTICE_BEAM", "DECODE_PRUNE_INTERVAL", "DECODE_BEAM_DELTA",
	"DECODE_HASH_RATIO", "DECODE_PRUNE_SCALE", "DECODE_ACOUSTIC_SCALE",
	"DECODE_LM_WEIGHT", "DECODE_DETERMINIZE", "DECODE_NBEST",
	"DECODE_SILENCE_CLASSES", "DECODE_FRAME_SHIFT", "DECODE_MIN_TRAILING_SILENCE",
	"DECODE_CHUNK_FRAMES", "DECODE_STREAM_TIMEOUT", "DECODE_POLL_INTERVAL",
	"DECODE_ENGINE", "DECODE_NUM_CLASSES", "DECODE_TMODEL_PATH",
	"DECODE_GRAPH_PATH", "DECODE_WORD_BOUNDARY_PATH",
	"LOG_LEVEL", "LOG_FORMAT",
	"NATS_URL", "NATS_SUBJECT_PREFIX", "NATS_MAX_RECONNECT", "NATS_RECONNECT_WAIT",
	"DB_PATH",
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		if val, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { _ = os.Setenv(key, val) })
			_ = os.Unsetenv(key)
		}
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("DECODE_NUM_CLASSES", "4") // minimum viable engine setup

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Decoder.Beam != 16.0 {
		t.Errorf("Decoder.Beam = %f, want %f", cfg.Decoder.Beam, 16.0)
	}
	if cfg.Decoder.MaxActive != 7000 {
		t.Errorf("Decoder.MaxActive = %d, want %d", cfg.Decoder.MaxActive, 7000)
	}
	if cfg.Decoder.MinActive != 200 {
		t.Errorf("Decoder.MinActive = %d, want %d", cfg.Decoder.MinActive, 200)
	}
	if cfg.Decoder.LatticeBeam != 10.0 {
		t.Errorf("Decoder.LatticeBeam = %f, want %f", cfg.Decoder.LatticeBeam, 10.0)
	}
	if !cfg.Decoder.Determinize {
		t.Error("Decoder.Determinize should default to true")
	}
	if cfg.Decoder.NBest != 10 {
		t.Errorf("Decoder.NBest = %d, want %d", cfg.Decoder.NBest, 10)
	}

	if cfg.Endpoint.SilenceClasses != "1" {
		t.Errorf("Endpoint.SilenceClasses = %q, want %q", cfg.Endpoint.SilenceClasses, "1")
	}
	if cfg.Endpoint.FrameShift != 10*time.Millisecond {
		t.Errorf("Endpoint.FrameShift = %v, want %v", cfg.Endpoint.FrameShift, 10*time.Millisecond)
	}

	if cfg.Stream.ChunkFrames != 64 {
		t.Errorf("Stream.ChunkFrames = %d, want %d", cfg.Stream.ChunkFrames, 64)
	}
	if cfg.Stream.Timeout != 10*time.Second {
		t.Errorf("Stream.Timeout = %v, want %v", cfg.Stream.Timeout, 10*time.Second)
	}

	if cfg.Engine.Name != "greedy" {
		t.Errorf("Engine.Name = %q, want %q", cfg.Engine.Name, "greedy")
	}

	if cfg.NATS.URL != "" {
		t.Errorf("NATS.URL = %q, want empty (disabled)", cfg.NATS.URL)
	}
	if cfg.NATS.SubjectPrefix != "decode.transcripts" {
		t.Errorf("NATS.SubjectPrefix = %q, want %q", cfg.NATS.SubjectPrefix, "decode.transcripts")
	}

	if cfg.Storage.Path != "" {
		t.Errorf("Storage.Path = %q, want empty (disabled)", cfg.Storage.Path)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name: "Decoder configuration",
			envVars: map[string]string{
				"DECODE_BEAM":      "12.5",
				"DECODE_NBEST":     "5",
				"DECODE_LM_WEIGHT": "0.8",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Decoder.Beam != 12.5 {
					t.Errorf("Decoder.Beam = %f, want %f", cfg.Decoder.Beam, 12.5)
				}
				if cfg.Decoder.NBest != 5 {
					t.Errorf("Decoder.NBest = %d, want %d", cfg.Decoder.NBest, 5)
				}
				if cfg.Decoder.LMWeight != 0.8 {
					t.Errorf("Decoder.LMWeight = %f, want %f", cfg.Decoder.LMWeight, 0.8)
				}
			},
		},
		{
			name: "Stream configuration",
			envVars: map[string]string{
				"DECODE_CHUNK_FRAMES":   "32",
				"DECODE_STREAM_TIMEOUT": "3s",
				"DECODE_POLL_INTERVAL":  "1ms",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Stream.ChunkFrames != 32 {
					t.Errorf("Stream.ChunkFrames = %d, want %d", cfg.Stream.ChunkFrames, 32)
				}
				if cfg.Stream.Timeout != 3*time.Second {
					t.Errorf("Stream.Timeout = %v, want %v", cfg.Stream.Timeout, 3*time.Second)
				}
				if cfg.Stream.PollInterval != time.Millisecond {
					t.Errorf("Stream.PollInterval = %v, want %v", cfg.Stream.PollInterval, time.Millisecond)
				}
			},
		},
		{
			name: "Endpoint configuration",
			envVars: map[string]string{
				"DECODE_SILENCE_CLASSES": "1:2:3",
				"DECODE_FRAME_SHIFT":     "25ms",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Endpoint.SilenceClasses != "1:2:3" {
					t.Errorf("Endpoint.SilenceClasses = %q, want %q", cfg.Endpoint.SilenceClasses, "1:2:3")
				}
				if cfg.Endpoint.FrameShift != 25*time.Millisecond {
					t.Errorf("Endpoint.FrameShift = %v, want %v", cfg.Endpoint.FrameShift, 25*time.Millisecond)
				}
			},
		},
		{
			name: "Integration configuration",
			envVars: map[string]string{
				"NATS_URL": "nats://localhost:4222",
				"DB_PATH":  "/tmp/decode-hub.db",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.NATS.URL != "nats://localhost:4222" {
					t.Errorf("NATS.URL = %q, want %q", cfg.NATS.URL, "nats://localhost:4222")
				}
				if cfg.Storage.Path != "/tmp/decode-hub.db" {
					t.Errorf("Storage.Path = %q, want %q", cfg.Storage.Path, "/tmp/decode-hub.db")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)
			t.Setenv("DECODE_NUM_CLASSES", "4")
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			tt.validate(t, cfg)
		})
	}
}

func TestLoad_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr string
	}{
		{
			name:    "determinization cannot be disabled",
			envVars: map[string]string{"DECODE_DETERMINIZE": "false"},
			wantErr: "determinization",
		},
		{
			name:    "negative beam",
			envVars: map[string]string{"DECODE_BEAM": "-1"},
			wantErr: "beam must be positive",
		},
		{
			name:    "zero chunk frames",
			envVars: map[string]string{"DECODE_CHUNK_FRAMES": "0"},
			wantErr: "chunk frames",
		},
		{
			name:    "min active above max active",
			envVars: map[string]string{"DECODE_MIN_ACTIVE": "9000"},
			wantErr: "min-active",
		},
		{
			name:    "poll interval above timeout",
			envVars: map[string]string{"DECODE_POLL_INTERVAL": "20s"},
			wantErr: "poll interval",
		},
		{
			name:    "missing model and class count",
			envVars: map[string]string{"DECODE_NUM_CLASSES": "0"},
			wantErr: "transition model",
		},
		{
			name:    "hash ratio below one",
			envVars: map[string]string{"DECODE_HASH_RATIO": "0.5"},
			wantErr: "hash-ratio",
		},
		{
			name:    "engine name with path traversal",
			envVars: map[string]string{"DECODE_ENGINE": "../greedy"},
			wantErr: "engine name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)
			if _, ok := tt.envVars["DECODE_NUM_CLASSES"]; !ok {
				t.Setenv("DECODE_NUM_CLASSES", "4")
			}
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load() expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ConfigFileOverlay(t *testing.T) {
	clearEnvVars(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "decode-hub.yaml")
	content := `
decoder:
  beam: 14.0
  nbest: 3
stream:
  chunk_frames: 16
  timeout: 2s
engine:
  num_classes: 8
nats:
  url: nats://hub:4222
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("DECODE_CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Decoder.Beam != 14.0 {
		t.Errorf("Decoder.Beam = %f, want %f", cfg.Decoder.Beam, 14.0)
	}
	if cfg.Decoder.NBest != 3 {
		t.Errorf("Decoder.NBest = %d, want %d", cfg.Decoder.NBest, 3)
	}
	if cfg.Stream.ChunkFrames != 16 {
		t.Errorf("Stream.ChunkFrames = %d, want %d", cfg.Stream.ChunkFrames, 16)
	}
	if cfg.Stream.Timeout != 2*time.Second {
		t.Errorf("Stream.Timeout = %v, want %v", cfg.Stream.Timeout, 2*time.Second)
	}
	if cfg.Engine.NumClasses != 8 {
		t.Errorf("Engine.NumClasses = %d, want %d", cfg.Engine.NumClasses, 8)
	}
	if cfg.NATS.URL != "nats://hub:4222" {
		t.Errorf("NATS.URL = %q, want %q", cfg.NATS.URL, "nats://hub:4222")
	}

	// Defaults not mentioned in the file survive the overlay.
	if cfg.Decoder.MaxActive != 7000 {
		t.Errorf("Decoder.MaxActive = %d, want %d", cfg.Decoder.MaxActive, 7000)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnvVars(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "decode-hub.yaml")
	if err := os.WriteFile(path, []byte("decoder:\n  nbest: 3\nengine:\n  num_classes: 8\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("DECODE_CONFIG_FILE", path)
	t.Setenv("DECODE_NBEST", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Decoder.NBest != 7 {
		t.Errorf("Decoder.NBest = %d, want %d (env should win over file)", cfg.Decoder.NBest, 7)
	}
}

func TestLoad_BadConfigFile(t *testing.T) {
	clearEnvVars(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("stream:\n  timeout: not-a-duration\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("DECODE_CONFIG_FILE", path)
	t.Setenv("DECODE_NUM_CLASSES", "4")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for unparseable duration")
	}

	t.Setenv("DECODE_CONFIG_FILE", filepath.Join(dir, "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("Load() expected error for missing file")
	}
}
