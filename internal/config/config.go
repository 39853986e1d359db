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
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/voxstream/decode-hub/internal/security"
)

// Config holds all configuration for the decode hub
type Config struct {
	Decoder  DecoderConfig
	Endpoint EndpointConfig
	Stream   StreamConfig
	Engine   EngineConfig
	Logging  LoggingConfig
	NATS     NATSConfig
	Storage  StorageConfig
}

// DecoderConfig holds search and result-graph parameters
type DecoderConfig struct {
	Beam          float64
	MaxActive     int
	MinActive     int
	LatticeBeam   float64
	PruneInterval int
	BeamDelta     float64
	HashRatio     float64
	PruneScale    float64
	AcousticScale float64 // folded into scores upstream; kept for the engine
	LMWeight      float64 // final-result graph rescale factor
	Determinize   bool    // disabling is rejected at startup
	NBest         int
}

// EndpointConfig holds utterance endpoint detection parameters
type EndpointConfig struct {
	SilenceClasses     string        // colon-separated, e.g. "1:2:3"
	FrameShift         time.Duration // duration of one frame
	MinTrailingSilence time.Duration
}

// StreamConfig holds frame-stream protocol parameters
type StreamConfig struct {
	ChunkFrames  int           // max frames per chunk
	Timeout      time.Duration // hard deadline per read attempt
	PollInterval time.Duration
}

// EngineConfig selects and parameterizes the search engine
type EngineConfig struct {
	Name             string
	NumClasses       int // used when no transition model file is given
	TransitionModel  string
	Graph            string
	WordBoundaryFile string // empty disables alignment
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// NATSConfig holds NATS messaging configuration. An empty URL disables
// transcript publishing.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// StorageConfig holds the transcript store configuration. An empty path
// disables persistence.
type StorageConfig struct {
	Path string
}

// Load loads configuration from environment variables with defaults. When
// DECODE_CONFIG_FILE is set, the YAML file is applied on top of the defaults
// before the environment overrides.
func Load() (*Config, error) {
	config := &Config{
		Decoder: DecoderConfig{
			Beam:          16.0,
			MaxActive:     7000,
			MinActive:     200,
			LatticeBeam:   10.0,
			PruneInterval: 25,
			BeamDelta:     0.5,
			HashRatio:     2.0,
			PruneScale:    0.1,
			AcousticScale: 0.1,
			LMWeight:      1.0,
			Determinize:   true,
			NBest:         10,
		},
		Endpoint: EndpointConfig{
			SilenceClasses:     "1",
			FrameShift:         10 * time.Millisecond,
			MinTrailingSilence: 500 * time.Millisecond,
		},
		Stream: StreamConfig{
			ChunkFrames:  64,
			Timeout:      10 * time.Second,
			PollInterval: 5 * time.Millisecond,
		},
		Engine: EngineConfig{
			Name: "greedy",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		NATS: NATSConfig{
			SubjectPrefix: "decode.transcripts",
			MaxReconnect:  10,
			ReconnectWait: 2 * time.Second,
		},
	}

	if file := os.Getenv("DECODE_CONFIG_FILE"); file != "" {
		if err := applyFile(config, file); err != nil {
			return nil, err
		}
	}

	config.Decoder.Beam = getEnvFloat("DECODE_BEAM", config.Decoder.Beam)
	config.Decoder.MaxActive = getEnvInt("DECODE_MAX_ACTIVE", config.Decoder.MaxActive)
	config.Decoder.MinActive = getEnvInt("DECODE_MIN_ACTIVE", config.Decoder.MinActive)
	config.Decoder.LatticeBeam = getEnvFloat("DECODE_LATTICE_BEAM", config.Decoder.LatticeBeam)
	config.Decoder.PruneInterval = getEnvInt("DECODE_PRUNE_INTERVAL", config.Decoder.PruneInterval)
	config.Decoder.BeamDelta = getEnvFloat("DECODE_BEAM_DELTA", config.Decoder.BeamDelta)
	config.Decoder.HashRatio = getEnvFloat("DECODE_HASH_RATIO", config.Decoder.HashRatio)
	config.Decoder.PruneScale = getEnvFloat("DECODE_PRUNE_SCALE", config.Decoder.PruneScale)
	config.Decoder.AcousticScale = getEnvFloat("DECODE_ACOUSTIC_SCALE", config.Decoder.AcousticScale)
	config.Decoder.LMWeight = getEnvFloat("DECODE_LM_WEIGHT", config.Decoder.LMWeight)
	config.Decoder.Determinize = getEnvBool("DECODE_DETERMINIZE", config.Decoder.Determinize)
	config.Decoder.NBest = getEnvInt("DECODE_NBEST", config.Decoder.NBest)

	config.Endpoint.SilenceClasses = getEnvString("DECODE_SILENCE_CLASSES", config.Endpoint.SilenceClasses)
	config.Endpoint.FrameShift = getEnvDuration("DECODE_FRAME_SHIFT", config.Endpoint.FrameShift)
	config.Endpoint.MinTrailingSilence = getEnvDuration("DECODE_MIN_TRAILING_SILENCE", config.Endpoint.MinTrailingSilence)

	config.Stream.ChunkFrames = getEnvInt("DECODE_CHUNK_FRAMES", config.Stream.ChunkFrames)
	config.Stream.Timeout = getEnvDuration("DECODE_STREAM_TIMEOUT", config.Stream.Timeout)
	config.Stream.PollInterval = getEnvDuration("DECODE_POLL_INTERVAL", config.Stream.PollInterval)

	config.Engine.Name = getEnvString("DECODE_ENGINE", config.Engine.Name)
	config.Engine.NumClasses = getEnvInt("DECODE_NUM_CLASSES", config.Engine.NumClasses)
	config.Engine.TransitionModel = getEnvString("DECODE_TMODEL_PATH", config.Engine.TransitionModel)
	config.Engine.Graph = getEnvString("DECODE_GRAPH_PATH", config.Engine.Graph)
	config.Engine.WordBoundaryFile = getEnvString("DECODE_WORD_BOUNDARY_PATH", config.Engine.WordBoundaryFile)

	config.Logging.Level = getEnvString("LOG_LEVEL", config.Logging.Level)
	config.Logging.Format = getEnvString("LOG_FORMAT", config.Logging.Format)

	config.NATS.URL = getEnvString("NATS_URL", config.NATS.URL)
	config.NATS.SubjectPrefix = getEnvString("NATS_SUBJECT_PREFIX", config.NATS.SubjectPrefix)
	config.NATS.MaxReconnect = getEnvInt("NATS_MAX_RECONNECT", config.NATS.MaxReconnect)
	config.NATS.ReconnectWait = getEnvDuration("NATS_RECONNECT_WAIT", config.NATS.ReconnectWait)

	config.Storage.Path = getEnvString("DB_PATH", config.Storage.Path)

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Decoder.Beam <= 0 {
		return fmt.Errorf("beam must be positive: %f", c.Decoder.Beam)
	}

	if c.Decoder.MaxActive <= 1 {
		return fmt.Errorf("max-active must be greater than 1: %d", c.Decoder.MaxActive)
	}

	if c.Decoder.MinActive <= 0 || c.Decoder.MinActive >= c.Decoder.MaxActive {
		return fmt.Errorf("min-active must be in (0, max-active): %d", c.Decoder.MinActive)
	}

	if c.Decoder.LatticeBeam <= 0 {
		return fmt.Errorf("lattice-beam must be positive: %f", c.Decoder.LatticeBeam)
	}

	if c.Decoder.PruneInterval <= 0 {
		return fmt.Errorf("prune-interval must be positive: %d", c.Decoder.PruneInterval)
	}

	if c.Decoder.BeamDelta <= 0 {
		return fmt.Errorf("beam-delta must be positive: %f", c.Decoder.BeamDelta)
	}

	if c.Decoder.HashRatio < 1.0 {
		return fmt.Errorf("hash-ratio must be at least 1.0: %f", c.Decoder.HashRatio)
	}

	if c.Decoder.PruneScale <= 0 || c.Decoder.PruneScale >= 1 {
		return fmt.Errorf("prune-scale must be in (0, 1): %f", c.Decoder.PruneScale)
	}

	if !c.Decoder.Determinize {
		return fmt.Errorf("disabling result-graph determinization is not supported")
	}

	if c.Decoder.NBest <= 0 {
		return fmt.Errorf("nbest must be positive: %d", c.Decoder.NBest)
	}

	if c.Endpoint.FrameShift <= 0 {
		return fmt.Errorf("frame shift must be positive: %v", c.Endpoint.FrameShift)
	}

	if c.Stream.ChunkFrames <= 0 {
		return fmt.Errorf("chunk frames must be positive: %d", c.Stream.ChunkFrames)
	}

	if c.Stream.Timeout <= 0 {
		return fmt.Errorf("stream timeout must be positive: %v", c.Stream.Timeout)
	}

	if c.Stream.PollInterval <= 0 || c.Stream.PollInterval > c.Stream.Timeout {
		return fmt.Errorf("poll interval must be in (0, timeout]: %v", c.Stream.PollInterval)
	}

	if err := security.ValidateEngineName(c.Engine.Name); err != nil {
		return fmt.Errorf("engine name %q: %w", c.Engine.Name, err)
	}

	if c.Engine.TransitionModel == "" && c.Engine.NumClasses <= 0 {
		return fmt.Errorf("either a transition model path or a positive class count is required")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
