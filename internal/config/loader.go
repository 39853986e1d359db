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
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with optional fields so that an overlay file only
// overrides what it mentions. Durations are given as Go duration strings
// ("500ms", "10s").
type fileConfig struct {
	Decoder struct {
		Beam          *float64 `yaml:"beam"`
		MaxActive     *int     `yaml:"max_active"`
		MinActive     *int     `yaml:"min_active"`
		LatticeBeam   *float64 `yaml:"lattice_beam"`
		PruneInterval *int     `yaml:"prune_interval"`
		BeamDelta     *float64 `yaml:"beam_delta"`
		HashRatio     *float64 `yaml:"hash_ratio"`
		PruneScale    *float64 `yaml:"prune_scale"`
		AcousticScale *float64 `yaml:"acoustic_scale"`
		LMWeight      *float64 `yaml:"lm_weight"`
		Determinize   *bool    `yaml:"determinize"`
		NBest         *int     `yaml:"nbest"`
	} `yaml:"decoder"`
	Endpoint struct {
		SilenceClasses     *string `yaml:"silence_classes"`
		FrameShift         *string `yaml:"frame_shift"`
		MinTrailingSilence *string `yaml:"min_trailing_silence"`
	} `yaml:"endpoint"`
	Stream struct {
		ChunkFrames  *int    `yaml:"chunk_frames"`
		Timeout      *string `yaml:"timeout"`
		PollInterval *string `yaml:"poll_interval"`
	} `yaml:"stream"`
	Engine struct {
		Name             *string `yaml:"name"`
		NumClasses       *int    `yaml:"num_classes"`
		TransitionModel  *string `yaml:"transition_model"`
		Graph            *string `yaml:"graph"`
		WordBoundaryFile *string `yaml:"word_boundary_file"`
	} `yaml:"engine"`
	Logging struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
	} `yaml:"logging"`
	NATS struct {
		URL           *string `yaml:"url"`
		SubjectPrefix *string `yaml:"subject_prefix"`
		MaxReconnect  *int    `yaml:"max_reconnect"`
		ReconnectWait *string `yaml:"reconnect_wait"`
	} `yaml:"nats"`
	Storage struct {
		Path *string `yaml:"path"`
	} `yaml:"storage"`
}

// applyFile overlays a YAML configuration file onto cfg
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}

	overrideFloat(file.Decoder.Beam, &cfg.Decoder.Beam)
	overrideInt(file.Decoder.MaxActive, &cfg.Decoder.MaxActive)
	overrideInt(file.Decoder.MinActive, &cfg.Decoder.MinActive)
	overrideFloat(file.Decoder.LatticeBeam, &cfg.Decoder.LatticeBeam)
	overrideInt(file.Decoder.PruneInterval, &cfg.Decoder.PruneInterval)
	overrideFloat(file.Decoder.BeamDelta, &cfg.Decoder.BeamDelta)
	overrideFloat(file.Decoder.HashRatio, &cfg.Decoder.HashRatio)
	overrideFloat(file.Decoder.PruneScale, &cfg.Decoder.PruneScale)
	overrideFloat(file.Decoder.AcousticScale, &cfg.Decoder.AcousticScale)
	overrideFloat(file.Decoder.LMWeight, &cfg.Decoder.LMWeight)
	overrideBool(file.Decoder.Determinize, &cfg.Decoder.Determinize)
	overrideInt(file.Decoder.NBest, &cfg.Decoder.NBest)

	overrideString(file.Endpoint.SilenceClasses, &cfg.Endpoint.SilenceClasses)
	if err := overrideDuration(file.Endpoint.FrameShift, &cfg.Endpoint.FrameShift); err != nil {
		return fmt.Errorf("config: endpoint.frame_shift: %w", err)
	}
	if err := overrideDuration(file.Endpoint.MinTrailingSilence, &cfg.Endpoint.MinTrailingSilence); err != nil {
		return fmt.Errorf("config: endpoint.min_trailing_silence: %w", err)
	}

	overrideInt(file.Stream.ChunkFrames, &cfg.Stream.ChunkFrames)
	if err := overrideDuration(file.Stream.Timeout, &cfg.Stream.Timeout); err != nil {
		return fmt.Errorf("config: stream.timeout: %w", err)
	}
	if err := overrideDuration(file.Stream.PollInterval, &cfg.Stream.PollInterval); err != nil {
		return fmt.Errorf("config: stream.poll_interval: %w", err)
	}

	overrideString(file.Engine.Name, &cfg.Engine.Name)
	overrideInt(file.Engine.NumClasses, &cfg.Engine.NumClasses)
	overrideString(file.Engine.TransitionModel, &cfg.Engine.TransitionModel)
	overrideString(file.Engine.Graph, &cfg.Engine.Graph)
	overrideString(file.Engine.WordBoundaryFile, &cfg.Engine.WordBoundaryFile)

	overrideString(file.Logging.Level, &cfg.Logging.Level)
	overrideString(file.Logging.Format, &cfg.Logging.Format)

	overrideString(file.NATS.URL, &cfg.NATS.URL)
	overrideString(file.NATS.SubjectPrefix, &cfg.NATS.SubjectPrefix)
	overrideInt(file.NATS.MaxReconnect, &cfg.NATS.MaxReconnect)
	if err := overrideDuration(file.NATS.ReconnectWait, &cfg.NATS.ReconnectWait); err != nil {
		return fmt.Errorf("config: nats.reconnect_wait: %w", err)
	}

	overrideString(file.Storage.Path, &cfg.Storage.Path)

	return nil
}

func overrideString(value *string, target *string) {
	if value != nil {
		*target = *value
	}
}

func overrideInt(value *int, target *int) {
	if value != nil {
		*target = *value
	}
}

func overrideFloat(value *float64, target *float64) {
	if value != nil {
		*target = *value
	}
}

func overrideBool(value *bool, target *bool) {
	if value != nil {
		*target = *value
	}
}

func overrideDuration(value *string, target *time.Duration) error {
	if value == nil {
		return nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return err
	}
	*target = d
	return nil
}
