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

package decoder

import (
	"fmt"
	"strings"
)

// Factory produces a fresh engine for each utterance.
type Factory func() Engine

// EngineOptions carry the knobs shared by engine implementations.
type EngineOptions struct {
	AcousticScale  float64
	SilenceClasses map[int]bool
}

// NewFactory resolves an engine by name. The empty name selects the built-in
// greedy engine.
func NewFactory(name string, tm TransitionModel, opts EngineOptions) (Factory, error) {
	if tm == nil {
		return nil, fmt.Errorf("engine factory: transition model is required")
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "greedy":
		return func() Engine {
			return NewGreedyEngine(tm, opts.SilenceClasses, opts.AcousticScale)
		}, nil
	default:
		return nil, fmt.Errorf("engine factory: unknown engine %q", name)
	}
}
