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

// Package decoder defines the search engine contract driven by the utterance
// session, a built-in greedy reference engine, and the pure result-graph
// operations applied between finalization and emission.
package decoder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Scorer is the engine's read-only view of the likelihood buffer. Frames
// outside the buffer's current window must not be queried.
type Scorer interface {
	Likelihood(frame, class int) float32
	IsLastFrame(frame int) bool
	FramesReady() int
	NumClasses() int
}

// TransitionModel maps engine-internal transition identifiers to output
// classes.
type TransitionModel interface {
	ClassFor(transitionID int) (int, bool)
	NumClasses() int
}

// EndpointPolicy decides when an utterance has gone silent long enough to be
// cut. SilenceClasses holds the output classes treated as silence.
type EndpointPolicy struct {
	SilenceClasses     map[int]bool
	FrameShift         time.Duration
	MinTrailingSilence time.Duration
}

// Engine is a swappable search engine. The session creates a fresh engine per
// utterance and drives it chunk by chunk through a Scorer.
type Engine interface {
	// Advance consumes every frame the scorer has ready beyond the frames
	// already decoded.
	Advance(s Scorer) error
	// FramesDecoded returns the number of frames consumed so far.
	FramesDecoded() int
	// BestPath returns the current best symbol sequence.
	BestPath() []int
	// EndpointDetected reports whether the decoded tail satisfies the
	// endpoint policy.
	EndpointDetected(policy EndpointPolicy) bool
	// Finalize commits the utterance; no further Advance calls may follow.
	Finalize()
	// ResultGraph extracts the raw result graph. With final set the graph
	// reflects finalized scores. It fails when no frames were decoded.
	ResultGraph(final bool) (*Lattice, error)
}

// ParseClassSet parses a colon-separated class list such as "1:2:15" into a
// set. An empty string yields an empty set.
func ParseClassSet(spec string) (map[int]bool, error) {
	set := make(map[int]bool)
	if strings.TrimSpace(spec) == "" {
		return set, nil
	}
	for _, part := range strings.Split(spec, ":") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		class, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("class set %q: bad entry %q: %w", spec, part, err)
		}
		if class < 0 {
			return nil, fmt.Errorf("class set %q: negative class %d", spec, class)
		}
		set[class] = true
	}
	return set, nil
}
