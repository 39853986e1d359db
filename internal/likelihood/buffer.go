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

// Package likelihood buffers one chunk of per-frame acoustic scores at a
// time. The buffer is a fixed-capacity table that is overwritten on every
// chunk: the search engine must consume a chunk's frames before the next one
// arrives (single-chunk lookahead, not a replay history).
package likelihood

import "fmt"

const noLastFrame = -1

// Buffer holds the scores for the current chunk. Frames are addressed by a
// global, monotonically increasing frame id; only ids inside the window
// [BeginFrame, BeginFrame+AvailableFrames) are resident.
type Buffer struct {
	classes   int
	capacity  int
	begin     int
	available int
	ready     int
	lastFrame int
	scores    []float32 // capacity x classes, row-major
}

// NewBuffer creates a buffer for chunks of at most capacity frames over the
// given number of output classes.
func NewBuffer(capacity, classes int) *Buffer {
	if capacity <= 0 || classes <= 0 {
		panic(fmt.Sprintf("likelihood: invalid buffer shape %dx%d", capacity, classes))
	}
	return &Buffer{
		classes:   classes,
		capacity:  capacity,
		lastFrame: noLastFrame,
		scores:    make([]float32, capacity*classes),
	}
}

// BeginChunk shifts the window start past the previous chunk and reserves
// rows for the new one. The caller fills the rows with SetScore.
func (b *Buffer) BeginChunk(frames int) {
	if frames <= 0 || frames > b.capacity {
		panic(fmt.Sprintf("likelihood: chunk of %d frames exceeds capacity %d", frames, b.capacity))
	}
	b.begin += b.available
	b.available = frames
	b.ready += frames
}

// SetScore stores the score for a row within the current chunk.
func (b *Buffer) SetScore(row, class int, score float32) {
	b.scores[row*b.classes+class] = score
}

// MarkLastChunk records that no more frames will arrive for this utterance.
func (b *Buffer) MarkLastChunk() {
	b.lastFrame = b.ready
}

// Likelihood returns the stored score for a global frame id and output
// class. Scores are returned unscaled; acoustic-scale weighting is the
// consumer's concern. Querying a frame outside the resident window is a
// contract violation by the search engine and panics.
func (b *Buffer) Likelihood(frame, class int) float32 {
	if frame < b.begin || frame >= b.begin+b.available {
		panic(fmt.Sprintf("likelihood: frame %d outside window [%d, %d): single-chunk lookahead violated",
			frame, b.begin, b.begin+b.available))
	}
	return b.scores[(frame-b.begin)*b.classes+class]
}

// IsLastFrame reports whether frame is the recorded terminal frame id. It is
// only meaningful once the terminal chunk has been seen.
func (b *Buffer) IsLastFrame(frame int) bool {
	return frame == b.lastFrame
}

// ArrivedLastChunk reports whether the terminal chunk has been seen.
func (b *Buffer) ArrivedLastChunk() bool {
	return b.lastFrame != noLastFrame
}

// FramesReady returns the cumulative number of frames received across all
// chunks of this utterance.
func (b *Buffer) FramesReady() int {
	return b.ready
}

// BeginFrame returns the global id of the first resident frame.
func (b *Buffer) BeginFrame() int {
	return b.begin
}

// AvailableFrames returns the number of resident frames.
func (b *Buffer) AvailableFrames() int {
	return b.available
}

// NumClasses returns the per-frame score vector width.
func (b *Buffer) NumClasses() int {
	return b.classes
}

// Capacity returns the maximum chunk length in frames.
func (b *Buffer) Capacity() int {
	return b.capacity
}
