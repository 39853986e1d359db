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

package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/voxstream/decode-hub/internal/decoder"
	"github.com/voxstream/decode-hub/internal/logging"
	"github.com/voxstream/decode-hub/internal/transport"
)

// ResultEmitter turns engine output into protocol messages. The final
// pipeline is scale, determinize, align, rank.
type ResultEmitter struct {
	writer   *transport.ResultWriter
	aligner  decoder.Aligner
	detOpts  decoder.DeterminizeOptions
	lmWeight float64
	nBest    int
}

// NewResultEmitter builds an emitter. aligner may be nil to skip word
// boundary alignment.
func NewResultEmitter(writer *transport.ResultWriter, aligner decoder.Aligner, detOpts decoder.DeterminizeOptions, lmWeight float64, nBest int) *ResultEmitter {
	return &ResultEmitter{
		writer:   writer,
		aligner:  aligner,
		detOpts:  detOpts,
		lmWeight: lmWeight,
		nBest:    nBest,
	}
}

// EmitPartial writes the current best hypothesis.
func (e *ResultEmitter) EmitPartial(symbols []int) error {
	return e.writer.WritePartial(symbols)
}

// EmitEmptyFinal writes a final result with no candidates.
func (e *ResultEmitter) EmitEmptyFinal() error {
	return e.writer.WriteFinal(nil)
}

// EmitFinal runs the raw result graph through the final pipeline and writes
// the ranked candidates. Graph weights are scaled by the language model
// weight only; the acoustic component was already scaled during decoding.
// Alignment failure is recoverable: the unaligned candidates are emitted and
// the degrade is logged. Returns the emitted candidates and whether they were
// aligned.
func (e *ResultEmitter) EmitFinal(sessionID string, graph *decoder.Lattice) ([][]int, bool, error) {
	graph.Scale(e.lmWeight, 1.0)

	det, err := decoder.Determinize(graph, e.detOpts)
	if err != nil {
		return nil, false, fmt.Errorf("determinizing result graph: %w", err)
	}
	paths, err := det.ShortestPaths(e.nBest)
	if err != nil {
		return nil, false, fmt.Errorf("extracting n-best: %w", err)
	}

	candidates := make([][]int, len(paths))
	for i, p := range paths {
		candidates[i] = p.Symbols
	}

	aligned := false
	if e.aligner != nil {
		alignedCandidates, err := e.alignAll(candidates)
		if err != nil {
			logging.LogWarn("word boundary alignment failed, emitting unaligned result",
				zap.String("session_id", sessionID),
				zap.Error(err))
		} else {
			candidates = alignedCandidates
			aligned = true
		}
	}

	if err := e.writer.WriteFinal(candidates); err != nil {
		return nil, false, err
	}
	return candidates, aligned, nil
}

// alignAll aligns every candidate or fails the whole set.
func (e *ResultEmitter) alignAll(candidates [][]int) ([][]int, error) {
	aligned := make([][]int, len(candidates))
	for i, c := range candidates {
		a, err := e.aligner.Align(c)
		if err != nil {
			return nil, err
		}
		aligned[i] = a
	}
	return aligned, nil
}
