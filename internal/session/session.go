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

// Package session drives one utterance at a time: it pulls likelihood chunks
// from the frame stream, advances the engine, emits partial results while the
// utterance is open and resolves it with a final result at the boundary.
package session

import (
	"fmt"

	"github.com/voxstream/decode-hub/internal/decoder"
	"github.com/voxstream/decode-hub/internal/likelihood"
	"github.com/voxstream/decode-hub/internal/logging"
	"github.com/voxstream/decode-hub/internal/transport"
)

// State is the utterance session's lifecycle position.
type State int

const (
	// StateActive means chunks are flowing and partials may be emitted.
	StateActive State = iota
	// StateEndpointReached means the engine cut the utterance on silence.
	StateEndpointReached
	// StateLastChunkSeen means the stream marked the utterance's end.
	StateLastChunkSeen
	// StateTerminated means the stream asked the whole session to stop.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateEndpointReached:
		return "endpoint_reached"
	case StateLastChunkSeen:
		return "last_chunk_seen"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// bufferScorer is the engine's read-only window onto the likelihood buffer.
type bufferScorer struct {
	buf *likelihood.Buffer
}

func (s bufferScorer) Likelihood(frame, class int) float32 { return s.buf.Likelihood(frame, class) }
func (s bufferScorer) IsLastFrame(frame int) bool          { return s.buf.IsLastFrame(frame) }
func (s bufferScorer) FramesReady() int                    { return s.buf.FramesReady() }
func (s bufferScorer) NumClasses() int                     { return s.buf.NumClasses() }

// Outcome summarizes a resolved utterance.
type Outcome struct {
	State         State
	FramesDecoded int
	NBest         [][]int
	Aligned       bool
}

// Session decodes exactly one utterance. Create a fresh one per utterance;
// only the frame stream survives across utterances.
type Session struct {
	id      string
	reader  *transport.FrameReader
	buffer  *likelihood.Buffer
	engine  decoder.Engine
	policy  decoder.EndpointPolicy
	emitter *ResultEmitter

	state State
}

// NewSession wires a session around a fresh engine and buffer.
func NewSession(id string, reader *transport.FrameReader, buffer *likelihood.Buffer, engine decoder.Engine, policy decoder.EndpointPolicy, emitter *ResultEmitter) *Session {
	return &Session{
		id:      id,
		reader:  reader,
		buffer:  buffer,
		engine:  engine,
		policy:  policy,
		emitter: emitter,
		state:   StateActive,
	}
}

// Run decodes the utterance to its resolution. It returns the terminal state
// and, unless the stream asked to terminate, the final outcome. Stream errors
// are fatal and abort without emitting anything further.
func (s *Session) Run() (*Outcome, error) {
	scorer := bufferScorer{buf: s.buffer}

	for s.state == StateActive {
		event, err := s.reader.Receive(s.buffer)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", s.id, err)
		}

		switch event {
		case transport.EventTerminate:
			s.state = StateTerminated
			logging.LogSessionStage(s.id, "terminate")
			return &Outcome{State: s.state}, nil

		case transport.EventNoMoreData:
			s.state = StateLastChunkSeen

		case transport.EventData:
			if err := s.engine.Advance(scorer); err != nil {
				return nil, fmt.Errorf("session %s: %w", s.id, err)
			}
			switch {
			case s.buffer.ArrivedLastChunk():
				s.state = StateLastChunkSeen
			case s.engine.EndpointDetected(s.policy):
				s.state = StateEndpointReached
			default:
				// Still open: report progress. The resolving
				// iteration never emits a partial.
				if err := s.emitter.EmitPartial(s.engine.BestPath()); err != nil {
					return nil, fmt.Errorf("session %s: %w", s.id, err)
				}
			}
		}
	}

	return s.resolve()
}

// resolve emits the final result for the closed utterance.
func (s *Session) resolve() (*Outcome, error) {
	outcome := &Outcome{State: s.state, FramesDecoded: s.engine.FramesDecoded()}

	if outcome.FramesDecoded == 0 {
		logging.LogSessionStage(s.id, "empty_final")
		if err := s.emitter.EmitEmptyFinal(); err != nil {
			return nil, fmt.Errorf("session %s: %w", s.id, err)
		}
		return outcome, nil
	}

	s.engine.Finalize()
	graph, err := s.engine.ResultGraph(true)
	if err != nil {
		return nil, fmt.Errorf("session %s: extracting result graph: %w", s.id, err)
	}

	nBest, aligned, err := s.emitter.EmitFinal(s.id, graph)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", s.id, err)
	}
	outcome.NBest = nBest
	outcome.Aligned = aligned
	logging.LogSessionStage(s.id, "final")
	return outcome, nil
}

// State returns the session's current lifecycle position.
func (s *Session) State() State {
	return s.state
}
