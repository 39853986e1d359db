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
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voxstream/decode-hub/internal/decoder"
	"github.com/voxstream/decode-hub/internal/events"
	"github.com/voxstream/decode-hub/internal/likelihood"
	"github.com/voxstream/decode-hub/internal/logging"
	"github.com/voxstream/decode-hub/internal/transport"
)

// Recorder persists resolved utterances. Optional.
type Recorder interface {
	RecordTranscript(ctx context.Context, event *events.TranscriptEvent) error
}

// Publisher announces resolved utterances. Optional.
type Publisher interface {
	PublishTranscript(ctx context.Context, event *events.TranscriptEvent) error
}

// LoopConfig wires a Loop.
type LoopConfig struct {
	Reader      *transport.FrameReader
	Writer      *transport.ResultWriter
	Factory     decoder.Factory
	Emitter     *ResultEmitter
	Policy      decoder.EndpointPolicy
	ChunkFrames int
	NumClasses  int

	// Optional collaborators; nil disables them.
	Recorder  Recorder
	Publisher Publisher
}

// Loop decodes utterances back to back over one frame stream until the
// stream terminates. Each utterance gets a fresh session, engine and buffer;
// only the stream cursor carries over.
type Loop struct {
	cfg LoopConfig
	id  string
}

// NewLoop validates the wiring and returns a ready loop.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	if cfg.Reader == nil || cfg.Writer == nil {
		return nil, fmt.Errorf("session loop: reader and writer are required")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("session loop: engine factory is required")
	}
	if cfg.Emitter == nil {
		return nil, fmt.Errorf("session loop: result emitter is required")
	}
	if cfg.ChunkFrames <= 0 || cfg.NumClasses <= 0 {
		return nil, fmt.Errorf("session loop: chunk frames and class count must be positive")
	}
	return &Loop{cfg: cfg, id: uuid.NewString()}, nil
}

// SessionID returns the loop's stream-level identifier.
func (l *Loop) SessionID() string {
	return l.id
}

// Run decodes utterances until the stream terminates or a fatal error
// occurs. On termination it writes the termination marker and drains the
// stream's closing handshake.
func (l *Loop) Run(ctx context.Context) error {
	logging.LogSessionStage(l.id, "start")

	for utterance := 0; ; utterance++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("session loop: %w", err)
		}

		buffer := likelihood.NewBuffer(l.cfg.ChunkFrames, l.cfg.NumClasses)
		sess := NewSession(
			fmt.Sprintf("%s/%d", l.id, utterance),
			l.cfg.Reader,
			buffer,
			l.cfg.Factory(),
			l.cfg.Policy,
			l.cfg.Emitter,
		)

		event := events.NewTranscriptEvent(l.id, utterance)
		outcome, err := sess.Run()
		if err != nil {
			event.SetError(err)
			l.record(ctx, event)
			return fmt.Errorf("session loop: %w", err)
		}

		if outcome.State == StateTerminated {
			event.SetResult(events.KindTerminated, nil, 0, false)
			l.record(ctx, event)
			break
		}

		kind := events.KindFinal
		if outcome.FramesDecoded == 0 {
			kind = events.KindEmpty
		}
		event.SetResult(kind, outcome.NBest, outcome.FramesDecoded, outcome.Aligned)
		l.record(ctx, event)
	}

	if err := l.cfg.Writer.WriteTermination(); err != nil {
		return fmt.Errorf("session loop: %w", err)
	}
	if err := l.cfg.Reader.AwaitOver(); err != nil {
		return fmt.Errorf("session loop: draining stream: %w", err)
	}
	logging.LogSessionStage(l.id, "stop")
	return nil
}

// record persists and publishes the event best effort; failures are logged
// and never interrupt decoding.
func (l *Loop) record(ctx context.Context, event *events.TranscriptEvent) {
	if l.cfg.Recorder != nil {
		if err := l.cfg.Recorder.RecordTranscript(ctx, event); err != nil {
			logging.LogError(err, "failed to record transcript",
				zap.String("uuid", event.UUID))
		}
	}
	if l.cfg.Publisher != nil {
		if err := l.cfg.Publisher.PublishTranscript(ctx, event); err != nil {
			logging.LogError(err, "failed to publish transcript",
				zap.String("uuid", event.UUID))
		}
	}
}
