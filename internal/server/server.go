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

// Package server assembles the decode pipeline from configuration: frame
// stream in, result stream out, engine factory, and the optional transcript
// store and publisher.
package server

import (
	"context"
	"fmt"
	"io"

	"github.com/voxstream/decode-hub/internal/config"
	"github.com/voxstream/decode-hub/internal/decoder"
	"github.com/voxstream/decode-hub/internal/logging"
	"github.com/voxstream/decode-hub/internal/messaging"
	"github.com/voxstream/decode-hub/internal/session"
	"github.com/voxstream/decode-hub/internal/storage"
	"github.com/voxstream/decode-hub/internal/transport"
)

// Server owns the wired decode pipeline and its external collaborators
type Server struct {
	cfg  *config.Config
	loop *session.Loop

	db   *storage.Database
	nats *messaging.NATSService
}

// New assembles a server reading the chunk protocol from in and writing
// results to out
func New(cfg *config.Config, in io.Reader, out io.Writer) (*Server, error) {
	tm, err := buildTransitionModel(cfg)
	if err != nil {
		return nil, err
	}

	silence, err := decoder.ParseClassSet(cfg.Endpoint.SilenceClasses)
	if err != nil {
		return nil, fmt.Errorf("silence classes: %w", err)
	}

	factory, err := decoder.NewFactory(cfg.Engine.Name, tm, decoder.EngineOptions{
		AcousticScale:  cfg.Decoder.AcousticScale,
		SilenceClasses: silence,
	})
	if err != nil {
		return nil, err
	}

	var aligner decoder.Aligner
	if cfg.Engine.WordBoundaryFile != "" {
		wb, err := decoder.LoadWordBoundaryAligner(cfg.Engine.WordBoundaryFile)
		if err != nil {
			return nil, err
		}
		aligner = wb
	}

	writer := transport.NewResultWriter(out)
	emitter := session.NewResultEmitter(writer, aligner, decoder.DeterminizeOptions{
		Beam:          cfg.Decoder.LatticeBeam,
		PruneInterval: cfg.Decoder.PruneInterval,
		PruneScale:    cfg.Decoder.PruneScale,
		HashRatio:     cfg.Decoder.HashRatio,
	}, cfg.Decoder.LMWeight, cfg.Decoder.NBest)

	s := &Server{cfg: cfg}

	loopCfg := session.LoopConfig{
		Reader:      transport.NewFrameReader(in, cfg.Stream.Timeout, cfg.Stream.PollInterval),
		Writer:      writer,
		Factory:     factory,
		Emitter:     emitter,
		ChunkFrames: cfg.Stream.ChunkFrames,
		NumClasses:  tm.NumClasses(),
		Policy: decoder.EndpointPolicy{
			SilenceClasses:     silence,
			FrameShift:         cfg.Endpoint.FrameShift,
			MinTrailingSilence: cfg.Endpoint.MinTrailingSilence,
		},
	}

	if cfg.Storage.Path != "" {
		db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Storage.Path})
		if err != nil {
			return nil, fmt.Errorf("opening transcript store: %w", err)
		}
		s.db = db
		loopCfg.Recorder = storage.NewTranscriptStore(db)
	}

	if cfg.NATS.URL != "" {
		ns, err := messaging.NewNATSService(cfg.NATS.URL, cfg.NATS.SubjectPrefix,
			cfg.NATS.MaxReconnect, cfg.NATS.ReconnectWait)
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := ns.Connect(); err != nil {
			s.Close()
			return nil, err
		}
		s.nats = ns
		loopCfg.Publisher = ns
	}

	loop, err := session.NewLoop(loopCfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.loop = loop

	return s, nil
}

// buildTransitionModel loads the configured transition table, or falls back
// to the identity mapping over the configured class count.
func buildTransitionModel(cfg *config.Config) (decoder.TransitionModel, error) {
	if cfg.Engine.TransitionModel != "" {
		return decoder.LoadTransitionModel(cfg.Engine.TransitionModel)
	}
	return decoder.NewIdentityTransitionModel(cfg.Engine.NumClasses)
}

// Run decodes the stream to completion
func (s *Server) Run(ctx context.Context) error {
	logging.Sugar.Infow("🚀 decode pipeline ready",
		"engine", s.cfg.Engine.Name,
		"chunk_frames", s.cfg.Stream.ChunkFrames,
		"n_best", s.cfg.Decoder.NBest,
		"store", s.db != nil,
		"publish", s.nats != nil,
	)
	return s.loop.Run(ctx)
}

// Close releases the server's external collaborators
func (s *Server) Close() {
	if s.nats != nil {
		s.nats.Close()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logging.LogError(err, "failed to close transcript store")
		}
	}
}
