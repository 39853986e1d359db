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

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/voxstream/decode-hub/internal/config"
	"github.com/voxstream/decode-hub/internal/logging"
	"github.com/voxstream/decode-hub/internal/server"
)

func main() {
	// Initialize structured logging
	if err := logging.Initialize(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	cfg, err := config.Load()
	if err != nil {
		logging.LogError(err, "Failed to load configuration")
		log.Fatalf("Failed to load configuration: %v", err)
	}

	srv, err := server.New(cfg, os.Stdin, os.Stdout)
	if err != nil {
		logging.LogError(err, "Failed to assemble decode pipeline")
		log.Fatalf("Failed to assemble decode pipeline: %v", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logging.LogError(err, "Decode pipeline failed")
		log.Fatalf("Decode pipeline failed: %v", err)
	}
}
