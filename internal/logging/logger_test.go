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

package logging

import (
	"errors"
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize(t *testing.T) {
	originalLevel := os.Getenv("LOG_LEVEL")
	originalFormat := os.Getenv("LOG_FORMAT")
	defer func() {
		_ = os.Setenv("LOG_LEVEL", originalLevel)
		_ = os.Setenv("LOG_FORMAT", originalFormat)
	}()

	tests := []struct {
		name      string
		logLevel  string
		logFormat string
	}{
		{name: "Default values", logLevel: "", logFormat: ""},
		{name: "Info level console format", logLevel: "info", logFormat: "console"},
		{name: "Debug level JSON format", logLevel: "debug", logFormat: "json"},
		{name: "Invalid format defaults to console", logLevel: "info", logFormat: "invalid"},
		{name: "Invalid level defaults to info", logLevel: "invalid", logFormat: "console"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.logLevel != "" {
				_ = os.Setenv("LOG_LEVEL", tt.logLevel)
			} else {
				_ = os.Unsetenv("LOG_LEVEL")
			}
			if tt.logFormat != "" {
				_ = os.Setenv("LOG_FORMAT", tt.logFormat)
			} else {
				_ = os.Unsetenv("LOG_FORMAT")
			}

			if err := Initialize(); err != nil {
				t.Errorf("Initialize() unexpected error: %v", err)
				return
			}

			if Logger == nil {
				t.Error("Logger should not be nil after initialization")
			}
			if Sugar == nil {
				t.Error("Sugar should not be nil after initialization")
			}

			Close()
		})
	}
}

func TestLoggingFunctions(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	Logger = zap.New(core)
	Sugar = Logger.Sugar()

	defer func() {
		Close()
		Logger = nil
		Sugar = nil
	}()

	t.Run("LogSessionStage", func(t *testing.T) {
		LogSessionStage("sess-123", "finalize", zap.Int("frames", 64))

		logs := recorded.All()
		if len(logs) == 0 {
			t.Fatal("Expected log entry but got none")
		}

		log := logs[len(logs)-1]
		if log.Message != "Session stage" {
			t.Errorf("Expected message 'Session stage', got %q", log.Message)
		}

		fields := make(map[string]interface{})
		for _, field := range log.Context {
			switch field.Type {
			case zapcore.StringType:
				fields[field.Key] = field.String
			case zapcore.Int64Type:
				fields[field.Key] = field.Integer
			}
		}

		if fields["component"] != "session" {
			t.Errorf("Expected component 'session', got %v", fields["component"])
		}
		if fields["session_id"] != "sess-123" {
			t.Errorf("Expected session_id 'sess-123', got %v", fields["session_id"])
		}
		if fields["stage"] != "finalize" {
			t.Errorf("Expected stage 'finalize', got %v", fields["stage"])
		}
		if fields["frames"] != int64(64) {
			t.Errorf("Expected frames 64, got %v", fields["frames"])
		}
	})

	t.Run("LogStreamEvent", func(t *testing.T) {
		LogStreamEvent("chunk_received", zap.Int("frames", 32))

		logs := recorded.All()
		log := logs[len(logs)-1]
		if log.Level != zapcore.DebugLevel {
			t.Errorf("Expected debug level, got %v", log.Level)
		}
		if log.Message != "Stream event" {
			t.Errorf("Expected message 'Stream event', got %q", log.Message)
		}
	})

	t.Run("LogStoreOperation", func(t *testing.T) {
		LogStoreOperation("INSERT", "transcripts")

		logs := recorded.All()
		log := logs[len(logs)-1]
		if log.Message != "Store operation" {
			t.Errorf("Expected message 'Store operation', got %q", log.Message)
		}

		hasComponent := false
		for _, field := range log.Context {
			if field.Key == "component" && field.String == "storage" {
				hasComponent = true
			}
		}
		if !hasComponent {
			t.Error("Missing component field")
		}
	})

	t.Run("LogError", func(t *testing.T) {
		LogError(errors.New("test error"), "Something went wrong")

		logs := recorded.All()
		log := logs[len(logs)-1]
		if log.Level != zapcore.ErrorLevel {
			t.Errorf("Expected error level, got %v", log.Level)
		}
		if log.Message != "Something went wrong" {
			t.Errorf("Expected message 'Something went wrong', got %q", log.Message)
		}
	})

	t.Run("LogWarn", func(t *testing.T) {
		LogWarn("Warning message")

		logs := recorded.All()
		log := logs[len(logs)-1]
		if log.Level != zapcore.WarnLevel {
			t.Errorf("Expected warn level, got %v", log.Level)
		}
	})
}

func TestLoggingFunctions_NilLogger(t *testing.T) {
	originalLogger := Logger
	originalSugar := Sugar
	defer func() {
		Logger = originalLogger
		Sugar = originalSugar
	}()

	Logger = nil
	Sugar = nil

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Function panicked with nil logger: %v", r)
		}
	}()

	LogSessionStage("sess", "stage")
	LogStreamEvent("action")
	LogStoreOperation("op", "table")
	LogError(errors.New("test"), "message")
	LogWarn("warning")
	Sync()
}

func TestGetEnvOrDefault(t *testing.T) {
	_ = os.Setenv("TEST_ENV_VAR", "env_value")
	defer func() { _ = os.Unsetenv("TEST_ENV_VAR") }()

	if got := getEnvOrDefault("TEST_ENV_VAR", "default"); got != "env_value" {
		t.Errorf("getEnvOrDefault() = %q, want %q", got, "env_value")
	}
	if got := getEnvOrDefault("TEST_ENV_VAR_NOT_SET", "default"); got != "default" {
		t.Errorf("getEnvOrDefault() = %q, want %q", got, "default")
	}
}
