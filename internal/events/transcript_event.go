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

package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Transcript outcome kinds.
const (
	KindFinal      = "final"
	KindEmpty      = "empty"
	KindTerminated = "terminated"
)

// TranscriptEvent records the outcome of one utterance with full traceability
type TranscriptEvent struct {
	// Core identification
	UUID      string    `json:"uuid" db:"uuid"`
	SessionID string    `json:"session_id" db:"session_id"`
	Utterance int       `json:"utterance" db:"utterance"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// Decode results
	Kind    string  `json:"kind" db:"kind"`
	Symbols []int   `json:"symbols" db:"symbols"`
	NBest   [][]int `json:"n_best" db:"n_best"`
	Aligned bool    `json:"aligned" db:"aligned"`

	// Processing metadata
	FramesDecoded  int    `json:"frames_decoded" db:"frames_decoded"`
	ProcessingTime int64  `json:"processing_time_ms" db:"processing_time_ms"`
	ErrorMessage   string `json:"error_message,omitempty" db:"error_message"`
}

// NewTranscriptEvent creates a new TranscriptEvent with generated UUID and
// current timestamp.
func NewTranscriptEvent(sessionID string, utterance int) *TranscriptEvent {
	return &TranscriptEvent{
		UUID:      uuid.NewString(),
		SessionID: sessionID,
		Utterance: utterance,
		Timestamp: time.Now(),
	}
}

// SetResult records the decode outcome and marks processing as complete.
func (te *TranscriptEvent) SetResult(kind string, nBest [][]int, framesDecoded int, aligned bool) {
	te.Kind = kind
	te.NBest = nBest
	if len(nBest) > 0 {
		te.Symbols = nBest[0]
	}
	te.FramesDecoded = framesDecoded
	te.Aligned = aligned
	te.ProcessingTime = time.Since(te.Timestamp).Milliseconds()
}

// SetError marks the event as failed with an error message.
func (te *TranscriptEvent) SetError(err error) {
	te.ErrorMessage = err.Error()
	te.ProcessingTime = time.Since(te.Timestamp).Milliseconds()
}

// SymbolsJSON serializes the best symbol sequence for storage.
func (te *TranscriptEvent) SymbolsJSON() (string, error) {
	symbols := te.Symbols
	if symbols == nil {
		symbols = []int{}
	}
	data, err := json.Marshal(symbols)
	if err != nil {
		return "", fmt.Errorf("marshaling symbols: %w", err)
	}
	return string(data), nil
}

// NBestJSON serializes the ranked candidate sequences for storage.
func (te *TranscriptEvent) NBestJSON() (string, error) {
	nBest := te.NBest
	if nBest == nil {
		nBest = [][]int{}
	}
	data, err := json.Marshal(nBest)
	if err != nil {
		return "", fmt.Errorf("marshaling n-best: %w", err)
	}
	return string(data), nil
}

// ParseNBest deserializes candidate sequences stored with NBestJSON.
func ParseNBest(data string) ([][]int, error) {
	if data == "" {
		return nil, nil
	}
	var nBest [][]int
	if err := json.Unmarshal([]byte(data), &nBest); err != nil {
		return nil, fmt.Errorf("unmarshaling n-best: %w", err)
	}
	return nBest, nil
}
