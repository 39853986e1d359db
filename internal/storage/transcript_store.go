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

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/voxstream/decode-hub/internal/events"
	"github.com/voxstream/decode-hub/internal/logging"
)

// TranscriptStore handles database operations for transcript events
type TranscriptStore struct {
	db *Database
}

// NewTranscriptStore creates a new transcript store
func NewTranscriptStore(db *Database) *TranscriptStore {
	return &TranscriptStore{db: db}
}

// RecordTranscript stores a resolved utterance in the database
func (s *TranscriptStore) RecordTranscript(ctx context.Context, event *events.TranscriptEvent) error {
	if event.UUID == "" || event.SessionID == "" {
		return fmt.Errorf("invalid transcript event: uuid and session id are required")
	}

	symbolsJSON, err := event.SymbolsJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize symbols: %w", err)
	}
	nBestJSON, err := event.NBestJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize n-best: %w", err)
	}

	query := `
		INSERT INTO transcripts (
			uuid, session_id, utterance, timestamp,
			kind, symbols, n_best, aligned,
			frames_decoded, processing_time_ms, error_message
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?
		)`

	_, err = s.db.DB().ExecContext(ctx, query,
		event.UUID, event.SessionID, event.Utterance, event.Timestamp,
		event.Kind, symbolsJSON, nBestJSON, event.Aligned,
		event.FramesDecoded, event.ProcessingTime, event.ErrorMessage,
	)

	if err != nil {
		return fmt.Errorf("failed to insert transcript: %w", err)
	}

	logging.LogStoreOperation("insert", "transcripts",
		zap.String("uuid", event.UUID),
		zap.String("kind", event.Kind),
	)
	return nil
}

// GetByUUID retrieves a transcript by its UUID
func (s *TranscriptStore) GetByUUID(uuid string) (*events.TranscriptEvent, error) {
	query := `
		SELECT uuid, session_id, utterance, timestamp,
			   kind, symbols, n_best, aligned,
			   frames_decoded, processing_time_ms, error_message
		FROM transcripts
		WHERE uuid = ?`

	row := s.db.DB().QueryRow(query, uuid)
	return s.scanTranscript(row)
}

// List retrieves transcripts with pagination and filtering
func (s *TranscriptStore) List(options ListOptions) ([]*events.TranscriptEvent, error) {
	query, args := s.buildListQuery(options)

	rows, err := s.db.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []*events.TranscriptEvent
	for rows.Next() {
		event, err := s.scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		transcripts = append(transcripts, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transcripts: %w", err)
	}

	return transcripts, nil
}

// Count returns the total number of transcripts matching the filter
func (s *TranscriptStore) Count(options ListOptions) (int64, error) {
	// Build count query using same filters
	options.Limit = 0
	options.Offset = 0
	query, args := s.buildListQuery(options)

	countQuery := "SELECT COUNT(*) FROM (" + query + ") as filtered"

	var count int64
	err := s.db.DB().QueryRow(countQuery, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transcripts: %w", err)
	}

	return count, nil
}

// GetRecentBySession retrieves recent transcripts for a specific session
func (s *TranscriptStore) GetRecentBySession(sessionID string, limit int) ([]*events.TranscriptEvent, error) {
	options := ListOptions{
		SessionID: sessionID,
		Limit:     limit,
	}
	return s.List(options)
}

// Delete removes a transcript by UUID
func (s *TranscriptStore) Delete(uuid string) error {
	result, err := s.db.DB().Exec("DELETE FROM transcripts WHERE uuid = ?", uuid)
	if err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("transcript not found: %s", uuid)
	}
	return nil
}

// ListOptions defines filtering and pagination options
type ListOptions struct {
	// Filtering
	SessionID string
	Kind      string
	StartTime *time.Time
	EndTime   *time.Time

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "timestamp", "utterance", "frames_decoded"
	SortOrder string // "ASC", "DESC"
}

// buildListQuery constructs the SQL query based on ListOptions
func (s *TranscriptStore) buildListQuery(options ListOptions) (string, []interface{}) {
	query := `
		SELECT uuid, session_id, utterance, timestamp,
			   kind, symbols, n_best, aligned,
			   frames_decoded, processing_time_ms, error_message
		FROM transcripts WHERE 1=1`

	var args []interface{}

	// Apply filters
	if options.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, options.SessionID)
	}

	if options.Kind != "" {
		query += " AND kind = ?"
		args = append(args, options.Kind)
	}

	if options.StartTime != nil {
		query += " AND timestamp >= ?"
		args = append(args, options.StartTime)
	}

	if options.EndTime != nil {
		query += " AND timestamp <= ?"
		args = append(args, options.EndTime)
	}

	// Apply sorting
	sortBy := options.SortBy
	if sortBy == "" {
		sortBy = "timestamp"
	}

	sortOrder := options.SortOrder
	if sortOrder == "" {
		sortOrder = "DESC"
	}

	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	// Apply pagination
	if options.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, options.Limit)

		if options.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, options.Offset)
		}
	}

	return query, args
}

// scanTranscript scans a database row into a TranscriptEvent struct
func (s *TranscriptStore) scanTranscript(scanner interface{}) (*events.TranscriptEvent, error) {
	var event events.TranscriptEvent
	var symbolsJSON, nBestJSON string

	var row interface {
		Scan(dest ...interface{}) error
	}

	switch v := scanner.(type) {
	case *sql.Row:
		row = v
	case *sql.Rows:
		row = v
	default:
		return nil, fmt.Errorf("unsupported scanner type")
	}

	err := row.Scan(
		&event.UUID, &event.SessionID, &event.Utterance, &event.Timestamp,
		&event.Kind, &symbolsJSON, &nBestJSON, &event.Aligned,
		&event.FramesDecoded, &event.ProcessingTime, &event.ErrorMessage,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("transcript not found")
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(symbolsJSON), &event.Symbols); err != nil {
		return nil, fmt.Errorf("failed to parse symbols JSON: %w", err)
	}
	event.NBest, err = events.ParseNBest(nBestJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to parse n-best JSON: %w", err)
	}

	return &event, nil
}
