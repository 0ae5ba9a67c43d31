// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package journal records one Postgres row per completed remote call:
// who was called, how it ended and how long it took. Call parameters,
// tokens and results are never written.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bcem/emailer/internal/ipc"
)

// OutcomeSuccess marks a call that returned a result.
const OutcomeSuccess = "success"

// Entry is one journaled call.
type Entry struct {
	ID         int64
	CallID     string
	Object     string
	Method     string
	Outcome    string // "success" or the error kind
	DurationMS int64
	FinishedAt time.Time
}

// DB is the subset of *pgxpool.Pool the journal needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store writes and lists journal entries.
type Store struct {
	db DB
}

// NewStore creates a journal and ensures its table exists.
func NewStore(ctx context.Context, db DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure journal schema: %w", err)
	}
	slog.Info("call journal initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS call_journal (
			id          BIGSERIAL PRIMARY KEY,
			call_id     TEXT NOT NULL,
			object      TEXT NOT NULL,
			method      TEXT NOT NULL,
			outcome     TEXT NOT NULL,
			duration_ms BIGINT NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_call_journal_finished ON call_journal(finished_at);
	`)
	return err
}

// Record implements ipc.Recorder.
func (s *Store) Record(ctx context.Context, o ipc.Outcome) error {
	outcome := OutcomeSuccess
	if o.Kind != "" {
		outcome = string(o.Kind)
	}
	finished := o.FinishedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO call_journal (call_id, object, method, outcome, duration_ms, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, o.CallID, o.Object, o.Method, outcome, o.Elapsed.Milliseconds(), finished)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, call_id, object, method, outcome, duration_ms, finished_at
		FROM call_journal
		ORDER BY finished_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CallID, &e.Object, &e.Method, &e.Outcome, &e.DurationMS, &e.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than the cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM call_journal WHERE finished_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return tag.RowsAffected(), nil
}
