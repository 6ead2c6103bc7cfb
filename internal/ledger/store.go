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

// Package ledger provides a Postgres-backed record of per-message
// processing outcomes. The mailbox seen flag stays authoritative for the
// poll loop; the ledger is the durable audit trail of what was attempted
// and how it ended, independent of mail-server state.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paneworks/ingestion/internal/models"
)

// Entry is one processed message's outcome.
type Entry struct {
	ID          int64
	UID         int64
	MessageID   string
	Sender      string
	Subject     string
	Outcome     string
	Reason      string
	MatchIDs    string
	RemoteID    string
	ReviewPath  string
	LastError   string
	ProcessedAt time.Time
}

// Store records processing decisions in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a decision ledger backed by the given Postgres pool.
// It ensures the ledger table exists on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure ledger schema: %w", err)
	}
	slog.Info("decision ledger initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS processing_ledger (
			id           BIGSERIAL PRIMARY KEY,
			uid          BIGINT NOT NULL,
			message_id   TEXT DEFAULT '',
			sender       TEXT DEFAULT '',
			subject      TEXT DEFAULT '',
			outcome      TEXT NOT NULL,
			reason       TEXT DEFAULT '',
			match_ids    TEXT DEFAULT '',
			remote_id    TEXT DEFAULT '',
			review_path  TEXT DEFAULT '',
			last_error   TEXT DEFAULT '',
			processed_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_message ON processing_ledger(message_id);
		CREATE INDEX IF NOT EXISTS idx_ledger_outcome ON processing_ledger(outcome);
	`)
	return err
}

// Record appends one decision row.
func (s *Store) Record(ctx context.Context, msg models.InboundMessage, d models.Decision) error {
	lastError := ""
	if d.Err != nil {
		lastError = d.Err.Error()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO processing_ledger
			(uid, message_id, sender, subject, outcome, reason, match_ids, remote_id, review_path, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, int64(msg.UID), msg.MessageID, msg.From, msg.Subject,
		string(d.Outcome), d.Reason, strings.Join(d.MatchIDs, ","),
		d.RemoteID, d.ReviewPath, lastError)
	return err
}

// LastProcessedUID returns the highest mailbox UID the ledger has seen,
// a high-water mark for operators reconciling mailbox state.
func (s *Store) LastProcessedUID(ctx context.Context) (int64, error) {
	var uid *int64
	err := s.pool.QueryRow(ctx, `
		SELECT MAX(uid) FROM processing_ledger
	`).Scan(&uid)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if uid == nil {
		return 0, nil
	}
	return *uid, nil
}

// CountByOutcome summarises ledger rows per outcome since the given time.
func (s *Store) CountByOutcome(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT outcome, COUNT(*) FROM processing_ledger
		WHERE processed_at >= $1
		GROUP BY outcome
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}
