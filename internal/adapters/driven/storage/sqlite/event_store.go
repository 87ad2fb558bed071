package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
)

// eventStore implements driven.EventStore.
type eventStore struct {
	store *Store
}

var _ driven.EventStore = (*eventStore)(nil)

// RecordEvent logs how a change event was handled.
// Recording the same event ID twice replaces the earlier outcome.
func (s *eventStore) RecordEvent(ctx context.Context, outcome *domain.EventOutcome) error {
	if outcome == nil || outcome.Event.ID == "" {
		return domain.ErrInvalidInput
	}

	conflicts := outcome.Conflicts
	if conflicts == nil {
		conflicts = []domain.DocumentKey{}
	}
	conflictsJSON, err := json.Marshal(conflicts)
	if err != nil {
		return fmt.Errorf("marshalling conflicts: %w", err)
	}

	ev := outcome.Event
	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO events (id, type, collection, doc_key, detected_at, success, error, conflicts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			success = excluded.success,
			error = excluded.error,
			conflicts = excluded.conflicts
	`, ev.ID, string(ev.Type), string(ev.Collection), ev.Key,
		formatTime(ev.DetectedAt),
		boolToInt(outcome.Success),
		nullString(outcome.Error),
		string(conflictsJSON))

	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// RecordTick logs a monitoring tick.
func (s *eventStore) RecordTick(ctx context.Context, tick *domain.TickResult) error {
	if tick == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO ticks (started_at, ended_at, added, removed, failures, conflicts)
		VALUES (?, ?, ?, ?, ?, ?)
	`, formatTime(tick.StartedAt), formatTime(tick.EndedAt),
		tick.Added, tick.Removed, tick.Failures, tick.Conflicts)

	if err != nil {
		return fmt.Errorf("recording tick: %w", err)
	}
	return nil
}

// RecentEvents returns handled events, most recent first.
func (s *eventStore) RecentEvents(ctx context.Context, limit int) ([]domain.EventOutcome, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, type, collection, doc_key, detected_at, success, error, conflicts
		FROM events
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.EventOutcome //nolint:prealloc // size unknown from query
	for rows.Next() {
		outcome, err := scanEventOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, *outcome)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	return outcomes, nil
}

// RecentTicks returns tick results, most recent first.
func (s *eventStore) RecentTicks(ctx context.Context, limit int) ([]domain.TickResult, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT started_at, ended_at, added, removed, failures, conflicts
		FROM ticks
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying ticks: %w", err)
	}
	defer rows.Close()

	var ticks []domain.TickResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var tick domain.TickResult
		var startedAt, endedAt string
		if err := rows.Scan(&startedAt, &endedAt,
			&tick.Added, &tick.Removed, &tick.Failures, &tick.Conflicts); err != nil {
			return nil, fmt.Errorf("scanning tick: %w", err)
		}
		tick.StartedAt = parseTime(startedAt)
		tick.EndedAt = parseTime(endedAt)
		ticks = append(ticks, tick)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ticks: %w", err)
	}

	return ticks, nil
}

// PruneHistory keeps only the most recent 'keep' events and ticks.
func (s *eventStore) PruneHistory(ctx context.Context, keep int) error {
	if keep < 0 {
		return domain.ErrInvalidInput
	}

	if _, err := s.store.db.ExecContext(ctx, `
		DELETE FROM events
		WHERE seq NOT IN (SELECT seq FROM events ORDER BY seq DESC LIMIT ?)
	`, keep); err != nil {
		return fmt.Errorf("pruning events: %w", err)
	}

	if _, err := s.store.db.ExecContext(ctx, `
		DELETE FROM ticks
		WHERE id NOT IN (SELECT id FROM ticks ORDER BY id DESC LIMIT ?)
	`, keep); err != nil {
		return fmt.Errorf("pruning ticks: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// scanEventOutcome scans an event outcome from *sql.Rows.
func scanEventOutcome(rows *sql.Rows) (*domain.EventOutcome, error) {
	var outcome domain.EventOutcome
	var evType, collection, detectedAt, conflictsJSON string
	var success int
	var errMsg sql.NullString

	if err := rows.Scan(&outcome.Event.ID, &evType, &collection, &outcome.Event.Key,
		&detectedAt, &success, &errMsg, &conflictsJSON); err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}

	outcome.Event.Type = domain.ChangeType(evType)
	outcome.Event.Collection = domain.Collection(collection)
	outcome.Event.DetectedAt = parseTime(detectedAt)
	outcome.Success = success == 1
	if errMsg.Valid {
		outcome.Error = errMsg.String
	}

	if err := json.Unmarshal([]byte(conflictsJSON), &outcome.Conflicts); err != nil {
		return nil, fmt.Errorf("unmarshalling conflicts: %w", err)
	}
	if len(outcome.Conflicts) == 0 {
		outcome.Conflicts = nil
	}

	return &outcome, nil
}

// formatTime formats a time as an RFC3339 string in UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses an RFC3339 string, returning zero time on failure.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString returns a sql.NullString that is NULL for empty strings.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
