package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TradeSense/internal/domain/models"
	"TradeSense/internal/domain/repository"

	"github.com/google/uuid"
)

const defaultJournalTable = "trade_events"

// ClickHouseJournal stores domain events in an append-only ClickHouse table.
type ClickHouseJournal struct {
	db    *sql.DB
	table string
}

// NewClickHouseJournal creates the journal over db. An empty table uses trade_events.
func NewClickHouseJournal(db *sql.DB, table string) *ClickHouseJournal {
	if table == "" {
		table = defaultJournalTable
	}
	return &ClickHouseJournal{db: db, table: table}
}

var _ repository.EventJournal = (*ClickHouseJournal)(nil)

// Schema returns the DDL for the journal table.
func (j *ClickHouseJournal) Schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id           UUID,
	type         LowCardinality(String),
	challenge_id UUID,
	occurred_at  DateTime64(3, 'UTC'),
	payload      String
) ENGINE = ReplacingMergeTree
ORDER BY (challenge_id, occurred_at, id)`, j.table),
	}
}

func (j *ClickHouseJournal) Init(ctx context.Context) error {
	for _, stmt := range j.Schema() {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("journal init: %w", err)
		}
	}
	return nil
}

// Append inserts events in one batch. ReplacingMergeTree collapses redelivered ids.
func (j *ClickHouseJournal) Append(ctx context.Context, events ...*models.Event) error {
	rows := make([]*models.Event, 0, len(events))
	for _, ev := range events {
		if ev != nil && ev.ID != uuid.Nil {
			rows = append(rows, ev)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, j.insertSQL())
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("journal prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range rows {
		if _, err := stmt.ExecContext(ctx, ev.ID, string(ev.Type), ev.ChallengeID, ev.OccurredAt.UTC(), string(ev.Payload)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("journal append %s: %w", ev.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal commit: %w", err)
	}
	return nil
}

// Query returns a challenge's events in [from, to), newest first. Zero bounds are open.
func (j *ClickHouseJournal) Query(ctx context.Context, challengeID uuid.UUID, from, to time.Time, limit int) ([]*models.Event, error) {
	q, args := j.selectSQL(challengeID, from, to, limit)
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		var (
			ev      models.Event
			typ     string
			payload string
		)
		if err := rows.Scan(&ev.ID, &typ, &ev.ChallengeID, &ev.OccurredAt, &payload); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		ev.Type = models.EventType(typ)
		ev.Payload = []byte(payload)
		out = append(out, &ev)
	}
	return out, rows.Err()
}

func (j *ClickHouseJournal) Health(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

func (j *ClickHouseJournal) Close() error {
	return j.db.Close()
}

func (j *ClickHouseJournal) insertSQL() string {
	return fmt.Sprintf("INSERT INTO %s (id, type, challenge_id, occurred_at, payload) VALUES (?, ?, ?, ?, ?)", j.table)
}

func (j *ClickHouseJournal) selectSQL(challengeID uuid.UUID, from, to time.Time, limit int) (string, []interface{}) {
	where := []string{"challenge_id = ?"}
	args := []interface{}{challengeID}
	if !from.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		where = append(where, "occurred_at < ?")
		args = append(args, to.UTC())
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	q := fmt.Sprintf("SELECT id, type, challenge_id, occurred_at, payload FROM %s FINAL WHERE %s ORDER BY occurred_at DESC LIMIT %d",
		j.table, strings.Join(where, " AND "), limit)
	return q, args
}
