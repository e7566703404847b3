package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"extruder_monitor/internal/models"

	"github.com/google/uuid"
)

const (
	insertEventSQL = `INSERT INTO extruder_events (id, occurred_at, type, message, meta) VALUES (?, ?, ?, ?, ?)`
	selectEventSQL = `SELECT id, occurred_at, type, message, meta FROM extruder_events`
)

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

// Append inserts a new event, filling EventID and OccurredAt when empty.
func (r *EventSQLite) Append(ctx context.Context, e models.ExtruderEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	var meta *string
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal event metadata: %w", err)
		}
		s := string(b)
		meta = &s
	}

	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID,
		formatTime(e.OccurredAt),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		e.Description,
		meta,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.EventID, err)
	}
	return nil
}

// List returns events filtered by [from, to] (inclusive) and/or type, oldest first.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, typ string) ([]models.ExtruderEvent, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, formatTime(to))
	}
	if typ = strings.ToUpper(strings.TrimSpace(typ)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}

	q := selectEventSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := make([]models.ExtruderEvent, 0, 64)
	for rows.Next() {
		var ev models.ExtruderEvent
		var meta sql.NullString
		if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.Description, &meta); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.OccurredAt = ev.OccurredAt.UTC()

		if meta.Valid && meta.String != "" {
			var v any
			if err := json.Unmarshal([]byte(meta.String), &v); err == nil {
				ev.Metadata = v
			} else {
				ev.Metadata = meta.String // keep raw if malformed
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
