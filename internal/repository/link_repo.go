package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"extruder_monitor/internal/models"
)

type LinkSQLite struct {
	db *sql.DB
}

func NewLinkSQLite(db *sql.DB) *LinkSQLite {
	return &LinkSQLite{db: db}
}

const (
	linkRowID = 1

	upsertLinkSQL = `
		INSERT INTO serial_link (id, port, baud_rate, phase, header, connected, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			port=excluded.port,
			baud_rate=excluded.baud_rate,
			phase=excluded.phase,
			header=excluded.header,
			connected=excluded.connected,
			updated_at=excluded.updated_at
	`

	selectLinkSQL = `
		SELECT id, port, baud_rate, phase, header, connected, updated_at
		FROM serial_link WHERE id=?
	`
)

// Save upserts the single serial_link row.
func (r *LinkSQLite) Save(ctx context.Context, s models.LinkState) error {
	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := r.db.ExecContext(ctx, upsertLinkSQL,
		linkRowID,
		s.Port,
		s.BaudRate,
		s.Phase,
		s.Header,
		s.Connected,
		formatTime(ts),
	)
	if err != nil {
		return fmt.Errorf("save serial link: %w", err)
	}
	return nil
}

// Load returns the zero LinkState when nothing was saved yet.
func (r *LinkSQLite) Load(ctx context.Context) (models.LinkState, error) {
	row := r.db.QueryRowContext(ctx, selectLinkSQL, linkRowID)

	var s models.LinkState
	var header sql.NullString
	if err := row.Scan(
		&s.ID,
		&s.Port,
		&s.BaudRate,
		&s.Phase,
		&header,
		&s.Connected,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.LinkState{}, nil
		}
		return models.LinkState{}, fmt.Errorf("load serial link: %w", err)
	}
	s.Header = header.String
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
