package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"extruder_monitor/internal/models"
)

const (
	insertSampleSQL = `INSERT INTO extruder_samples (received_at, status, fault, row) VALUES (?, ?, ?, ?)`
	selectSampleSQL = `SELECT id, received_at, row FROM extruder_samples`
	latestSampleSQL = `SELECT id, received_at, row FROM extruder_samples ORDER BY id DESC LIMIT 1`
)

type SampleSQLite struct {
	db *sql.DB
}

func NewSampleSQLite(db *sql.DB) *SampleSQLite { return &SampleSQLite{db: db} }

// Append stores a decoded row and returns its ID. Status and fault are kept
// in their own columns for ad-hoc queries; the full row is JSON.
func (r *SampleSQLite) Append(ctx context.Context, s models.Sample) (int64, error) {
	if s.ReceivedAt.IsZero() {
		s.ReceivedAt = time.Now()
	}
	row, err := json.Marshal(s.Row)
	if err != nil {
		return 0, fmt.Errorf("marshal sample row: %w", err)
	}
	res, err := r.db.ExecContext(ctx, insertSampleSQL,
		formatTime(s.ReceivedAt),
		s.Row.Status.Token(),
		s.Row.Fault,
		string(row),
	)
	if err != nil {
		return 0, fmt.Errorf("insert sample: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for sample: %w", err)
	}
	return id, nil
}

// List returns up to limit of the most recent samples in [from, to], oldest first.
func (r *SampleSQLite) List(ctx context.Context, from, to time.Time, limit int) ([]models.Sample, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "received_at >= ?")
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		conds = append(conds, "received_at <= ?")
		args = append(args, formatTime(to))
	}

	q := selectSampleSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []models.Sample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Latest returns (nil, nil) when no sample was stored yet.
func (r *SampleSQLite) Latest(ctx context.Context) (*models.Sample, error) {
	s, err := scanSample(r.db.QueryRowContext(ctx, latestSampleSQL))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSample(sc scanner) (models.Sample, error) {
	var (
		s   models.Sample
		raw string
	)
	if err := sc.Scan(&s.ID, &s.ReceivedAt, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Sample{}, err
		}
		return models.Sample{}, fmt.Errorf("scan sample: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &s.Row); err != nil {
		return models.Sample{}, fmt.Errorf("decode sample %d: %w", s.ID, err)
	}
	s.ReceivedAt = s.ReceivedAt.UTC()
	return s, nil
}
