package repository

import (
	"context"
	"database/sql"
	"time"

	"extruder_monitor/internal/models"
)

// sqliteTimeLayout is how timestamps are written and compared; fixed width
// UTC text sorts chronologically.
const sqliteTimeLayout = "2006-01-02 15:04:05.000"

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
}

type LinkRepo interface {
	Save(ctx context.Context, s models.LinkState) error
	Load(ctx context.Context) (models.LinkState, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.ExtruderEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ExtruderEvent, error)
}

type SampleRepo interface {
	Append(ctx context.Context, s models.Sample) (int64, error)
	List(ctx context.Context, from, to time.Time, limit int) ([]models.Sample, error)
	Latest(ctx context.Context) (*models.Sample, error)
}

type Repository struct {
	LinkRepo   LinkRepo
	EventRepo  EventRepo
	SampleRepo SampleRepo
	Auth       Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		LinkRepo:   NewLinkSQLite(db),
		EventRepo:  NewEventSQLite(db),
		SampleRepo: NewSampleSQLite(db),
		Auth:       NewOperatorRepository(db),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}
