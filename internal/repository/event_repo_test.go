package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"extruder_monitor/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newEventRepo(t *testing.T) (*EventSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewEventSQLite(db), mock
}

func TestEventAppend_FillsDefaultsAndNormalizesType(t *testing.T) {
	t.Parallel()
	repo, mock := newEventRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "PARSE_WARNING", "bad row", `{"position":3}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(context.Background(), models.ExtruderEvent{
		Type:        " parse_warning ",
		Description: "bad row",
		Metadata:    map[string]any{"position": 3},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestEventAppend_FormatsTimestampAsUTC(t *testing.T) {
	t.Parallel()
	repo, mock := newEventRepo(t)

	at := time.Date(2025, 3, 4, 12, 0, 0, 500_000_000, time.FixedZone("UTC+2", 2*3600))
	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WithArgs("ev-1", "2025-03-04 10:00:00.500", "HEADER", "header detected", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(context.Background(), models.ExtruderEvent{
		EventID:     "ev-1",
		OccurredAt:  at,
		Type:        "HEADER",
		Description: "header detected",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestEventAppend_DBError(t *testing.T) {
	t.Parallel()
	repo, mock := newEventRepo(t)

	mock.ExpectExec("INSERT INTO extruder_events").WillReturnError(errors.New("down"))

	err := repo.Append(context.Background(), models.ExtruderEvent{Type: "reset", Description: "x"})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected error, got %v", err)
	}
}

func TestEventList_NoFilters_ParsesMetadata(t *testing.T) {
	t.Parallel()
	repo, mock := newEventRepo(t)

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	js, _ := json.Marshal(map[string]any{"port": "/dev/ttyUSB0"})

	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
		AddRow("1", now, "CONNECT", "connected", string(js)).
		AddRow("2", now.Add(time.Hour), "DISCONNECT", "disconnected", nil).
		AddRow("3", now.Add(2*time.Hour), "SERIAL_ERROR", "oops", "{not json")

	mock.ExpectQuery(regexp.QuoteMeta(selectEventSQL + " ORDER BY occurred_at ASC")).WillReturnRows(rows)

	got, err := repo.List(context.Background(), time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3, got %d", len(got))
	}
	b, _ := json.Marshal(got[0].Metadata)
	if string(b) != string(js) {
		t.Fatalf("metadata mismatch: %s vs %s", b, js)
	}
	if got[1].Metadata != nil {
		t.Fatalf("expected nil meta, got %#v", got[1].Metadata)
	}
	if got[2].Metadata != "{not json" {
		t.Fatalf("expected raw meta kept, got %#v", got[2].Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestEventList_WithFilters(t *testing.T) {
	t.Parallel()
	repo, mock := newEventRepo(t)

	from := time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	query := selectEventSQL + ` WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? ORDER BY occurred_at ASC`
	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
		AddRow("2", from, "HEADER", "b", nil)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("2025-01-01 11:00:00.000", "2025-01-01 12:00:00.000", "HEADER").
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), from, to, " header ")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].EventID != "2" {
		t.Fatalf("unexpected results: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestEventList_ScanError(t *testing.T) {
	t.Parallel()
	repo, mock := newEventRepo(t)

	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
		AddRow("x", 123, "HEADER", "msg", nil)
	mock.ExpectQuery("SELECT id, occurred_at").WillReturnRows(rows)

	if _, err := repo.List(context.Background(), time.Time{}, time.Time{}, ""); err == nil {
		t.Fatalf("expected scan error, got nil")
	}
}
