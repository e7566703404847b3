package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"reflect"
	"regexp"
	"testing"
	"time"

	"extruder_monitor/internal/models"
	"extruder_monitor/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

var linkCols = []string{"id", "port", "baud_rate", "phase", "header", "connected", "updated_at"}

func TestLinkSQLite_Save_StampsNowWhenTimeZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewLinkSQLite(db)

	link := models.LinkState{
		Port:      "/dev/ttyUSB0",
		BaudRate:  115200,
		Phase:     "data_streaming",
		Header:    "Time\tSetT1\tTemp1",
		Connected: true,
	}

	isRecentUTC := sqlmockArgumentFunc(func(v driver.Value) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		tm, err := time.Parse("2006-01-02 15:04:05.000", s)
		if err != nil {
			return false
		}
		now := time.Now().UTC()
		return !tm.Before(now.Add(-5*time.Second)) && !tm.After(now.Add(5*time.Second))
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO serial_link")).
		WithArgs(1, link.Port, link.BaudRate, link.Phase, link.Header, link.Connected, isRecentUTC).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), link); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLinkSQLite_Save_ConvertsGivenTimeToUTC(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewLinkSQLite(db)

	tokyo := time.FixedZone("JST", 9*3600)
	link := models.LinkState{
		Port:      "COM3",
		BaudRate:  9600,
		Phase:     "init",
		UpdatedAt: time.Date(2024, 6, 1, 9, 0, 0, 250_000_000, tokyo),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO serial_link")).
		WithArgs(1, "COM3", 9600, "init", "", false, "2024-06-01 00:00:00.250").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), link); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLinkSQLite_Save_ExecErrorIsPropagated(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewLinkSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO serial_link")).
		WillReturnError(errors.New("db down"))

	if err := repo.Save(context.Background(), models.LinkState{Port: "SIM"}); err == nil {
		t.Fatalf("Save() expected error, got nil")
	}
}

func TestLinkSQLite_Load_NoRowsReturnsZeroValue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewLinkSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, port, baud_rate, phase, header, connected, updated_at")).
		WithArgs(1).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, models.LinkState{}) {
		t.Fatalf("Load() expected zero state, got: %+v", got)
	}
}

func TestLinkSQLite_Load_HappyPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewLinkSQLite(db)

	nonUTC := time.Date(2024, 2, 1, 8, 30, 0, 0, time.FixedZone("EST", -5*3600))
	rows := sqlmock.NewRows(linkCols).
		AddRow(1, "/dev/ttyACM0", 115200, "header_detected", nil, true, nonUTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, port, baud_rate, phase, header, connected, updated_at")).
		WithArgs(1).
		WillReturnRows(rows)

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if got.ID != 1 || got.Port != "/dev/ttyACM0" || got.BaudRate != 115200 ||
		got.Phase != "header_detected" || got.Header != "" || !got.Connected {
		t.Fatalf("Load() unexpected fields: %+v", got)
	}
	if got.UpdatedAt.Location() != time.UTC || !got.UpdatedAt.Equal(nonUTC) {
		t.Fatalf("Load() UpdatedAt = %v, want %v in UTC", got.UpdatedAt, nonUTC)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLinkSQLite_Load_QueryErrorIsWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewLinkSQLite(db)

	boom := errors.New("disk I/O error")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, port")).WithArgs(1).WillReturnError(boom)

	if _, err := repo.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Load() error = %v, want wrapped %v", err, boom)
	}
}

type sqlmockArgumentFunc func(v driver.Value) bool

func (f sqlmockArgumentFunc) Match(v driver.Value) bool {
	return f(v)
}
