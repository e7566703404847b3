package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"extruder_monitor/internal/models"
	"extruder_monitor/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
)

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeRange converts both bounds to UTC and rejects from > to.
func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	from, to = normalizeToUTC(from), normalizeToUTC(to)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, errInvalidTimeRange
	}
	return from, to, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.ExtruderEvent, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, from, to, normalizeEventType(f.Type))
}
