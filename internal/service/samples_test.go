package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSampleService_History_Limits(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		in    int
		limit int
	}{
		{"default when zero", 0, DefaultSampleLimit},
		{"default when negative", -3, DefaultSampleLimit},
		{"passes through", 20, 20},
		{"clamped", MaxSampleLimit + 1, MaxSampleLimit},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			repo := &fakeSampleRepo{}
			if _, err := NewSampleService(repo).History(context.Background(), SampleFilter{Limit: c.in}); err != nil {
				t.Fatalf("History: %v", err)
			}
			if repo.gotLimit != c.limit {
				t.Fatalf("limit = %d, want %d", repo.gotLimit, c.limit)
			}
		})
	}
}

func TestSampleService_History_RangeAndErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	plus2 := time.FixedZone("UTC+2", 2*3600)
	from := time.Date(2025, 1, 1, 12, 0, 0, 0, plus2)
	to := from.Add(time.Hour)

	repo := &fakeSampleRepo{}
	if _, err := NewSampleService(repo).History(ctx, SampleFilter{From: from, To: to}); err != nil {
		t.Fatalf("History: %v", err)
	}
	if repo.gotFrom.Location() != time.UTC || !repo.gotFrom.Equal(from) || !repo.gotTo.Equal(to) {
		t.Fatalf("range not normalized: %v .. %v", repo.gotFrom, repo.gotTo)
	}

	if _, err := NewSampleService(repo).History(ctx, SampleFilter{From: to, To: from}); !errors.Is(err, errInvalidTimeRange) {
		t.Fatalf("want errInvalidTimeRange, got %v", err)
	}

	failing := &fakeSampleRepo{listErr: errors.New("db down")}
	if _, err := NewSampleService(failing).History(ctx, SampleFilter{}); err == nil {
		t.Fatalf("expected repo error")
	}
}
