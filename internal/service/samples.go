package service

import (
	"context"

	"extruder_monitor/internal/models"
	"extruder_monitor/internal/repository"
)

const (
	DefaultSampleLimit = 500
	MaxSampleLimit     = 5000
)

type SampleService struct {
	sampleRepo repository.SampleRepo
}

func NewSampleService(sampleRepo repository.SampleRepo) *SampleService {
	return &SampleService{sampleRepo: sampleRepo}
}

// History returns the newest f.Limit samples in range, oldest first.
func (s *SampleService) History(ctx context.Context, f SampleFilter) ([]models.Sample, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	limit := f.Limit
	switch {
	case limit <= 0:
		limit = DefaultSampleLimit
	case limit > MaxSampleLimit:
		limit = MaxSampleLimit
	}
	return s.sampleRepo.List(ctx, from, to, limit)
}
