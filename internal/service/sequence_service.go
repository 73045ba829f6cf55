package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	appErrors "github.com/smit-institute/registration-api/pkg/errors"
)

type sequenceRepository interface {
	Next(ctx context.Context, year int) (int, error)
}

// SequenceAllocator issues collision-free registration numbers. Uniqueness
// and monotonic order within a year come from the repository's atomic
// increment-and-fetch; this layer only applies the display format.
type SequenceAllocator struct {
	repo    sequenceRepository
	prefix  string
	metrics *MetricsService
	logger  *zap.Logger
}

// NewSequenceAllocator constructs a SequenceAllocator.
func NewSequenceAllocator(repo sequenceRepository, prefix string, metrics *MetricsService, logger *zap.Logger) *SequenceAllocator {
	if prefix == "" {
		prefix = "SMIT"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SequenceAllocator{repo: repo, prefix: prefix, metrics: metrics, logger: logger}
}

// Next allocates the next registration number for the year, formatted as
// <prefix><year><sequence zero-padded to 4 digits>. When counter storage is
// unavailable no number is issued and no registration may be created.
func (s *SequenceAllocator) Next(ctx context.Context, year int) (string, error) {
	issued, err := s.repo.Next(ctx, year)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "registration counter unavailable")
	}
	if s.metrics != nil {
		s.metrics.ObserveSequenceAllocation(year)
	}
	return fmt.Sprintf("%s%d%04d", s.prefix, year, issued), nil
}
