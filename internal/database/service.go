package database

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/acoustic"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/cache"
	apperrors "github.com/ZanzyTHEbar/cognitive-echo/internal/errors"
)

var subjectIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]{0,127}$`)

// ValidateSubjectID rejects identifiers that are empty, too long, or contain
// characters outside [A-Za-z0-9_.-].
func ValidateSubjectID(subjectID string) error {
	if !subjectIDPattern.MatchString(subjectID) {
		return apperrors.NewValidationErrorWithMap(map[string]string{
			"subject_id": "must be 1-128 characters of letters, digits, '_', '.' or '-'",
		})
	}
	return nil
}

// BaselineService provides cached access to stored baselines
type BaselineService struct {
	repo   *Repository
	cache  *cache.Cache[*Baseline]
	logger *slog.Logger
	now    func() time.Time
}

// NewBaselineService creates a new baseline service. A nil cache disables caching.
func NewBaselineService(repo *Repository, c *cache.Cache[*Baseline], logger *slog.Logger) *BaselineService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BaselineService{
		repo:   repo,
		cache:  c,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the stored baseline of subjectID, or ErrNotFound
func (s *BaselineService) Get(ctx context.Context, subjectID string) (*Baseline, error) {
	if err := ValidateSubjectID(subjectID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if b, ok := s.cache.Get(subjectID); ok {
			return b, nil
		}
	}

	b, err := s.repo.GetBaseline(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(subjectID, b)
	}
	return b, nil
}

// Lookup returns the baseline vector of subjectID for scoring. A subject
// without a baseline yields (nil, nil); only store failures return an error.
func (s *BaselineService) Lookup(ctx context.Context, subjectID string) (*acoustic.FeatureVector, error) {
	b, err := s.Get(ctx, subjectID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	v := b.Vector()
	return &v, nil
}

// Put stores features as the baseline of subjectID
func (s *BaselineService) Put(ctx context.Context, subjectID string, features acoustic.FeatureVector) (*Baseline, error) {
	if err := ValidateSubjectID(subjectID); err != nil {
		return nil, err
	}

	b := NewBaseline(subjectID, features)
	b.CreatedAt = s.now().UTC()
	b.UpdatedAt = b.CreatedAt

	stored, err := s.repo.UpsertBaseline(ctx, b)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(subjectID, stored)
	}
	s.logger.Info("Baseline stored", "subject_id", subjectID, "baseline_id", stored.ID)
	return stored, nil
}

// Delete removes the baseline of subjectID
func (s *BaselineService) Delete(ctx context.Context, subjectID string) error {
	if err := ValidateSubjectID(subjectID); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.Delete(subjectID)
	}

	if err := s.repo.DeleteBaseline(ctx, subjectID); err != nil {
		return err
	}

	s.logger.Info("Baseline deleted", "subject_id", subjectID)
	return nil
}

// PurgeOlderThan removes baselines not updated within retention
func (s *BaselineService) PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.repo.PurgeOlderThan(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}

	if n > 0 && s.cache != nil {
		s.cache.Clear()
	}
	s.logger.Info("Expired baselines purged", "count", n, "retention_hours", retention.Hours())
	return n, nil
}

// StartPurger purges expired baselines every interval until ctx is done
func (s *BaselineService) StartPurger(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 || retention <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PurgeOlderThan(ctx, retention); err != nil {
				s.logger.Error("Baseline purge failed", "error", err)
			}
		}
	}
}

// Count returns the number of stored baselines
func (s *BaselineService) Count(ctx context.Context) (int, error) {
	return s.repo.CountBaselines(ctx)
}
