package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-roster-api/internal/models"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type offboardingStaffStore interface {
	FindByID(ctx context.Context, id string) (*models.StaffRecord, error)
	AffiliatedIDs(ctx context.Context, staffIDs []string, schoolID int64) ([]string, error)
	Delete(ctx context.Context, staffID string) error
	UnlinkSchool(ctx context.Context, staffID string, schoolID int64) error
}

type rewardChecker interface {
	HasReferences(ctx context.Context, staffID string) (bool, error)
}

type grantRevoker interface {
	Revoke(ctx context.Context, schoolID int64, staffID string) error
}

type removalNotifier interface {
	NotifyRemoval(schoolID int64, record *models.StaffRecord, outcome models.RemovalOutcome)
}

// OffboardingService removes staff/school associations. A record whose only
// affiliation is the requesting school, and whom no reward anywhere
// references, is deleted outright; anything else only loses its edges to the
// requesting school.
type OffboardingService struct {
	staff    offboardingStaffStore
	rewards  rewardChecker
	grants   grantRevoker
	notifier removalNotifier
	metrics  *MetricsService
	logger   *zap.Logger
	workers  int
}

// NewOffboardingService constructs an OffboardingService. grants, notifier,
// and metrics may be nil.
func NewOffboardingService(staff offboardingStaffStore, rewards rewardChecker, grants grantRevoker, notifier removalNotifier, metrics *MetricsService, logger *zap.Logger, workers int) *OffboardingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 4
	}
	return &OffboardingService{
		staff:    staff,
		rewards:  rewards,
		grants:   grants,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		workers:  workers,
	}
}

// RemoveAffiliation ends one staff member's association with one school.
// Eligibility is evaluated against fresh state at call time, never cached.
func (s *OffboardingService) RemoveAffiliation(ctx context.Context, schoolID int64, staffID string) (*models.RemovalResult, error) {
	record, err := s.staff.FindByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load staff member")
	}
	if !record.AffiliatedWith(schoolID) {
		return nil, appErrors.Clone(appErrors.ErrCrossTenant, "")
	}

	referenced, err := s.rewards.HasReferences(ctx, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check reward references")
	}

	outcome := models.RemovalSoftUnlinked
	if len(record.Affiliations) == 1 && !referenced {
		if err := s.staff.Delete(ctx, staffID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "delete staff member")
		}
		outcome = models.RemovalHardDeleted
	} else {
		if err := s.staff.UnlinkSchool(ctx, staffID, schoolID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "unlink staff member")
		}
	}

	// Access ends for this school either way.
	if s.grants != nil {
		if err := s.grants.Revoke(ctx, schoolID, staffID); err != nil {
			s.logger.Warn("access grant revocation failed",
				zap.String("staff_id", staffID),
				zap.Int64("school_id", schoolID),
				zap.Error(err))
		}
	}

	if s.notifier != nil {
		s.notifier.NotifyRemoval(schoolID, record, outcome)
	}

	s.metrics.RecordRemoval(string(outcome))
	s.logger.Info("staff member removed",
		zap.String("staff_id", staffID),
		zap.Int64("school_id", schoolID),
		zap.String("outcome", string(outcome)))

	return &models.RemovalResult{StaffID: staffID, Outcome: outcome}, nil
}

// RemoveBatch removes many staff members with per-item isolation: one failing
// entry never blocks its siblings. Membership is pre-validated in one query
// so unaffiliated ids fail fast without individual lookups.
func (s *OffboardingService) RemoveBatch(ctx context.Context, schoolID int64, staffIDs []string) (*models.RemovalBatchResult, error) {
	if len(staffIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "removal batch is empty")
	}

	seen := make(map[string]bool, len(staffIDs))
	ids := make([]string, 0, len(staffIDs))
	for _, id := range staffIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	affiliated, err := s.staff.AffiliatedIDs(ctx, ids, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "pre-validate removal batch")
	}
	member := make(map[string]bool, len(affiliated))
	for _, id := range affiliated {
		member[id] = true
	}

	// Unaffiliated ids are settled before any worker starts so the Failed
	// slice is never appended to from two goroutines at once.
	result := &models.RemovalBatchResult{}
	eligible := make([]string, 0, len(ids))
	for _, id := range ids {
		if !member[id] {
			result.Failed = append(result.Failed, models.RemovalFailure{
				StaffID: id,
				Reason:  appErrors.ErrCrossTenant.Message,
			})
			continue
		}
		eligible = append(eligible, id)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, id := range eligible {
		id := id
		g.Go(func() error {
			removal, err := s.RemoveAffiliation(gctx, schoolID, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, models.RemovalFailure{
					StaffID: id,
					Reason:  appErrors.FromError(err).Message,
				})
				return nil
			}
			result.Succeeded = append(result.Succeeded, *removal)
			return nil
		})
	}
	_ = g.Wait()

	return result, nil
}
