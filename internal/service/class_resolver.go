package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/repository"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type classStore interface {
	FindByKey(ctx context.Context, key models.ClassKey) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
}

// ClassResolver maps (school, grade, classIndex) tuples to class records,
// creating classes that do not exist yet. Concurrent imports racing on the
// same tuple are reconciled through the unique constraint: a create that
// loses the race falls back to looking the winner up.
type ClassResolver struct {
	classes classStore
	logger  *zap.Logger
}

// NewClassResolver constructs a ClassResolver.
func NewClassResolver(classes classStore, logger *zap.Logger) *ClassResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassResolver{classes: classes, logger: logger}
}

// Resolve finds or creates a class for every distinct key referenced by rows.
// The returned maps are keyed by tuple: resolved holds the class for each key
// that succeeded, failed holds the error for each key that did not. A failed
// key never aborts resolution of its siblings.
func (r *ClassResolver) Resolve(ctx context.Context, schoolID int64, rows []models.NormalizedRow) (map[models.ClassKey]*models.Class, map[models.ClassKey]error) {
	resolved := make(map[models.ClassKey]*models.Class)
	failed := make(map[models.ClassKey]error)

	for _, row := range rows {
		if !row.HasClassSignal {
			continue
		}
		key := models.ClassKey{SchoolID: schoolID, Grade: row.Grade, ClassIndex: row.ClassIndex}
		if _, ok := resolved[key]; ok {
			continue
		}
		if _, ok := failed[key]; ok {
			continue
		}

		class, err := r.findOrCreate(ctx, key)
		if err != nil {
			r.logger.Warn("class resolution failed",
				zap.Int64("school_id", key.SchoolID),
				zap.Int("grade", key.Grade),
				zap.Int("class_index", key.ClassIndex),
				zap.Error(err))
			failed[key] = err
			continue
		}
		resolved[key] = class
	}

	return resolved, failed
}

func (r *ClassResolver) findOrCreate(ctx context.Context, key models.ClassKey) (*models.Class, error) {
	class, err := r.classes.FindByKey(ctx, key)
	if err == nil {
		return class, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "look up class")
	}

	created := &models.Class{SchoolID: key.SchoolID, Grade: key.Grade, ClassIndex: key.ClassIndex}
	err = r.classes.Create(ctx, created)
	if err == nil {
		return created, nil
	}
	if repository.IsUniqueViolation(err) {
		// Another import created the class between our lookup and insert.
		class, err = r.classes.FindByKey(ctx, key)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "re-fetch class after create race")
		}
		return class, nil
	}
	return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create class")
}
