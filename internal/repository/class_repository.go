package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation, the signal that a concurrent writer won a find-or-create race.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}

// ClassRepository manages persistence for classes. The classes table carries
// a unique constraint on (school_id, grade, class_index).
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByKey fetches the class for a (school, grade, classIndex) tuple.
// Returns sql.ErrNoRows when absent.
func (r *ClassRepository) FindByKey(ctx context.Context, key models.ClassKey) (*models.Class, error) {
	const query = `SELECT id, school_id, grade, class_index, created_at FROM classes
		WHERE school_id = $1 AND grade = $2 AND class_index = $3`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, key.SchoolID, key.Grade, key.ClassIndex); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create inserts a new class row. A unique violation is returned unwrapped so
// callers can detect the concurrent-creation race via IsUniqueViolation.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO classes (id, school_id, grade, class_index, created_at)
		VALUES (:id, :school_id, :grade, :class_index, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}
