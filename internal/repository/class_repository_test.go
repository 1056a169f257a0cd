package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClassRepositoryFindByKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_id", "grade", "class_index", "created_at"}).
		AddRow("c1", int64(1), 3, 1, time.Now())
	mock.ExpectQuery("SELECT id, school_id, grade, class_index, created_at FROM classes").
		WithArgs(int64(1), 3, 1).
		WillReturnRows(rows)

	class, err := repo.FindByKey(context.Background(), models.ClassKey{SchoolID: 1, Grade: 3, ClassIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, "c1", class.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryFindByKeyMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery("SELECT id, school_id, grade, class_index, created_at FROM classes").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByKey(context.Background(), models.ClassKey{SchoolID: 1, Grade: 3, ClassIndex: 1})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestClassRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("INSERT INTO classes").
		WithArgs(sqlmock.AnyArg(), int64(1), 3, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	class := &models.Class{SchoolID: 1, Grade: 3, ClassIndex: 1}
	require.NoError(t, repo.Create(context.Background(), class))
	assert.NotEmpty(t, class.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryCreateUniqueViolationPassthrough(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	pqErr := &pq.Error{Code: "23505", Constraint: "classes_school_grade_index_key"}
	mock.ExpectExec("INSERT INTO classes").WillReturnError(pqErr)

	err := repo.Create(context.Background(), &models.Class{SchoolID: 1, Grade: 3, ClassIndex: 1})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(sql.ErrNoRows))
	assert.False(t, IsUniqueViolation(nil))
}
