package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

func staffColumns() []string {
	return []string{"id", "handle", "first_name", "last_name", "gender", "phone", "password_hash", "preferences", "created_at", "updated_at"}
}

func TestStaffRepositoryFindByHandles(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT id, handle, first_name, last_name, gender, phone, password_hash, preferences, created_at, updated_at").
		WillReturnRows(sqlmock.NewRows(staffColumns()).
			AddRow("s1", "dana@school.org", "Dana", "Cohen", "female", nil, nil, nil, now, now))
	mock.ExpectQuery("SELECT school_id, staff_id, role_id FROM staff_schools").
		WillReturnRows(sqlmock.NewRows([]string{"school_id", "staff_id", "role_id"}).
			AddRow(int64(1), "s1", int(models.RoleTeacher)).
			AddRow(int64(2), "s1", int(models.RoleAdmin)))
	mock.ExpectQuery("SELECT staff_id, class_id, school_id, grade, class_index FROM class_assignments").
		WillReturnRows(sqlmock.NewRows([]string{"staff_id", "class_id", "school_id", "grade", "class_index"}).
			AddRow("s1", "c1", int64(1), 3, 1))
	mock.ExpectQuery("SELECT staff_id, study_group_id, school_id FROM study_group_assignments").
		WillReturnRows(sqlmock.NewRows([]string{"staff_id", "study_group_id", "school_id"}))

	records, err := repo.FindByHandles(context.Background(), []string{"dana@school.org"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Len(t, records[0].Affiliations, 2)
	require.Len(t, records[0].ClassAssignments, 1)
	assert.Equal(t, 3, records[0].ClassAssignments[0].Grade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryFindByHandlesEmpty(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	records, err := repo.FindByHandles(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestStaffRepositorySaveBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	batch := StaffBatch{
		NewStaff: []models.StaffRecord{{
			Handle:    "dana@school.org",
			FirstName: "Dana",
			LastName:  "Cohen",
			Gender:    models.GenderFemale,
			Affiliations: []models.Affiliation{
				{SchoolID: 1, RoleID: models.RoleTeacher},
			},
			ClassAssignments: []models.ClassAssignment{
				{ClassID: "c1", SchoolID: 1, Grade: 3, ClassIndex: 1},
			},
		}},
		Affiliations: []models.Affiliation{
			{SchoolID: 1, StaffID: "existing", RoleID: models.RoleTeacher},
		},
		PhoneBackfills: map[string]string{"existing": "0501111111"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO staff ").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO staff_schools").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO class_assignments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO staff_schools").
		WithArgs(int64(1), "existing", int(models.RoleTeacher)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE staff SET phone").
		WithArgs("0501111111", sqlmock.AnyArg(), "existing").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveBatch(context.Background(), batch))
	assert.NotEmpty(t, batch.NewStaff[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositorySaveBatchRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO staff ").WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.SaveBatch(context.Background(), StaffBatch{
		NewStaff: []models.StaffRecord{{Handle: "dana@school.org"}},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositorySaveBatchEmptyNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	require.NoError(t, repo.SaveBatch(context.Background(), StaffBatch{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM class_assignments WHERE staff_id").WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM study_group_assignments WHERE staff_id").WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM staff_schools WHERE staff_id").WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM staff WHERE id").WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryUnlinkSchool(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM class_assignments WHERE staff_id .+ AND school_id").
		WithArgs("s1", int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM study_group_assignments WHERE staff_id .+ AND school_id").
		WithArgs("s1", int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM staff_schools WHERE staff_id .+ AND school_id").
		WithArgs("s1", int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UnlinkSchool(context.Background(), "s1", 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}
