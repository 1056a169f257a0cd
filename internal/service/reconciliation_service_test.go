package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/normalize"
	"github.com/noah-isme/sma-roster-api/internal/repository"
	"github.com/noah-isme/sma-roster-api/pkg/config"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type mockReconStaffStore struct {
	existing []models.StaffRecord
	saveErr  error
	saved    *repository.StaffBatch
}

func (m *mockReconStaffStore) FindByHandles(_ context.Context, handles []string) ([]models.StaffRecord, error) {
	wanted := make(map[string]bool, len(handles))
	for _, h := range handles {
		wanted[h] = true
	}
	var out []models.StaffRecord
	for _, record := range m.existing {
		if wanted[record.Handle] {
			out = append(out, record)
		}
	}
	return out, nil
}

func (m *mockReconStaffStore) SaveBatch(_ context.Context, batch repository.StaffBatch) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = &batch
	return nil
}

// mockResolver resolves every tuple except those listed in failKeys.
type mockResolver struct {
	failKeys map[models.ClassKey]error
}

func (m *mockResolver) Resolve(_ context.Context, schoolID int64, rows []models.NormalizedRow) (map[models.ClassKey]*models.Class, map[models.ClassKey]error) {
	resolved := make(map[models.ClassKey]*models.Class)
	failed := make(map[models.ClassKey]error)
	for _, row := range rows {
		if !row.HasClassSignal {
			continue
		}
		key := models.ClassKey{SchoolID: schoolID, Grade: row.Grade, ClassIndex: row.ClassIndex}
		if err, ok := m.failKeys[key]; ok {
			failed[key] = err
			continue
		}
		resolved[key] = &models.Class{
			ID:         fmt.Sprintf("class-%d-%d", row.Grade, row.ClassIndex),
			SchoolID:   schoolID,
			Grade:      row.Grade,
			ClassIndex: row.ClassIndex,
		}
	}
	return resolved, failed
}

type mockMinter struct {
	genErr error
}

func (m *mockMinter) GeneratePassword() (string, error) {
	if m.genErr != nil {
		return "", m.genErr
	}
	return "pw123", nil
}

func (m *mockMinter) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

type mockCredNotifier struct {
	creds []models.NewCredential
}

func (m *mockCredNotifier) NotifyCredential(_ int64, cred models.NewCredential) {
	m.creds = append(m.creds, cred)
}

func newReconciler(staff *mockReconStaffStore, notifier *mockCredNotifier) *ReconciliationService {
	var n credentialNotifier
	if notifier != nil {
		n = notifier
	}
	return NewReconciliationService(
		normalize.New(nil, nil),
		staff,
		&mockResolver{},
		&mockMinter{},
		n,
		nil,
		nil,
		config.ImportConfig{MaxRows: 100, NormalizeWorkers: 2},
	)
}

func strPtr(s string) *string { return &s }

func TestReconcileCreatesNewRecord(t *testing.T) {
	staff := &mockReconStaffStore{}
	notifier := &mockCredNotifier{}
	svc := newReconciler(staff, notifier)

	rows := []models.ImportRow{{
		RowNumber:  2,
		Email:      "Dana@School.org ",
		FirstName:  "Dana",
		LastName:   "Cohen",
		Gender:     "f",
		Phone:      "0501234567",
		Grade:      "3",
		ClassIndex: "2",
	}}

	manifest, err := svc.Reconcile(context.Background(), 7, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.Created)
	assert.Equal(t, 0, manifest.Updated)
	require.Len(t, manifest.Rows, 1)
	assert.Equal(t, models.RowCreatedNew, manifest.Rows[0].Outcome)
	assert.Equal(t, "dana@school.org", manifest.Rows[0].Handle)

	require.Len(t, manifest.Credentials, 1)
	assert.Equal(t, "pw123", manifest.Credentials[0].Password)
	assert.Equal(t, "Dana Cohen", manifest.Credentials[0].FullName)
	assert.Equal(t, manifest.Credentials, notifier.creds)

	require.NotNil(t, staff.saved)
	require.Len(t, staff.saved.NewStaff, 1)
	record := staff.saved.NewStaff[0]
	assert.Equal(t, models.GenderFemale, record.Gender)
	require.NotNil(t, record.PasswordHash)
	assert.Equal(t, "hashed:pw123", *record.PasswordHash)
	require.Len(t, record.Affiliations, 1)
	assert.Equal(t, models.RoleTeacher, record.Affiliations[0].RoleID)
	assert.Equal(t, int64(7), record.Affiliations[0].SchoolID)
	require.Len(t, record.ClassAssignments, 1)
	assert.Equal(t, "class-3-2", record.ClassAssignments[0].ClassID)
}

func TestReconcileMatchedExistingIsIdempotent(t *testing.T) {
	staff := &mockReconStaffStore{existing: []models.StaffRecord{{
		ID:     "s1",
		Handle: "dana@school.org",
		Phone:  strPtr("0500000000"),
		Affiliations: []models.Affiliation{
			{SchoolID: 7, StaffID: "s1", RoleID: models.RoleTeacher},
		},
		ClassAssignments: []models.ClassAssignment{
			{StaffID: "s1", ClassID: "class-3-2", SchoolID: 7, Grade: 3, ClassIndex: 2},
		},
	}}}
	svc := newReconciler(staff, nil)

	rows := []models.ImportRow{{
		RowNumber:  2,
		Email:      "dana@school.org",
		FirstName:  "Dana",
		LastName:   "Cohen",
		Phone:      "0509999999",
		Grade:      "3",
		ClassIndex: "2",
	}}

	manifest, err := svc.Reconcile(context.Background(), 7, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.Updated)
	assert.Empty(t, manifest.Credentials)

	require.NotNil(t, staff.saved)
	assert.Empty(t, staff.saved.NewStaff)
	assert.Empty(t, staff.saved.Affiliations)
	assert.Empty(t, staff.saved.ClassAssignments)
	// Phone is backfill-only: an existing value is never overwritten.
	assert.Empty(t, staff.saved.PhoneBackfills)
}

func TestReconcileMatchedExistingAddsMissingEdges(t *testing.T) {
	staff := &mockReconStaffStore{existing: []models.StaffRecord{{
		ID:     "s1",
		Handle: "dana@school.org",
		Affiliations: []models.Affiliation{
			{SchoolID: 3, StaffID: "s1", RoleID: models.RoleTeacher},
		},
	}}}
	svc := newReconciler(staff, nil)

	rows := []models.ImportRow{{
		RowNumber:  2,
		Email:      "dana@school.org",
		Phone:      "0501234567",
		Grade:      "3",
		ClassIndex: "2",
	}}

	manifest, err := svc.Reconcile(context.Background(), 7, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.Updated)

	require.NotNil(t, staff.saved)
	require.Len(t, staff.saved.Affiliations, 1)
	assert.Equal(t, int64(7), staff.saved.Affiliations[0].SchoolID)
	require.Len(t, staff.saved.ClassAssignments, 1)
	assert.Equal(t, "class-3-2", staff.saved.ClassAssignments[0].ClassID)
	assert.Equal(t, "0501234567", staff.saved.PhoneBackfills["s1"])
}

func TestReconcileFoldsDuplicateHandleRows(t *testing.T) {
	staff := &mockReconStaffStore{}
	svc := newReconciler(staff, nil)

	rows := []models.ImportRow{
		{RowNumber: 2, Email: "dana@school.org", FirstName: "Dana", LastName: "Cohen", Grade: "3", ClassIndex: "2"},
		{RowNumber: 3, Email: "DANA@school.org", Grade: "4", ClassIndex: "1", Phone: "0501234567"},
	}

	manifest, err := svc.Reconcile(context.Background(), 7, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.Created)
	require.Len(t, manifest.Rows, 1)

	require.NotNil(t, staff.saved)
	require.Len(t, staff.saved.NewStaff, 1)
	record := staff.saved.NewStaff[0]
	assert.Len(t, record.ClassAssignments, 2)
	require.NotNil(t, record.Phone)
	assert.Equal(t, "0501234567", *record.Phone)
}

func TestReconcileConflictingNamesFlagged(t *testing.T) {
	staff := &mockReconStaffStore{}
	svc := newReconciler(staff, nil)

	rows := []models.ImportRow{
		{RowNumber: 2, Email: "dana@school.org", FirstName: "Dana", LastName: "Cohen"},
		{RowNumber: 3, Email: "dana@school.org", FirstName: "Noa", LastName: "Levi", Phone: "0507777777", Grade: "5", ClassIndex: "3"},
	}

	manifest, err := svc.Reconcile(context.Background(), 7, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.Created)
	require.Len(t, manifest.Failures, 1)
	assert.Equal(t, appErrors.ErrRowConflict.Code, manifest.Failures[0].Code)
	assert.Equal(t, 3, manifest.Failures[0].RowNumber)

	// The earlier row's identity wins and nothing from the conflicted row,
	// additive or otherwise, reaches the record.
	require.NotNil(t, staff.saved)
	record := staff.saved.NewStaff[0]
	assert.Equal(t, "Dana", record.FirstName)
	assert.Nil(t, record.Phone)
	assert.Empty(t, record.ClassAssignments)
}

func TestReconcileRowFailureDoesNotAbortBatch(t *testing.T) {
	staff := &mockReconStaffStore{}
	svc := newReconciler(staff, nil)

	rows := []models.ImportRow{
		{RowNumber: 2, Email: "dana@school.org", Grade: "3", ClassIndex: "2"},
		{RowNumber: 3, Email: "noa@school.org", Grade: "not-a-grade"},
	}

	manifest, err := svc.Reconcile(context.Background(), 7, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.Created)
	require.Len(t, manifest.Failures, 1)
	assert.Equal(t, appErrors.ErrInvalidGrade.Code, manifest.Failures[0].Code)
	assert.Equal(t, 3, manifest.Failures[0].RowNumber)
}

func TestReconcilePersistenceFailureAbortsBatch(t *testing.T) {
	staff := &mockReconStaffStore{saveErr: errors.New("connection reset")}
	svc := newReconciler(staff, nil)

	rows := []models.ImportRow{{RowNumber: 2, Email: "dana@school.org"}}

	_, err := svc.Reconcile(context.Background(), 7, rows)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrPersistence))
}

func TestReconcileRejectsEmptyBatch(t *testing.T) {
	svc := newReconciler(&mockReconStaffStore{}, nil)

	_, err := svc.Reconcile(context.Background(), 7, nil)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestReconcileEnforcesMaxRows(t *testing.T) {
	staff := &mockReconStaffStore{}
	svc := NewReconciliationService(
		normalize.New(nil, nil), staff, &mockResolver{}, &mockMinter{}, nil, nil, nil,
		config.ImportConfig{MaxRows: 1, NormalizeWorkers: 1},
	)

	rows := []models.ImportRow{
		{RowNumber: 2, Email: "a@school.org"},
		{RowNumber: 3, Email: "b@school.org"},
	}
	_, err := svc.Reconcile(context.Background(), 7, rows)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}
