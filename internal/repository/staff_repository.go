package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

// StaffBatch is the unit of atomicity for a reconciliation commit: brand new
// records with their owned relations, plus the incremental edges and phone
// backfills computed for matched records. Everything is applied in a single
// transaction; any failure rolls the whole batch back.
type StaffBatch struct {
	NewStaff         []models.StaffRecord
	Affiliations     []models.Affiliation
	ClassAssignments []models.ClassAssignment
	PhoneBackfills   map[string]string
}

// Empty reports whether the batch carries no writes at all.
func (b StaffBatch) Empty() bool {
	return len(b.NewStaff) == 0 && len(b.Affiliations) == 0 &&
		len(b.ClassAssignments) == 0 && len(b.PhoneBackfills) == 0
}

// StaffRepository manages persistence for staff records and their membership
// edges. The staff table carries a unique constraint on handle.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs a StaffRepository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// FindByHandles fetches all staff whose canonical handle is in handles, with
// affiliations, class assignments, and study group assignments attached. One
// batched round-trip per relation.
func (r *StaffRepository) FindByHandles(ctx context.Context, handles []string) ([]models.StaffRecord, error) {
	if len(handles) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT id, handle, first_name, last_name, gender, phone, password_hash, preferences, created_at, updated_at
		FROM staff WHERE handle IN (?)`, handles)
	if err != nil {
		return nil, fmt.Errorf("build handle query: %w", err)
	}
	query = r.db.Rebind(query)

	var records []models.StaffRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("find staff by handles: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	if err := r.attachRelations(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// FindByID fetches one staff record with relations attached. Returns
// sql.ErrNoRows when absent.
func (r *StaffRepository) FindByID(ctx context.Context, id string) (*models.StaffRecord, error) {
	const query = `SELECT id, handle, first_name, last_name, gender, phone, password_hash, preferences, created_at, updated_at
		FROM staff WHERE id = $1`
	var record models.StaffRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}

	records := []models.StaffRecord{record}
	if err := r.attachRelations(ctx, records); err != nil {
		return nil, err
	}
	return &records[0], nil
}

// HandleExists checks whether any staff record already owns the handle.
func (r *StaffRepository) HandleExists(ctx context.Context, handle string) (bool, error) {
	const query = `SELECT 1 FROM staff WHERE handle = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, handle); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check staff handle: %w", err)
	}
	return true, nil
}

// AffiliatedIDs returns the subset of staffIDs holding an affiliation to the
// school, used to pre-validate removal batches in one query.
func (r *StaffRepository) AffiliatedIDs(ctx context.Context, staffIDs []string, schoolID int64) ([]string, error) {
	if len(staffIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT staff_id FROM staff_schools WHERE school_id = ? AND staff_id IN (?)`, schoolID, staffIDs)
	if err != nil {
		return nil, fmt.Errorf("build affiliation query: %w", err)
	}
	query = r.db.Rebind(query)

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("find affiliated staff: %w", err)
	}
	return ids, nil
}

// SaveBatch applies one reconciliation commit transactionally.
func (r *StaffRepository) SaveBatch(ctx context.Context, batch StaffBatch) error {
	if batch.Empty() {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin staff batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for i := range batch.NewStaff {
		record := &batch.NewStaff[i]
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		record.CreatedAt = now
		record.UpdatedAt = now

		const insertStaff = `INSERT INTO staff (id, handle, first_name, last_name, gender, phone, password_hash, preferences, created_at, updated_at)
			VALUES (:id, :handle, :first_name, :last_name, :gender, :phone, :password_hash, :preferences, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertStaff, record); err != nil {
			return fmt.Errorf("insert staff %s: %w", record.Handle, err)
		}

		for _, aff := range record.Affiliations {
			if err := insertAffiliation(ctx, tx, models.Affiliation{SchoolID: aff.SchoolID, StaffID: record.ID, RoleID: aff.RoleID}); err != nil {
				return err
			}
		}
		for _, ca := range record.ClassAssignments {
			ca.StaffID = record.ID
			if err := insertClassAssignment(ctx, tx, ca); err != nil {
				return err
			}
		}
	}

	for _, aff := range batch.Affiliations {
		if err := insertAffiliation(ctx, tx, aff); err != nil {
			return err
		}
	}
	for _, ca := range batch.ClassAssignments {
		if err := insertClassAssignment(ctx, tx, ca); err != nil {
			return err
		}
	}

	for staffID, phone := range batch.PhoneBackfills {
		const backfill = `UPDATE staff SET phone = $1, updated_at = $2
			WHERE id = $3 AND (phone IS NULL OR phone = '')`
		if _, err := tx.ExecContext(ctx, backfill, phone, now, staffID); err != nil {
			return fmt.Errorf("backfill phone for %s: %w", staffID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit staff batch: %w", err)
	}
	return nil
}

// Delete removes the staff record and every owned relation.
func (r *StaffRepository) Delete(ctx context.Context, staffID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin staff delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	statements := []string{
		`DELETE FROM class_assignments WHERE staff_id = $1`,
		`DELETE FROM study_group_assignments WHERE staff_id = $1`,
		`DELETE FROM staff_schools WHERE staff_id = $1`,
		`DELETE FROM staff WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, staffID); err != nil {
			return fmt.Errorf("delete staff %s: %w", staffID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit staff delete: %w", err)
	}
	return nil
}

// UnlinkSchool removes only the relations scoped to one school: the
// affiliation plus class and study group assignments belonging to it.
// Relations in other schools are left untouched.
func (r *StaffRepository) UnlinkSchool(ctx context.Context, staffID string, schoolID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin staff unlink: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	statements := []string{
		`DELETE FROM class_assignments WHERE staff_id = $1 AND school_id = $2`,
		`DELETE FROM study_group_assignments WHERE staff_id = $1 AND school_id = $2`,
		`DELETE FROM staff_schools WHERE staff_id = $1 AND school_id = $2`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, staffID, schoolID); err != nil {
			return fmt.Errorf("unlink staff %s from school %d: %w", staffID, schoolID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit staff unlink: %w", err)
	}
	return nil
}

func insertAffiliation(ctx context.Context, tx *sqlx.Tx, aff models.Affiliation) error {
	const query = `INSERT INTO staff_schools (school_id, staff_id, role_id) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, query, aff.SchoolID, aff.StaffID, aff.RoleID); err != nil {
		return fmt.Errorf("insert affiliation (%d, %s): %w", aff.SchoolID, aff.StaffID, err)
	}
	return nil
}

func insertClassAssignment(ctx context.Context, tx *sqlx.Tx, ca models.ClassAssignment) error {
	const query = `INSERT INTO class_assignments (staff_id, class_id, school_id, grade, class_index)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, query, ca.StaffID, ca.ClassID, ca.SchoolID, ca.Grade, ca.ClassIndex); err != nil {
		return fmt.Errorf("insert class assignment (%s, %s): %w", ca.StaffID, ca.ClassID, err)
	}
	return nil
}

func (r *StaffRepository) attachRelations(ctx context.Context, records []models.StaffRecord) error {
	ids := make([]string, len(records))
	index := make(map[string]*models.StaffRecord, len(records))
	for i := range records {
		ids[i] = records[i].ID
		index[records[i].ID] = &records[i]
	}

	query, args, err := sqlx.In(`SELECT school_id, staff_id, role_id FROM staff_schools WHERE staff_id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("build affiliation query: %w", err)
	}
	var affiliations []models.Affiliation
	if err := r.db.SelectContext(ctx, &affiliations, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load affiliations: %w", err)
	}
	for _, aff := range affiliations {
		if record, ok := index[aff.StaffID]; ok {
			record.Affiliations = append(record.Affiliations, aff)
		}
	}

	query, args, err = sqlx.In(`SELECT staff_id, class_id, school_id, grade, class_index FROM class_assignments WHERE staff_id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("build assignment query: %w", err)
	}
	var assignments []models.ClassAssignment
	if err := r.db.SelectContext(ctx, &assignments, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load class assignments: %w", err)
	}
	for _, ca := range assignments {
		if record, ok := index[ca.StaffID]; ok {
			record.ClassAssignments = append(record.ClassAssignments, ca)
		}
	}

	query, args, err = sqlx.In(`SELECT staff_id, study_group_id, school_id FROM study_group_assignments WHERE staff_id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("build study group query: %w", err)
	}
	var groups []models.StudyGroupAssignment
	if err := r.db.SelectContext(ctx, &groups, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load study group assignments: %w", err)
	}
	for _, sg := range groups {
		if record, ok := index[sg.StaffID]; ok {
			record.StudyGroups = append(record.StudyGroups, sg)
		}
	}

	return nil
}
