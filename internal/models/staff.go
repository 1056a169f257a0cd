package models

import "time"

// Gender is the closed enumeration import rows are normalized into.
type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderUnspecified Gender = "unspecified"
)

// RoleID identifies the role a staff member holds within one school.
type RoleID int

const (
	RoleTeacher RoleID = 1
	RoleAdmin   RoleID = 2
)

// StaffRecord represents a teacher or admin, with their membership edges
// loaded as owned child collections. Relations in other schools are always
// present on a loaded record so merge and unlink logic can filter by school.
type StaffRecord struct {
	ID        string    `db:"id" json:"id"`
	Handle    string    `db:"handle" json:"handle"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Gender    Gender    `db:"gender" json:"gender"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	// PasswordHash is nil for externally authenticated accounts.
	PasswordHash *string   `db:"password_hash" json:"-"`
	Preferences  *string   `db:"preferences" json:"preferences,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	Affiliations     []Affiliation          `db:"-" json:"affiliations,omitempty"`
	ClassAssignments []ClassAssignment      `db:"-" json:"class_assignments,omitempty"`
	StudyGroups      []StudyGroupAssignment `db:"-" json:"study_groups,omitempty"`
}

// Affiliation is the membership edge linking a staff member to one school.
type Affiliation struct {
	SchoolID int64  `db:"school_id" json:"school_id"`
	StaffID  string `db:"staff_id" json:"staff_id"`
	RoleID   RoleID `db:"role_id" json:"role_id"`
}

// AffiliatedWith reports whether the record holds any affiliation to the school.
func (s *StaffRecord) AffiliatedWith(schoolID int64) bool {
	for _, a := range s.Affiliations {
		if a.SchoolID == schoolID {
			return true
		}
	}
	return false
}

// HasRoleAt reports whether the record holds the given role at the school.
func (s *StaffRecord) HasRoleAt(schoolID int64, role RoleID) bool {
	for _, a := range s.Affiliations {
		if a.SchoolID == schoolID && a.RoleID == role {
			return true
		}
	}
	return false
}

// HasAssignment reports whether the record already covers the (grade, classIndex)
// pairing within the school.
func (s *StaffRecord) HasAssignment(schoolID int64, grade, classIndex int) bool {
	for _, ca := range s.ClassAssignments {
		if ca.SchoolID == schoolID && ca.Grade == grade && ca.ClassIndex == classIndex {
			return true
		}
	}
	return false
}

// FullName returns the display name used in notifications and exports.
func (s *StaffRecord) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}
