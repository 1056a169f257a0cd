package models

import "time"

// Class is a school class keyed by (school, grade, class index). The triple is
// unique at the storage layer; concurrent creators race on that constraint.
type Class struct {
	ID         string    `db:"id" json:"id"`
	SchoolID   int64     `db:"school_id" json:"school_id"`
	Grade      int       `db:"grade" json:"grade"`
	ClassIndex int       `db:"class_index" json:"class_index"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ClassKey identifies a class tuple before it is resolved to a persisted id.
type ClassKey struct {
	SchoolID   int64
	Grade      int
	ClassIndex int
}

// Key returns the tuple for a class record.
func (c *Class) Key() ClassKey {
	return ClassKey{SchoolID: c.SchoolID, Grade: c.Grade, ClassIndex: c.ClassIndex}
}

// ClassAssignment links a staff member to a class. Grade, class index, and
// school are denormalized from the class row so merge and unlink decisions do
// not need an extra lookup.
type ClassAssignment struct {
	StaffID    string `db:"staff_id" json:"staff_id"`
	ClassID    string `db:"class_id" json:"class_id"`
	SchoolID   int64  `db:"school_id" json:"school_id"`
	Grade      int    `db:"grade" json:"grade"`
	ClassIndex int    `db:"class_index" json:"class_index"`
}

// StudyGroupAssignment links a staff member to a study group within a school.
type StudyGroupAssignment struct {
	StaffID      string `db:"staff_id" json:"staff_id"`
	StudyGroupID string `db:"study_group_id" json:"study_group_id"`
	SchoolID     int64  `db:"school_id" json:"school_id"`
}
