package models

// ImportRow is one raw row of an uploaded roster sheet or a provider feed.
// All fields are free text as supplied by the source.
type ImportRow struct {
	RowNumber  int    `json:"row_number"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	FullName   string `json:"full_name"`
	Email      string `json:"email" validate:"required"`
	Gender     string `json:"gender"`
	Phone      string `json:"phone"`
	Grade      string `json:"grade"`
	ClassIndex string `json:"class_index"`
}

// NormalizedRow is the typed form of an ImportRow after identity normalization.
type NormalizedRow struct {
	RowNumber int
	Handle    string
	FirstName string
	LastName  string
	Gender    Gender
	Phone     string

	// HasClassSignal distinguishes "no grade supplied" from grade zero.
	HasClassSignal bool
	Grade          int
	ClassIndex     int

	// SplitterTokens is the usage cost charged by the name-splitting
	// collaborator for this row, zero when it was not consulted.
	SplitterTokens int
}

// RowOutcome describes how one logical import row was resolved.
type RowOutcome string

const (
	RowCreatedNew      RowOutcome = "created_new"
	RowMatchedExisting RowOutcome = "matched_existing"
)

// RowResult records the resolution of one logical person in a batch.
type RowResult struct {
	RowNumber int        `json:"row_number"`
	Handle    string     `json:"handle"`
	StaffID   string     `json:"staff_id"`
	Outcome   RowOutcome `json:"outcome"`
}

// RowFailure records a row excluded from the batch with its reason.
type RowFailure struct {
	RowNumber int    `json:"row_number"`
	Handle    string `json:"handle,omitempty"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
}

// NewCredential carries the generated secret for a created-new record. It is
// only ever emitted for created records, never for matched ones.
type NewCredential struct {
	StaffID  string `json:"staff_id"`
	Handle   string `json:"handle"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// ReconciliationManifest is the result of one import batch.
type ReconciliationManifest struct {
	SchoolID       int64           `json:"school_id"`
	Created        int             `json:"created"`
	Updated        int             `json:"updated"`
	Rows           []RowResult     `json:"rows"`
	Failures       []RowFailure    `json:"failures,omitempty"`
	Credentials    []NewCredential `json:"credentials,omitempty"`
	SplitterTokens int             `json:"splitter_tokens"`
}
