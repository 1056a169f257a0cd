package models

// RemovalOutcome describes how a staff/school association was removed.
type RemovalOutcome string

const (
	// RemovalHardDeleted means the staff record and every owned relation
	// were deleted: the school was their only affiliation and no historical
	// reference points at them anywhere.
	RemovalHardDeleted RemovalOutcome = "hard_deleted"
	// RemovalSoftUnlinked means only the relations scoped to the requesting
	// school were removed.
	RemovalSoftUnlinked RemovalOutcome = "soft_unlinked"
)

// RemovalResult reports the outcome for one staff member.
type RemovalResult struct {
	StaffID string         `json:"staff_id"`
	Outcome RemovalOutcome `json:"outcome"`
}

// RemovalFailure reports a staff member that could not be removed.
type RemovalFailure struct {
	StaffID string `json:"staff_id"`
	Reason  string `json:"reason"`
}

// RemovalBatchResult partitions a removal batch. Order is not significant;
// entries are keyed by staff id.
type RemovalBatchResult struct {
	Succeeded []RemovalResult  `json:"succeeded"`
	Failed    []RemovalFailure `json:"failed"`
}
