package namesplit

import (
	"context"
	"strings"
)

// SplitResult carries the split name plus the usage cost charged by the
// collaborator. TokensUsed is zero for the heuristic path so callers can
// account for external usage explicitly instead of via a shared counter.
type SplitResult struct {
	FirstName  string
	LastName   string
	TokensUsed int
}

// Splitter splits a combined full name into first and last name.
type Splitter interface {
	Split(ctx context.Context, fullName string) (SplitResult, error)
}

// HeuristicSplitter performs a best-effort split on the last space. It never
// fails and serves as the fallback when no external splitter is configured or
// the external one errors.
type HeuristicSplitter struct{}

// NewHeuristicSplitter builds the fallback splitter.
func NewHeuristicSplitter() *HeuristicSplitter {
	return &HeuristicSplitter{}
}

// Split divides fullName at the last space; a single token becomes the first
// name with an empty last name.
func (h *HeuristicSplitter) Split(_ context.Context, fullName string) (SplitResult, error) {
	trimmed := strings.Join(strings.Fields(fullName), " ")
	if trimmed == "" {
		return SplitResult{}, nil
	}
	idx := strings.LastIndex(trimmed, " ")
	if idx < 0 {
		return SplitResult{FirstName: trimmed}, nil
	}
	return SplitResult{FirstName: trimmed[:idx], LastName: trimmed[idx+1:]}, nil
}
