package normalize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/namesplit"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type stubSplitter struct {
	result namesplit.SplitResult
	err    error
	calls  int
}

func (s *stubSplitter) Split(ctx context.Context, fullName string) (namesplit.SplitResult, error) {
	s.calls++
	return s.result, s.err
}

func TestCanonicalHandle(t *testing.T) {
	assert.Equal(t, "dana@school.org", CanonicalHandle("  Dana@School.ORG "))
	assert.Equal(t, "a@x", CanonicalHandle("A @ x"))
	assert.Empty(t, CanonicalHandle(" \t "))
}

func TestGenderMapping(t *testing.T) {
	assert.Equal(t, models.GenderFemale, Gender(" F "))
	assert.Equal(t, models.GenderMale, Gender("male"))
	assert.Equal(t, models.GenderFemale, Gender("נקבה"))
	assert.Equal(t, models.GenderUnspecified, Gender("prefer not to say"))
	assert.Equal(t, models.GenderUnspecified, Gender(""))
}

func TestParseGradeClassSeparateFields(t *testing.T) {
	grade, classIndex, hasSignal, err := ParseGradeClass("3", "1")
	require.NoError(t, err)
	assert.True(t, hasSignal)
	assert.Equal(t, 3, grade)
	assert.Equal(t, 1, classIndex)
}

func TestParseGradeClassCombinedField(t *testing.T) {
	grade, classIndex, hasSignal, err := ParseGradeClass("3-2", "")
	require.NoError(t, err)
	assert.True(t, hasSignal)
	assert.Equal(t, 3, grade)
	assert.Equal(t, 2, classIndex)
}

func TestParseGradeClassHebrewLabel(t *testing.T) {
	grade, classIndex, _, err := ParseGradeClass("ג2", "")
	require.NoError(t, err)
	assert.Equal(t, 3, grade)
	assert.Equal(t, 2, classIndex)

	grade, classIndex, _, err = ParseGradeClass("יב", "4")
	require.NoError(t, err)
	assert.Equal(t, 12, grade)
	assert.Equal(t, 4, classIndex)
}

func TestParseGradeClassArabicIndicDigits(t *testing.T) {
	grade, classIndex, _, err := ParseGradeClass("٣", "١")
	require.NoError(t, err)
	assert.Equal(t, 3, grade)
	assert.Equal(t, 1, classIndex)
}

func TestParseGradeClassNoSignal(t *testing.T) {
	_, _, hasSignal, err := ParseGradeClass("", "  ")
	require.NoError(t, err)
	assert.False(t, hasSignal)
}

func TestParseGradeClassInvalid(t *testing.T) {
	cases := map[string][2]string{
		"unknown label":   {"קק", "1"},
		"no signal chars": {"??", ""},
		"out of range":    {"13", "1"},
		"missing index":   {"3", ""},
	}
	for name, c := range cases {
		_, _, hasSignal, err := ParseGradeClass(c[0], c[1])
		require.Error(t, err, name)
		assert.True(t, hasSignal, name)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidGrade), name)
	}
}

func TestNormalizeSplitsFullName(t *testing.T) {
	splitter := &stubSplitter{result: namesplit.SplitResult{FirstName: "Dana", LastName: "Cohen", TokensUsed: 42}}
	n := New(splitter, zap.NewNop())

	row, err := n.Normalize(context.Background(), models.ImportRow{
		RowNumber:  1,
		FullName:   "Dana Cohen",
		Email:      "Dana@School.org",
		Gender:     "F",
		Grade:      "3",
		ClassIndex: "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "dana@school.org", row.Handle)
	assert.Equal(t, "Dana", row.FirstName)
	assert.Equal(t, "Cohen", row.LastName)
	assert.Equal(t, 42, row.SplitterTokens)
	assert.Equal(t, 1, splitter.calls)
}

func TestNormalizeSplitterFailureFallsBack(t *testing.T) {
	splitter := &stubSplitter{err: errors.New("quota exceeded")}
	n := New(splitter, zap.NewNop())

	row, err := n.Normalize(context.Background(), models.ImportRow{
		FullName: "Dana Cohen",
		Email:    "dana@school.org",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana", row.FirstName)
	assert.Equal(t, "Cohen", row.LastName)
	assert.Zero(t, row.SplitterTokens)
}

func TestNormalizeKeepsSuppliedNames(t *testing.T) {
	splitter := &stubSplitter{}
	n := New(splitter, zap.NewNop())

	row, err := n.Normalize(context.Background(), models.ImportRow{
		FirstName: "Dana",
		LastName:  "Cohen",
		FullName:  "ignored",
		Email:     "dana@school.org",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana", row.FirstName)
	assert.Zero(t, splitter.calls)
}

func TestNormalizeMissingHandle(t *testing.T) {
	n := New(nil, zap.NewNop())

	_, err := n.Normalize(context.Background(), models.ImportRow{FirstName: "Dana"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestNormalizeNoClassSignal(t *testing.T) {
	n := New(nil, zap.NewNop())

	row, err := n.Normalize(context.Background(), models.ImportRow{Email: "dana@school.org"})
	require.NoError(t, err)
	assert.False(t, row.HasClassSignal)
}
