package normalize

import (
	"context"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/namesplit"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

// Normalizer turns raw import rows into canonical, typed rows. Normalization
// is side-effect free; the only external call is the optional name splitter,
// whose failure degrades to a heuristic split rather than failing the row.
type Normalizer struct {
	splitter  namesplit.Splitter
	heuristic *namesplit.HeuristicSplitter
	validate  *validator.Validate
	logger    *zap.Logger
}

// New constructs a Normalizer. splitter may be nil, in which case all full
// names are split heuristically.
func New(splitter namesplit.Splitter, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		splitter:  splitter,
		heuristic: namesplit.NewHeuristicSplitter(),
		validate:  validator.New(),
		logger:    logger,
	}
}

// Normalize validates and canonicalizes one row. Row-level problems return a
// typed error attributed to the row; they never abort sibling rows.
func (n *Normalizer) Normalize(ctx context.Context, row models.ImportRow) (models.NormalizedRow, error) {
	out := models.NormalizedRow{RowNumber: row.RowNumber}

	if err := n.validate.Struct(row); err != nil {
		return out, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "row failed validation")
	}

	out.Handle = CanonicalHandle(row.Email)
	if out.Handle == "" {
		return out, appErrors.Clone(appErrors.ErrValidation, "row has no contact handle")
	}

	firstName := strings.TrimSpace(row.FirstName)
	lastName := strings.TrimSpace(row.LastName)
	fullName := strings.TrimSpace(row.FullName)
	if (firstName == "" || lastName == "") && fullName != "" {
		split, tokens := n.splitName(ctx, fullName)
		if firstName == "" {
			firstName = split.FirstName
		}
		if lastName == "" {
			lastName = split.LastName
		}
		out.SplitterTokens = tokens
	}
	out.FirstName = firstName
	out.LastName = lastName

	out.Gender = Gender(row.Gender)
	out.Phone = strings.TrimSpace(row.Phone)

	grade, classIndex, hasSignal, err := ParseGradeClass(row.Grade, row.ClassIndex)
	if err != nil {
		return out, err
	}
	out.HasClassSignal = hasSignal
	out.Grade = grade
	out.ClassIndex = classIndex

	return out, nil
}

func (n *Normalizer) splitName(ctx context.Context, fullName string) (namesplit.SplitResult, int) {
	if n.splitter != nil {
		result, err := n.splitter.Split(ctx, fullName)
		if err == nil {
			return result, result.TokensUsed
		}
		n.logger.Warn("name splitter unavailable, using heuristic", zap.Error(err))
	}
	result, _ := n.heuristic.Split(ctx, fullName)
	return result, 0
}

// CanonicalHandle lowercases the contact identifier and strips all whitespace
// so rows differing only in casing or incidental spacing dedupe to the same
// person.
func CanonicalHandle(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Gender maps free text into the closed enumeration. Unrecognized values map
// to unspecified; a gender value never rejects a row.
func Gender(raw string) models.Gender {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "m", "male", "man", "boy", "ז", "זכר":
		return models.GenderMale
	case "f", "female", "woman", "girl", "נ", "נקבה":
		return models.GenderFemale
	default:
		return models.GenderUnspecified
	}
}
