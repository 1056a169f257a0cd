package normalize

import (
	"strings"
	"unicode"

	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

const (
	minGrade = 1
	maxGrade = 12
)

// hebrewGrades maps letter-grade labels to their numeric grade, the labeling
// convention of the legacy roster sheets.
var hebrewGrades = map[string]int{
	"א": 1, "ב": 2, "ג": 3, "ד": 4, "ה": 5, "ו": 6,
	"ז": 7, "ח": 8, "ט": 9, "י": 10, "יא": 11, "יב": 12,
}

// ParseGradeClass extracts a typed (grade, classIndex) pair from free-text
// grade and class fields. The grade field may carry both values combined
// ("3-1", "ג2"); the class field may carry the index separately. Rows with no
// signal in either field are valid and return hasSignal=false. A signal that
// cannot be parsed returns ErrInvalidGrade.
func ParseGradeClass(rawGrade, rawClassIndex string) (grade, classIndex int, hasSignal bool, err error) {
	rawGrade = strings.TrimSpace(rawGrade)
	rawClassIndex = strings.TrimSpace(rawClassIndex)
	if rawGrade == "" && rawClassIndex == "" {
		return 0, 0, false, nil
	}

	numbers := extractNumbers(rawGrade)
	letters := extractLetters(rawGrade)

	switch {
	case letters != "":
		g, ok := hebrewGrades[letters]
		if !ok {
			return 0, 0, true, appErrors.Clone(appErrors.ErrInvalidGrade, "unrecognized grade label: "+letters)
		}
		grade = g
		if len(numbers) > 0 {
			classIndex = numbers[0]
		}
	case len(numbers) > 0:
		grade = numbers[0]
		if len(numbers) > 1 {
			classIndex = numbers[1]
		}
	default:
		return 0, 0, true, appErrors.Clone(appErrors.ErrInvalidGrade, "grade field carries no parseable signal")
	}

	if classIndex == 0 {
		idxNumbers := extractNumbers(rawClassIndex)
		if len(idxNumbers) > 0 {
			classIndex = idxNumbers[0]
		}
	}

	if grade < minGrade || grade > maxGrade {
		return 0, 0, true, appErrors.Clone(appErrors.ErrInvalidGrade, "grade out of range")
	}
	if classIndex <= 0 {
		return 0, 0, true, appErrors.Clone(appErrors.ErrInvalidGrade, "missing or invalid class index")
	}

	return grade, classIndex, true, nil
}

// extractNumbers returns every run of decimal digits in s as an integer,
// accepting any Unicode decimal digit script (Arabic-Indic, Devanagari, Thai
// and friends), not just ASCII.
func extractNumbers(s string) []int {
	var numbers []int
	current := -1
	for _, r := range s {
		if d := digitValue(r); d >= 0 {
			if current < 0 {
				current = 0
			}
			current = current*10 + d
			continue
		}
		if current >= 0 {
			numbers = append(numbers, current)
			current = -1
		}
	}
	if current >= 0 {
		numbers = append(numbers, current)
	}
	return numbers
}

// digitValue returns the numeric value of any Unicode decimal digit rune, or
// -1 when r is not a decimal digit.
func digitValue(r rune) int {
	if !unicode.IsDigit(r) {
		return -1
	}
	// Decimal digit blocks are contiguous runs of ten starting at their zero.
	for _, zero := range digitZeros {
		if r >= zero && r <= zero+9 {
			return int(r - zero)
		}
	}
	return -1
}

// digitZeros lists the zero code point of the decimal digit scripts the
// importer accepts.
var digitZeros = []rune{
	'0',      // ASCII
	'٠', // Arabic-Indic
	'۰', // Extended Arabic-Indic
	'०', // Devanagari
	'๐', // Thai
}

// extractLetters returns the first run of Hebrew letters in s, the script the
// legacy sheets use for letter grades.
func extractLetters(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Hebrew, r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}
