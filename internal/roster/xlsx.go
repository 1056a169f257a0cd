package roster

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

// Column keys recognized in the header row of an uploaded roster sheet.
const (
	colFirstName  = "first_name"
	colLastName   = "last_name"
	colFullName   = "full_name"
	colEmail      = "email"
	colGender     = "gender"
	colPhone      = "phone"
	colGrade      = "grade"
	colClassIndex = "class_index"
)

// headerAliases maps the header labels seen in real sheets to column keys.
// Matching is case-insensitive on the collapsed label.
var headerAliases = map[string]string{
	"first name":   colFirstName,
	"firstname":    colFirstName,
	"last name":    colLastName,
	"lastname":     colLastName,
	"surname":      colLastName,
	"full name":    colFullName,
	"fullname":     colFullName,
	"name":         colFullName,
	"email":        colEmail,
	"e-mail":       colEmail,
	"username":     colEmail,
	"gender":       colGender,
	"sex":          colGender,
	"phone":        colPhone,
	"phone number": colPhone,
	"mobile":       colPhone,
	"grade":        colGrade,
	"class":        colClassIndex,
	"class number": colClassIndex,
	"class index":  colClassIndex,
}

// ParseSheet reads the first worksheet of an xlsx document into import rows.
// The first non-empty row must be a header row; unknown columns are ignored.
// RowNumber on each ImportRow is the 1-based sheet row for error attribution.
func ParseSheet(r io.Reader) ([]models.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open roster sheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("roster sheet has no worksheets")
	}

	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read roster sheet: %w", err)
	}

	headerIdx := -1
	var columns map[int]string
	for i, row := range cells {
		if isEmptyRow(row) {
			continue
		}
		columns = mapHeader(row)
		headerIdx = i
		break
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("roster sheet is empty")
	}
	if _, ok := columnPresent(columns, colEmail); !ok {
		return nil, fmt.Errorf("roster sheet has no email column")
	}

	var rows []models.ImportRow
	for i := headerIdx + 1; i < len(cells); i++ {
		if isEmptyRow(cells[i]) {
			continue
		}
		row := models.ImportRow{RowNumber: i + 1}
		for col, key := range columns {
			if col >= len(cells[i]) {
				continue
			}
			value := strings.TrimSpace(cells[i][col])
			switch key {
			case colFirstName:
				row.FirstName = value
			case colLastName:
				row.LastName = value
			case colFullName:
				row.FullName = value
			case colEmail:
				row.Email = value
			case colGender:
				row.Gender = value
			case colPhone:
				row.Phone = value
			case colGrade:
				row.Grade = value
			case colClassIndex:
				row.ClassIndex = value
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func mapHeader(header []string) map[int]string {
	columns := make(map[int]string, len(header))
	for i, label := range header {
		normalized := strings.ToLower(strings.Join(strings.Fields(label), " "))
		if key, ok := headerAliases[normalized]; ok {
			columns[i] = key
		}
	}
	return columns
}

func columnPresent(columns map[int]string, key string) (int, bool) {
	for col, k := range columns {
		if k == key {
			return col, true
		}
	}
	return 0, false
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
