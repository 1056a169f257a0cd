package service

import (
	"fmt"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/pkg/export"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

// ExportService renders reconciliation manifests into downloadable credential
// sheets for distribution to new staff.
type ExportService struct {
	csv *export.CSVExporter
	pdf *export.PDFExporter
}

// NewExportService constructs an ExportService.
func NewExportService() *ExportService {
	return &ExportService{
		csv: export.NewCSVExporter(),
		pdf: export.NewPDFExporter(),
	}
}

func credentialDataset(manifest *models.ReconciliationManifest) export.Dataset {
	headers := []string{"Handle", "Full Name", "Initial Password"}
	rows := make([]map[string]string, 0, len(manifest.Credentials))
	for _, cred := range manifest.Credentials {
		rows = append(rows, map[string]string{
			"Handle":           cred.Handle,
			"Full Name":        cred.FullName,
			"Initial Password": cred.Password,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// CredentialSheet renders the new credentials of a manifest in the requested
// format ("csv" or "pdf"). Matched records never appear; only created ones
// carry credentials.
func (s *ExportService) CredentialSheet(manifest *models.ReconciliationManifest, format string) ([]byte, string, error) {
	dataset := credentialDataset(manifest)
	switch format {
	case "csv":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render credential csv")
		}
		return data, "text/csv", nil
	case "pdf":
		title := fmt.Sprintf("New Staff Credentials - School %d", manifest.SchoolID)
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render credential pdf")
		}
		return data, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
