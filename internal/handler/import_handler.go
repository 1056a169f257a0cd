package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/roster"
	"github.com/noah-isme/sma-roster-api/internal/service"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/response"
	"github.com/noah-isme/sma-roster-api/pkg/storage"
)

type rosterReconciler interface {
	Reconcile(ctx context.Context, schoolID int64, rows []models.ImportRow) (*models.ReconciliationManifest, error)
}

type handleSynthesizer interface {
	SyntheticHandle(ctx context.Context) (string, error)
}

// ImportHandler wires the roster reconciliation pipeline to HTTP routes.
type ImportHandler struct {
	reconciler  rosterReconciler
	exports     *service.ExportService
	credentials handleSynthesizer
	archive     *storage.Archive
	signer      *storage.SignedURLSigner
}

// NewImportHandler constructs a new ImportHandler. credentials may be nil,
// rejecting provider rows without a contact identifier; archive and signer may
// be nil, disabling sheet archival.
func NewImportHandler(reconciler rosterReconciler, exports *service.ExportService, credentials handleSynthesizer, archive *storage.Archive, signer *storage.SignedURLSigner) *ImportHandler {
	return &ImportHandler{reconciler: reconciler, exports: exports, credentials: credentials, archive: archive, signer: signer}
}

// ImportRowsRequest is the payload for a provider-feed import.
type ImportRowsRequest struct {
	Rows []models.ImportRow `json:"rows" binding:"required"`
}

// UploadSheet godoc
// @Summary Import a staff roster from an uploaded spreadsheet
// @Tags Staff
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Roster sheet (.xlsx)"
// @Param format query string false "Credential sheet format (csv/pdf); omit for JSON manifest"
// @Success 200 {object} response.Envelope
// @Router /staff/import [post]
func (h *ImportHandler) UploadSheet(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "roster sheet missing from upload"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "cannot open uploaded sheet"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "cannot read uploaded sheet"))
		return
	}

	meta := h.archiveSheet(claims.SchoolID, fileHeader.Filename, content)

	rows, err := roster.ParseSheet(bytes.NewReader(content))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "cannot parse roster sheet"))
		return
	}

	h.reconcile(c, claims.SchoolID, rows, meta)
}

// ImportRows godoc
// @Summary Import staff from a JSON row feed
// @Tags Staff
// @Accept json
// @Produce json
// @Param payload body ImportRowsRequest true "Roster rows"
// @Param format query string false "Credential sheet format (csv/pdf); omit for JSON manifest"
// @Success 200 {object} response.Envelope
// @Router /staff/import/rows [post]
func (h *ImportHandler) ImportRows(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req ImportRowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import payload"))
		return
	}
	for i := range req.Rows {
		if req.Rows[i].RowNumber == 0 {
			req.Rows[i].RowNumber = i + 1
		}
		// Provider feeds may carry staff without a contact identifier; those
		// rows get a synthetic handle instead of being rejected.
		if strings.TrimSpace(req.Rows[i].Email) != "" || h.credentials == nil {
			continue
		}
		handle, err := h.credentials.SyntheticHandle(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		req.Rows[i].Email = handle
	}

	h.reconcile(c, claims.SchoolID, req.Rows, nil)
}

// DownloadArchive godoc
// @Summary Download an archived roster sheet by signed token
// @Tags Staff
// @Produce application/octet-stream
// @Param token query string true "Signed archive token"
// @Success 200 {file} binary
// @Router /staff/import/archive [get]
func (h *ImportHandler) DownloadArchive(c *gin.Context) {
	if h.signer == nil || h.archive == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "sheet archival is disabled"))
		return
	}

	_, relPath, _, err := h.signer.Parse(c.Query("token"), false)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, http.StatusUnauthorized, "invalid archive token"))
		return
	}

	file, err := h.archive.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "archived sheet not found"))
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(relPath)))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

// archiveSheet stores the raw upload for audit and returns response metadata
// carrying the signed download token. Archival failures are non-fatal; the
// import proceeds without a token.
func (h *ImportHandler) archiveSheet(schoolID int64, filename string, content []byte) map[string]interface{} {
	if h.archive == nil || h.signer == nil {
		return nil
	}

	batchID := uuid.NewString()
	relPath := fmt.Sprintf("%d/%s-%s", schoolID, batchID, filepath.Base(filename))
	if _, err := h.archive.Save(relPath, content); err != nil {
		return nil
	}
	token, expiresAt, err := h.signer.Generate(batchID, relPath)
	if err != nil {
		return nil
	}
	return map[string]interface{}{
		"archive_token":   token,
		"archive_expires": expiresAt,
	}
}

func (h *ImportHandler) reconcile(c *gin.Context, schoolID int64, rows []models.ImportRow, meta map[string]interface{}) {
	manifest, err := h.reconciler.Reconcile(c.Request.Context(), schoolID, rows)
	if err != nil {
		response.Error(c, err)
		return
	}

	if format := c.Query("format"); format != "" {
		data, contentType, err := h.exports.CredentialSheet(manifest, format)
		if err != nil {
			response.Error(c, err)
			return
		}
		filename := fmt.Sprintf("credentials-%d.%s", manifest.SchoolID, format)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, contentType, data)
		return
	}

	response.JSON(c, http.StatusOK, manifest, meta)
}
