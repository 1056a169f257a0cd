package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roster-api/internal/middleware"
	"github.com/noah-isme/sma-roster-api/internal/models"
)

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin", SchoolID: 7, Role: models.RoleNameAdmin}
}

func TestStaffHandlerRemoveBatchMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStaffHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/staff", bytes.NewReader([]byte(`{"staff_ids":["s1"]}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.RemoveBatch(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStaffHandlerRemoveBatchInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStaffHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/staff", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.RemoveBatch(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportHandlerRowsMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewImportHandler(nil, nil, nil, nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/staff/import/rows", bytes.NewReader([]byte(`{"rows":[]}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.ImportRows(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

type stubReconciler struct {
	rows []models.ImportRow
}

func (s *stubReconciler) Reconcile(_ context.Context, schoolID int64, rows []models.ImportRow) (*models.ReconciliationManifest, error) {
	s.rows = rows
	return &models.ReconciliationManifest{SchoolID: schoolID}, nil
}

type stubSynthesizer struct {
	minted int
}

func (s *stubSynthesizer) SyntheticHandle(context.Context) (string, error) {
	s.minted++
	return fmt.Sprintf("idm%04d", s.minted), nil
}

func TestImportHandlerRowsSynthesizesMissingHandle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reconciler := &stubReconciler{}
	synthesizer := &stubSynthesizer{}
	handler := NewImportHandler(reconciler, nil, synthesizer, nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := `{"rows":[{"first_name":"Dana","last_name":"Cohen"},{"email":"noa@school.org"}]}`
	req, _ := http.NewRequest(http.MethodPost, "/staff/import/rows", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.ImportRows(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, reconciler.rows, 2)
	assert.Equal(t, "idm0001", reconciler.rows[0].Email)
	assert.Equal(t, "noa@school.org", reconciler.rows[1].Email)
	assert.Equal(t, 1, synthesizer.minted)
}

func TestImportHandlerUploadMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewImportHandler(nil, nil, nil, nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/staff/import", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.UploadSheet(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
