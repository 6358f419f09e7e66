package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietdrop/quietdrop-api/internal/models"
	appErrors "github.com/quietdrop/quietdrop-api/pkg/errors"
)

type mockAdminService struct {
	listRes *models.ExpiredGrantsResponse
	listErr error

	extendReq models.AdminExtendRequest
	extendRes *models.AdminExtendResponse
	extendErr error

	exportFormat string
	exportBytes  []byte
	exportType   string
	exportErr    error

	listCalled   bool
	extendCalled bool
}

func (m *mockAdminService) ListExpired(_ context.Context) (*models.ExpiredGrantsResponse, error) {
	m.listCalled = true
	return m.listRes, m.listErr
}

func (m *mockAdminService) Extend(_ context.Context, req models.AdminExtendRequest) (*models.AdminExtendResponse, error) {
	m.extendCalled = true
	m.extendReq = req
	return m.extendRes, m.extendErr
}

func (m *mockAdminService) ExportExpired(_ context.Context, format string) ([]byte, string, error) {
	m.exportFormat = format
	return m.exportBytes, m.exportType, m.exportErr
}

func newAdminRouter(svc *mockAdminService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAdminHandler(svc)
	r := gin.New()
	r.POST("/admin/extend", h.Extend)
	r.GET("/admin/extend/export", h.Export)
	return r
}

func TestAdminExtendEmptyBodyLists(t *testing.T) {
	svc := &mockAdminService{listRes: &models.ExpiredGrantsResponse{
		ExpiredGrants: []models.ExpiredGrant{{
			GrantID:        "grant-1",
			SecretID:       "sec-1",
			ShortID:        "Ab3dEf9h",
			Email:          "a@x.com",
			ExpiresAt:      time.Date(2026, 2, 28, 9, 15, 0, 0, time.UTC),
			ExpiresAtHuman: "Feb 28, 2026 09:15 UTC",
		}},
	}}
	r := newAdminRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/extend", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.listCalled)
	assert.False(t, svc.extendCalled)
	assert.Contains(t, w.Body.String(), `"expiredGrants"`)
	assert.Contains(t, w.Body.String(), "Feb 28, 2026 09:15 UTC")
}

func TestAdminExtendWithBodyExtends(t *testing.T) {
	expiresAt := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	svc := &mockAdminService{extendRes: &models.AdminExtendResponse{
		Message:       "expiration extended for a@x.com",
		ExpiresAt:     expiresAt,
		RemainingTime: "2 days",
	}}
	r := newAdminRouter(svc)

	body := bytes.NewBufferString(`{"email":"a@x.com","secretId":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","expiresDays":2}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/extend", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.extendCalled)
	assert.False(t, svc.listCalled)
	assert.Equal(t, "a@x.com", svc.extendReq.Email)
	assert.Equal(t, 2, svc.extendReq.ExpiresDays)
	assert.Contains(t, w.Body.String(), `"remainingTime":"2 days"`)
}

func TestAdminExtendChunkedBodyExtends(t *testing.T) {
	svc := &mockAdminService{extendRes: &models.AdminExtendResponse{Message: "expiration extended for a@x.com"}}
	r := newAdminRouter(svc)

	body := bytes.NewBufferString(`{"email":"a@x.com","secretId":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","expiresDays":2}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/extend", body)
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.extendCalled)
	assert.False(t, svc.listCalled)
	assert.Equal(t, "a@x.com", svc.extendReq.Email)
}

func TestAdminExtendUnknownGrant(t *testing.T) {
	svc := &mockAdminService{extendErr: appErrors.Clone(appErrors.ErrNotFound, "no access grant for this email and secret")}
	r := newAdminRouter(svc)

	body := bytes.NewBufferString(`{"email":"nobody@x.com","secretId":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","expiresDays":1}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/extend", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminExportDefaultsToCSV(t *testing.T) {
	svc := &mockAdminService{exportBytes: []byte("Short ID,Email\n"), exportType: "text/csv"}
	r := newAdminRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/extend/export", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.exportFormat)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "expired-grants.csv")
}

func TestAdminExportPDF(t *testing.T) {
	svc := &mockAdminService{exportBytes: []byte("%PDF-1.4"), exportType: "application/pdf"}
	r := newAdminRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/extend/export?format=pdf", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pdf", svc.exportFormat)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "expired-grants.pdf")
}

func TestAdminExportUnsupportedFormat(t *testing.T) {
	svc := &mockAdminService{exportErr: appErrors.Clone(appErrors.ErrValidation, "unsupported export format")}
	r := newAdminRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/extend/export?format=xlsx", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), appErrors.ErrValidation.Code)
}
