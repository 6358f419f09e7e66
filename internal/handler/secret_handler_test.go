package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietdrop/quietdrop-api/internal/models"
	"github.com/quietdrop/quietdrop-api/internal/service"
	appErrors "github.com/quietdrop/quietdrop-api/pkg/errors"
	"github.com/quietdrop/quietdrop-api/pkg/response"
)

type mockSecretService struct {
	createRes *models.CreateSecretResponse
	createErr error

	redeemRes      *models.RedeemResponse
	redeemErr      error
	redeemPassword string

	extendedRes   *models.RedeemResponse
	extendedErr   error
	extendedEmail string
}

func (m *mockSecretService) Create(_ context.Context, _ models.CreateSecretRequest) (*models.CreateSecretResponse, error) {
	return m.createRes, m.createErr
}

func (m *mockSecretService) Redeem(_ context.Context, _ string, password string) (*models.RedeemResponse, error) {
	m.redeemPassword = password
	return m.redeemRes, m.redeemErr
}

func (m *mockSecretService) RedeemExtended(_ context.Context, _ string, req models.ExtendedRedeemRequest) (*models.RedeemResponse, error) {
	m.extendedEmail = req.Email
	return m.extendedRes, m.extendedErr
}

func newSecretRouter(svc *mockSecretService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewSecretHandler(svc)
	r := gin.New()
	r.POST("/secrets", h.Create)
	r.GET("/secrets/:shortId", h.Get)
	r.POST("/secrets/:shortId", h.Redeem)
	r.POST("/secrets/:shortId/extended", h.RedeemExtended)
	return r
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestCreateSecretEndpoint(t *testing.T) {
	expiresAt := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	svc := &mockSecretService{createRes: &models.CreateSecretResponse{
		ShortURL:  "https://quietdrop.test/share/Ab3dEf9h",
		ExpiresAt: expiresAt,
	}}
	r := newSecretRouter(svc)

	body := bytes.NewBufferString(`{"secretText":"hello"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/secrets", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"shortUrl":"https://quietdrop.test/share/Ab3dEf9h"`)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestCreateSecretEndpointBadJSON(t *testing.T) {
	r := newSecretRouter(&mockSecretService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/secrets", bytes.NewBufferString(`{`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)
}

func TestGetSecretEndpoint(t *testing.T) {
	expiresAt := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	svc := &mockSecretService{redeemRes: &models.RedeemResponse{
		SecretText:    "hello",
		ExpiresAt:     &expiresAt,
		RemainingTime: "7 days",
	}}
	r := newSecretRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secrets/Ab3dEf9h", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"secretText":"hello"`)
	assert.Contains(t, w.Body.String(), `"remainingTime":"7 days"`)
	assert.Empty(t, svc.redeemPassword)
}

func TestRedeemEndpointPasswordRequired(t *testing.T) {
	svc := &mockSecretService{redeemRes: &models.RedeemResponse{PasswordRequired: true}}
	r := newSecretRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/secrets/Ab3dEf9h", nil)
	r.ServeHTTP(w, req)

	// A password prompt is a 200, not an auth failure.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"passwordRequired":true`)
}

func TestRedeemEndpointForwardsPassword(t *testing.T) {
	svc := &mockSecretService{redeemRes: &models.RedeemResponse{SecretText: "guarded"}}
	r := newSecretRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/secrets/Ab3dEf9h", bytes.NewBufferString(`{"password":"hunter2"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hunter2", svc.redeemPassword)
}

func TestRedeemEndpointChunkedBodyKeepsPassword(t *testing.T) {
	svc := &mockSecretService{redeemRes: &models.RedeemResponse{SecretText: "guarded"}}
	r := newSecretRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/secrets/Ab3dEf9h", bytes.NewBufferString(`{"password":"hunter2"}`))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hunter2", svc.redeemPassword)
}

func TestRedeemEndpointMalformedBody(t *testing.T) {
	r := newSecretRouter(&mockSecretService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/secrets/Ab3dEf9h", bytes.NewBufferString(`{`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRedeemEndpointIncorrectPassword(t *testing.T) {
	svc := &mockSecretService{redeemErr: appErrors.Clone(appErrors.ErrPasswordIncorrect, "")}
	r := newSecretRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/secrets/Ab3dEf9h", bytes.NewBufferString(`{"password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrPasswordIncorrect.Code, envelope.Error.Code)
}

func TestRedeemEndpointExpiredCarriesTimestamp(t *testing.T) {
	expiresAt := time.Date(2026, 2, 28, 9, 15, 0, 0, time.UTC)
	svc := &mockSecretService{redeemErr: &service.ExpiredError{ExpiresAt: expiresAt}}
	r := newSecretRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secrets/Ab3dEf9h", nil))

	assert.Equal(t, http.StatusGone, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrExpired.Code, envelope.Error.Code)
	require.NotNil(t, envelope.Meta)
	assert.Equal(t, "2026-02-28T09:15:00Z", envelope.Meta["expiresAt"])
}

func TestRedeemEndpointNotFound(t *testing.T) {
	svc := &mockSecretService{redeemErr: appErrors.Clone(appErrors.ErrNotFound, "")}
	r := newSecretRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secrets/missing0", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedeemExtendedEndpoint(t *testing.T) {
	expiresAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := &mockSecretService{extendedRes: &models.RedeemResponse{
		SecretText:    "kept for auditors",
		ExpiresAt:     &expiresAt,
		RemainingTime: "2 days",
	}}
	r := newSecretRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/secrets/Ab3dEf9h/extended", bytes.NewBufferString(`{"email":"auditor@x.com"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "auditor@x.com", svc.extendedEmail)
	assert.Contains(t, w.Body.String(), `"secretText":"kept for auditors"`)
}

func TestRedeemExtendedEndpointForbidden(t *testing.T) {
	svc := &mockSecretService{extendedErr: appErrors.Clone(appErrors.ErrForbidden, "")}
	r := newSecretRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/secrets/Ab3dEf9h/extended", bytes.NewBufferString(`{"email":"intruder@x.com"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
