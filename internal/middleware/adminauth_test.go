package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminSecret = "test-admin-secret"

func newAuthRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/ping", AdminAuth(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString(ContextAdminKey)})
	})
	return r
}

func TestAdminAuthAcceptsMintedToken(t *testing.T) {
	token, err := MintAdminToken(testAdminSecret, "ops@x.com", time.Hour)
	require.NoError(t, err)

	r := newAuthRouter(testAdminSecret)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ops@x.com")
}

func TestAdminAuthMissingHeader(t *testing.T) {
	r := newAuthRouter(testAdminSecret)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthMalformedHeader(t *testing.T) {
	r := newAuthRouter(testAdminSecret)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Token abc")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthWrongSecret(t *testing.T) {
	token, err := MintAdminToken("some-other-secret", "ops@x.com", time.Hour)
	require.NoError(t, err)

	r := newAuthRouter(testAdminSecret)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthExpiredToken(t *testing.T) {
	token, err := MintAdminToken(testAdminSecret, "ops@x.com", -time.Minute)
	require.NoError(t, err)

	r := newAuthRouter(testAdminSecret)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
