package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quietdrop/quietdrop-api/internal/models"
	"github.com/quietdrop/quietdrop-api/internal/service"
	appErrors "github.com/quietdrop/quietdrop-api/pkg/errors"
	"github.com/quietdrop/quietdrop-api/pkg/response"
)

type secretService interface {
	Create(ctx context.Context, req models.CreateSecretRequest) (*models.CreateSecretResponse, error)
	Redeem(ctx context.Context, shortID, password string) (*models.RedeemResponse, error)
	RedeemExtended(ctx context.Context, shortID string, req models.ExtendedRedeemRequest) (*models.RedeemResponse, error)
}

// SecretHandler wires HTTP endpoints to the secret service.
type SecretHandler struct {
	service secretService
}

// NewSecretHandler creates a new handler.
func NewSecretHandler(svc secretService) *SecretHandler {
	return &SecretHandler{service: svc}
}

// Create godoc
// @Summary Create a secret
// @Description Store a secret and return a single short retrieval link
// @Tags Secrets
// @Accept json
// @Produce json
// @Param payload body models.CreateSecretRequest true "Secret payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /secrets [post]
func (h *SecretHandler) Create(c *gin.Context) {
	var req models.CreateSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid secret payload"))
		return
	}

	res, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Get godoc
// @Summary Retrieve a secret
// @Description Redeem a short link without submitting a password
// @Tags Secrets
// @Produce json
// @Param shortId path string true "Short id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /secrets/{shortId} [get]
func (h *SecretHandler) Get(c *gin.Context) {
	res, err := h.service.Redeem(c.Request.Context(), c.Param("shortId"), "")
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Redeem godoc
// @Summary Redeem a secret with an optional password
// @Description Submit a password for a protected secret, or redeem an unprotected one
// @Tags Secrets
// @Accept json
// @Produce json
// @Param shortId path string true "Short id"
// @Param payload body models.RedeemRequest false "Optional password"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /secrets/{shortId} [post]
func (h *SecretHandler) Redeem(c *gin.Context) {
	// An absent body is a passwordless attempt; only malformed JSON is an
	// error. EOF-tolerant binding keeps chunked requests working.
	var req models.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid redeem payload"))
		return
	}

	res, err := h.service.Redeem(c.Request.Context(), c.Param("shortId"), req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// RedeemExtended godoc
// @Summary Redeem a secret through an extended-access grant
// @Description Disclose a secret to a named grantee, surviving primary link expiry
// @Tags Secrets
// @Accept json
// @Produce json
// @Param shortId path string true "Short id"
// @Param payload body models.ExtendedRedeemRequest true "Grantee email"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /secrets/{shortId}/extended [post]
func (h *SecretHandler) RedeemExtended(c *gin.Context) {
	var req models.ExtendedRedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "email is required"))
		return
	}

	res, err := h.service.RedeemExtended(c.Request.Context(), c.Param("shortId"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// respondError maps gating errors to the envelope. Expired verdicts
// always carry the machine-readable expiration timestamp.
func (h *SecretHandler) respondError(c *gin.Context, err error) {
	var expired *service.ExpiredError
	if errors.As(err, &expired) {
		response.ErrorWithMeta(c, err, map[string]interface{}{"expiresAt": expired.ExpiresAt})
		return
	}
	response.Error(c, err)
}
