package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quietdrop/quietdrop-api/internal/models"
	appErrors "github.com/quietdrop/quietdrop-api/pkg/errors"
	"github.com/quietdrop/quietdrop-api/pkg/response"
)

type adminService interface {
	ListExpired(ctx context.Context) (*models.ExpiredGrantsResponse, error)
	Extend(ctx context.Context, req models.AdminExtendRequest) (*models.AdminExtendResponse, error)
	ExportExpired(ctx context.Context, format string) ([]byte, string, error)
}

// AdminHandler wires the operator endpoints to the admin service.
type AdminHandler struct {
	service adminService
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(svc adminService) *AdminHandler {
	return &AdminHandler{service: svc}
}

// Extend godoc
// @Summary List expired grants or extend one
// @Description An empty body lists lapsed grants; a body naming email and secretId extends that grant relative to now
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.AdminExtendRequest false "Extension payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/extend [post]
func (h *AdminHandler) Extend(c *gin.Context) {
	// An empty body selects the listing branch; EOF-tolerant binding
	// keeps chunked requests working.
	var req models.AdminExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid extension payload"))
		return
	}

	// The original operator UI multiplexes both operations on one
	// endpoint, selected by the shape of the body.
	if req.IsList() {
		res, err := h.service.ListExpired(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, res)
		return
	}

	res, err := h.service.Extend(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Export godoc
// @Summary Download the expired-grant report
// @Description Render the expired-grant listing as CSV or PDF
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} byte
// @Failure 400 {object} response.Envelope
// @Router /admin/extend/export [get]
func (h *AdminHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	payload, contentType, err := h.service.ExportExpired(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := "expired-grants." + format
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
