package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/quietdrop/quietdrop-api/internal/models"
	appErrors "github.com/quietdrop/quietdrop-api/pkg/errors"
	"github.com/quietdrop/quietdrop-api/pkg/export"
)

type grantAdminRepository interface {
	ListExpired(ctx context.Context, now time.Time) ([]models.ExpiredGrant, error)
	UpdateExpiry(ctx context.Context, secretID, email string, expiresAt, updatedAt time.Time) error
}

// AdminService lists lapsed extended-access grants and pushes their
// expirations forward.
type AdminService struct {
	grants    grantAdminRepository
	validator *validator.Validate
	logger    *zap.Logger

	csv *export.CSVExporter
	pdf *export.PDFExporter

	now func() time.Time
}

// NewAdminService constructs an AdminService instance.
func NewAdminService(grants grantAdminRepository, validate *validator.Validate, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AdminService{
		grants:    grants,
		validator: validate,
		logger:    logger,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		now:       time.Now,
	}
}

// ListExpired returns every grant whose expiration has passed, joined
// with its mapping's short id, for operator review.
func (s *AdminService) ListExpired(ctx context.Context) (*models.ExpiredGrantsResponse, error) {
	now := s.now().UTC()

	grants, err := s.grants.ListExpired(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expired grants")
	}

	for i := range grants {
		grants[i].ExpiresAtHuman = FormatTimestamp(grants[i].ExpiresAt)
	}

	return &models.ExpiredGrantsResponse{ExpiredGrants: grants}, nil
}

// Extend sets the grant's expiration to now plus the requested offsets.
// The computation is always relative to call time, never to the grant's
// previous expiration.
func (s *AdminService) Extend(ctx context.Context, req models.AdminExtendRequest) (*models.AdminExtendResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "email and secretId are required")
	}

	now := s.now().UTC()
	newExpiry := now.Add(time.Duration(req.ExpiresDays)*24*time.Hour + time.Duration(req.ExpiresMinutes)*time.Minute)

	if err := s.grants.UpdateExpiry(ctx, req.SecretID, req.Email, newExpiry, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no access grant for this email and secret")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to extend grant")
	}

	s.logger.Info("grant extended",
		zap.String("secret_id", req.SecretID),
		zap.String("email", req.Email),
		zap.Time("expires_at", newExpiry),
	)

	return &models.AdminExtendResponse{
		Message:       fmt.Sprintf("expiration extended for %s", req.Email),
		ExpiresAt:     newExpiry,
		RemainingTime: FormatRemaining(newExpiry.Sub(now)),
	}, nil
}

// ExportExpired renders the expired-grant listing as a CSV or PDF
// report for download.
func (s *AdminService) ExportExpired(ctx context.Context, format string) ([]byte, string, error) {
	listing, err := s.ListExpired(ctx)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Short ID", "Email", "Secret ID", "Expired At"},
		Weights: []float64{1, 2, 2.5, 1.5},
		Rows:    make([]map[string]string, 0, len(listing.ExpiredGrants)),
	}
	for _, grant := range listing.ExpiredGrants {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Short ID":   grant.ShortID,
			"Email":      grant.Email,
			"Secret ID":  grant.SecretID,
			"Expired At": grant.ExpiresAtHuman,
		})
	}

	switch format {
	case "csv", "":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Expired access grants")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// WithClock overrides the service clock, for deterministic tests.
func (s *AdminService) WithClock(now func() time.Time) *AdminService {
	s.now = now
	return s
}
