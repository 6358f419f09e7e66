package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/quietdrop/quietdrop-api/internal/models"
	"github.com/quietdrop/quietdrop-api/internal/repository"
	appErrors "github.com/quietdrop/quietdrop-api/pkg/errors"
)

type secretRepository interface {
	CreateSecret(ctx context.Context, secret *models.Secret, fragments []models.SecretFragment, mapping *models.SecretMapping) error
	FindMappingByShortID(ctx context.Context, shortID string) (*models.SecretMapping, error)
	FindSecretByID(ctx context.Context, id string) (*models.Secret, error)
	FragmentsBySecretID(ctx context.Context, secretID string) ([]string, error)
	PurgeSecret(ctx context.Context, secretID string) error
	DeleteMapping(ctx context.Context, shortID string) error
}

type grantStore interface {
	Create(ctx context.Context, grant *models.SecretGrant) error
	Find(ctx context.Context, secretID, email string) (*models.SecretGrant, error)
}

type mappingCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ExpiredError marks a redemption refused because an expiration passed.
// It carries the machine-readable timestamp for the client.
type ExpiredError struct {
	ExpiresAt time.Time
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("expired at %s", e.ExpiresAt.UTC().Format(time.RFC3339))
}

// Unwrap ties the error into the shared taxonomy so handlers map it to
// the 410 envelope without inspecting the concrete type.
func (e *ExpiredError) Unwrap() error {
	return appErrors.ErrExpired
}

// SecretConfig tunes the secret lifecycle.
type SecretConfig struct {
	PublicURL         string
	DefaultExpiryDays int
	ShortIDLength     int
	ShortIDRetries    int
	BcryptCost        int
	MaxTextBytes      int
	SingleUse         bool
	MappingCacheTTL   time.Duration
}

// SecretService implements the secret lifecycle: creation, the
// access-gating state machine and the extended-access path.
type SecretService struct {
	repo      secretRepository
	grants    grantStore
	cache     mappingCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    SecretConfig

	now func() time.Time
}

// NewSecretService constructs a SecretService instance.
func NewSecretService(repo secretRepository, grants grantStore, cache mappingCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config SecretConfig) *SecretService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.DefaultExpiryDays <= 0 {
		config.DefaultExpiryDays = 7
	}
	if config.ShortIDLength <= 0 {
		config.ShortIDLength = 8
	}
	if config.ShortIDRetries <= 0 {
		config.ShortIDRetries = 3
	}
	if config.BcryptCost <= 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &SecretService{
		repo:      repo,
		grants:    grants,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Create persists a new secret with its fragments, short-link mapping
// and, when requested, an extended-access grant.
func (s *SecretService) Create(ctx context.Context, req models.CreateSecretRequest) (*models.CreateSecretResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "secret text is required")
	}
	if s.config.MaxTextBytes > 0 && len(req.SecretText) > s.config.MaxTextBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "secret text exceeds the maximum size")
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.expiry(req.ExpiresDays, req.ExpiresMinutes))

	var passwordHash *string
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		hashed := string(hash)
		passwordHash = &hashed
	}

	secretID := NewSecretID()
	chunks := splitFragments(req.SecretText)
	fragments := make([]models.SecretFragment, len(chunks))
	for i, chunk := range chunks {
		fragments[i] = models.SecretFragment{SecretID: secretID, Ord: i, Fragment: chunk}
	}

	var email *string
	if req.Email != "" {
		addr := req.Email
		email = &addr
	}

	secret := &models.Secret{
		ID:            secretID,
		PasswordHash:  passwordHash,
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
		FragmentCount: len(fragments),
		Extendable:    req.Extendable,
		Email:         email,
	}

	shortID, err := s.insertWithShortID(ctx, secret, fragments, now, expiresAt)
	if err != nil {
		return nil, err
	}

	if req.Extendable && req.Email != "" {
		grant := &models.SecretGrant{
			SecretID:  secretID,
			Email:     req.Email,
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}
		if err := s.grants.Create(ctx, grant); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access grant")
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveSecretCreated(passwordHash != nil, req.Extendable)
	}

	return &models.CreateSecretResponse{
		ShortURL:  s.config.PublicURL + "/share/" + shortID,
		ExpiresAt: expiresAt,
	}, nil
}

// Redeem runs the gating state machine for the primary retrieval path.
// The evaluation order is fixed: mapping lookup, mapping expiry with
// lazy purge, secret lookup, password gate, disclosure.
func (s *SecretService) Redeem(ctx context.Context, shortID, password string) (*models.RedeemResponse, error) {
	now := s.now().UTC()

	mapping, err := s.resolveMapping(ctx, shortID)
	if err != nil {
		return nil, s.outcome("not_found", err)
	}

	if !mapping.ExpiresAt.After(now) {
		s.purge(ctx, mapping.SecretID, shortID)
		return nil, s.outcome("expired", &ExpiredError{ExpiresAt: mapping.ExpiresAt})
	}

	secret, err := s.repo.FindSecretByID(ctx, mapping.SecretID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The mapping dangles; drop it so the short id stops resolving.
			if delErr := s.repo.DeleteMapping(ctx, shortID); delErr != nil {
				s.logger.Warn("failed to delete dangling mapping", zap.String("short_id", shortID), zap.Error(delErr))
			}
			s.invalidateMapping(ctx, shortID)
			return nil, s.outcome("not_found", appErrors.Clone(appErrors.ErrNotFound, "secret not found"))
		}
		return nil, s.outcome("error", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load secret"))
	}

	if secret.HasPassword() {
		if password == "" {
			s.observeRedeem("password_required")
			return &models.RedeemResponse{PasswordRequired: true}, nil
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*secret.PasswordHash), []byte(password)); err != nil {
			return nil, s.outcome("password_incorrect", appErrors.Clone(appErrors.ErrPasswordIncorrect, ""))
		}
	}

	text, err := s.reassemble(ctx, secret.ID)
	if err != nil {
		return nil, s.outcome("error", err)
	}

	if s.config.SingleUse {
		s.purge(ctx, secret.ID, shortID)
	}

	s.observeRedeem("ok")
	expiresAt := secret.ExpiresAt
	return &models.RedeemResponse{
		SecretText:    text,
		ExpiresAt:     &expiresAt,
		RemainingTime: FormatRemaining(expiresAt.Sub(now)),
	}, nil
}

// RedeemExtended discloses a secret through an extended-access grant.
// The mapping is resolved only for the secret id; its expiration is not
// checked, and the password gate is not re-applied. The grant is the
// credential.
func (s *SecretService) RedeemExtended(ctx context.Context, shortID string, req models.ExtendedRedeemRequest) (*models.RedeemResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "a valid email is required")
	}

	now := s.now().UTC()

	mapping, err := s.resolveMapping(ctx, shortID)
	if err != nil {
		return nil, s.outcome("not_found", err)
	}

	// A grant can outlive its secret; a purged secret is NotFound here
	// no matter what the grant says.
	if _, err := s.repo.FindSecretByID(ctx, mapping.SecretID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.outcome("not_found", appErrors.Clone(appErrors.ErrNotFound, "secret not found"))
		}
		return nil, s.outcome("error", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load secret"))
	}

	grant, err := s.grants.Find(ctx, mapping.SecretID, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.outcome("forbidden", appErrors.Clone(appErrors.ErrForbidden, ""))
		}
		return nil, s.outcome("error", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load access grant"))
	}

	if !grant.ExpiresAt.After(now) {
		return nil, s.outcome("expired", &ExpiredError{ExpiresAt: grant.ExpiresAt})
	}

	text, err := s.reassemble(ctx, mapping.SecretID)
	if err != nil {
		return nil, s.outcome("error", err)
	}

	s.observeRedeem("ok_extended")
	expiresAt := grant.ExpiresAt
	return &models.RedeemResponse{
		SecretText:    text,
		ExpiresAt:     &expiresAt,
		RemainingTime: FormatRemaining(expiresAt.Sub(now)),
	}, nil
}

// WithClock overrides the service clock, for deterministic tests.
func (s *SecretService) WithClock(now func() time.Time) *SecretService {
	s.now = now
	return s
}

func (s *SecretService) expiry(days, minutes *int) time.Duration {
	d := 0
	if days != nil {
		d = *days
	}
	m := 0
	if minutes != nil {
		m = *minutes
	}
	if d == 0 && m == 0 {
		d = s.config.DefaultExpiryDays
	}
	return time.Duration(d)*24*time.Hour + time.Duration(m)*time.Minute
}

func (s *SecretService) insertWithShortID(ctx context.Context, secret *models.Secret, fragments []models.SecretFragment, now, expiresAt time.Time) (string, error) {
	for attempt := 0; attempt < s.config.ShortIDRetries; attempt++ {
		shortID, err := NewShortID(s.config.ShortIDLength)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate short id")
		}

		mapping := &models.SecretMapping{
			ID:        NewSecretID(),
			SecretID:  secret.ID,
			ShortID:   shortID,
			CreatedAt: now,
			ExpiresAt: expiresAt,
		}

		err = s.repo.CreateSecret(ctx, secret, fragments, mapping)
		if err == nil {
			return shortID, nil
		}
		if errors.Is(err, repository.ErrDuplicateShortID) {
			s.logger.Warn("short id collision, retrying", zap.String("short_id", shortID))
			continue
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store secret")
	}
	return "", appErrors.Clone(appErrors.ErrInternal, "failed to allocate a unique short id")
}

func (s *SecretService) resolveMapping(ctx context.Context, shortID string) (*models.SecretMapping, error) {
	key := repository.MappingKey(shortID)
	if s.cache != nil {
		var cached models.SecretMapping
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("mapping cache read failed", zap.String("short_id", shortID), zap.Error(err))
		}
	}

	mapping, err := s.repo.FindMappingByShortID(ctx, shortID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve short id")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, mapping, s.config.MappingCacheTTL); err != nil {
			s.logger.Warn("mapping cache write failed", zap.String("short_id", shortID), zap.Error(err))
		}
	}
	return mapping, nil
}

// reassemble loads and joins the secret's fragments. An empty result is
// a missing-fragments condition, never an empty secret: the creation
// path refuses empty payloads.
func (s *SecretService) reassemble(ctx context.Context, secretID string) (string, error) {
	fragments, err := s.repo.FragmentsBySecretID(ctx, secretID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load secret fragments")
	}
	if len(fragments) == 0 {
		return "", appErrors.Clone(appErrors.ErrNotFound, "secret fragments not found")
	}
	return strings.Join(fragments, ""), nil
}

// purge performs the lazy Active -> Purged transition. Failures are
// logged, not surfaced: the caller's verdict already stands.
func (s *SecretService) purge(ctx context.Context, secretID, shortID string) {
	if err := s.repo.PurgeSecret(ctx, secretID); err != nil {
		s.logger.Warn("failed to purge expired secret", zap.String("secret_id", secretID), zap.Error(err))
	}
	s.invalidateMapping(ctx, shortID)
	if s.metrics != nil {
		s.metrics.ObservePurge("lazy")
	}
}

func (s *SecretService) invalidateMapping(ctx context.Context, shortID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, repository.MappingKey(shortID)); err != nil {
		s.logger.Warn("mapping cache invalidation failed", zap.String("short_id", shortID), zap.Error(err))
	}
}

func (s *SecretService) observeRedeem(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveRedeem(outcome)
	}
}

func (s *SecretService) outcome(label string, err error) error {
	s.observeRedeem(label)
	return err
}

// splitFragments partitions the payload into two contiguous chunks
// around the byte midpoint, nudged forward to the next rune boundary so
// each fragment stays valid UTF-8 for the text columns. Single-rune
// payloads produce one fragment. The split is a storage-layout detail,
// not a security primitive.
func splitFragments(text string) []string {
	if text == "" {
		return nil
	}
	half := (len(text) + 1) / 2
	for half < len(text) && !utf8.RuneStart(text[half]) {
		half++
	}
	if half >= len(text) {
		return []string{text}
	}
	return []string{text[:half], text[half:]}
}
