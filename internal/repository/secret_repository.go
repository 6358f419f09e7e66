package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quietdrop/quietdrop-api/internal/models"
)

// ErrDuplicateShortID signals a short id collision on insert so the
// caller can regenerate and retry.
var ErrDuplicateShortID = errors.New("short id already exists")

// SecretRepository provides database access for secrets, their
// fragments and short-link mappings.
type SecretRepository struct {
	db *sqlx.DB
}

// NewSecretRepository creates a new instance of SecretRepository.
func NewSecretRepository(db *sqlx.DB) *SecretRepository {
	return &SecretRepository{db: db}
}

// CreateSecret inserts the secret row, its ordered fragments and the
// short-link mapping in a single transaction.
func (r *SecretRepository) CreateSecret(ctx context.Context, secret *models.Secret, fragments []models.SecretFragment, mapping *models.SecretMapping) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create secret: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const secretQuery = `INSERT INTO secrets (id, password_hash, created_at, expires_at, fragment_count, extendable, email) VALUES (:id, :password_hash, :created_at, :expires_at, :fragment_count, :extendable, :email)`
	if _, err := tx.NamedExecContext(ctx, secretQuery, secret); err != nil {
		return fmt.Errorf("insert secret: %w", err)
	}

	const fragmentQuery = `INSERT INTO secret_fragments (secret_id, ord, fragment) VALUES (:secret_id, :ord, :fragment)`
	for i := range fragments {
		if _, err := tx.NamedExecContext(ctx, fragmentQuery, fragments[i]); err != nil {
			return fmt.Errorf("insert fragment %d: %w", fragments[i].Ord, err)
		}
	}

	const mappingQuery = `INSERT INTO secret_mappings (id, secret_id, short_id, created_at, expires_at) VALUES (:id, :secret_id, :short_id, :created_at, :expires_at)`
	if _, err := tx.NamedExecContext(ctx, mappingQuery, mapping); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateShortID
		}
		return fmt.Errorf("insert mapping: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create secret: %w", err)
	}
	return nil
}

// FindMappingByShortID returns the short-link mapping for a short id.
func (r *SecretRepository) FindMappingByShortID(ctx context.Context, shortID string) (*models.SecretMapping, error) {
	const query = `SELECT id, secret_id, short_id, created_at, expires_at FROM secret_mappings WHERE short_id = $1 LIMIT 1`
	var mapping models.SecretMapping
	if err := r.db.GetContext(ctx, &mapping, query, shortID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find mapping by short id: %w", err)
	}
	return &mapping, nil
}

// FindSecretByID returns a secret row by identifier.
func (r *SecretRepository) FindSecretByID(ctx context.Context, id string) (*models.Secret, error) {
	const query = `SELECT id, password_hash, created_at, expires_at, fragment_count, extendable, email FROM secrets WHERE id = $1 LIMIT 1`
	var secret models.Secret
	if err := r.db.GetContext(ctx, &secret, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find secret by id: %w", err)
	}
	return &secret, nil
}

// FragmentsBySecretID returns fragment contents in ascending order.
func (r *SecretRepository) FragmentsBySecretID(ctx context.Context, secretID string) ([]string, error) {
	const query = `SELECT fragment FROM secret_fragments WHERE secret_id = $1 ORDER BY ord ASC`
	var fragments []string
	if err := r.db.SelectContext(ctx, &fragments, query, secretID); err != nil {
		return nil, fmt.Errorf("load fragments: %w", err)
	}
	return fragments, nil
}

// PurgeSecret removes the secret, its fragments and its mapping in one
// transaction. Grants are deliberately left in place.
func (r *SecretRepository) PurgeSecret(ctx context.Context, secretID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purge secret: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM secret_fragments WHERE secret_id = $1`, secretID); err != nil {
		return fmt.Errorf("delete fragments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM secret_mappings WHERE secret_id = $1`, secretID); err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM secrets WHERE id = $1`, secretID); err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purge secret: %w", err)
	}
	return nil
}

// DeleteMapping removes a dangling mapping whose secret no longer exists.
func (r *SecretRepository) DeleteMapping(ctx context.Context, shortID string) error {
	const query = `DELETE FROM secret_mappings WHERE short_id = $1`
	if _, err := r.db.ExecContext(ctx, query, shortID); err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	return nil
}

// ListExpiredMappings returns secret ids whose mapping expiration has
// passed, for the background sweeper.
func (r *SecretRepository) ListExpiredMappings(ctx context.Context, now time.Time, limit int) ([]string, error) {
	const query = `SELECT secret_id FROM secret_mappings WHERE expires_at <= $1 ORDER BY expires_at ASC LIMIT $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, now, limit); err != nil {
		return nil, fmt.Errorf("list expired mappings: %w", err)
	}
	return ids, nil
}
