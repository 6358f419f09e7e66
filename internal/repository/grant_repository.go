package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quietdrop/quietdrop-api/internal/models"
)

// GrantRepository provides database access for extended-access grants.
type GrantRepository struct {
	db *sqlx.DB
}

// NewGrantRepository creates a new instance of GrantRepository.
func NewGrantRepository(db *sqlx.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// Create inserts a grant row.
func (r *GrantRepository) Create(ctx context.Context, grant *models.SecretGrant) error {
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = now
	}
	grant.UpdatedAt = now

	const query = `INSERT INTO secret_grants (id, secret_id, email, expires_at, created_at, updated_at) VALUES (:id, :secret_id, :email, :expires_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grant); err != nil {
		return fmt.Errorf("create grant: %w", err)
	}
	return nil
}

// Find returns the grant for a (secret id, email) pair.
func (r *GrantRepository) Find(ctx context.Context, secretID, email string) (*models.SecretGrant, error) {
	const query = `SELECT id, secret_id, email, expires_at, created_at, updated_at FROM secret_grants WHERE secret_id = $1 AND email = $2 LIMIT 1`
	var grant models.SecretGrant
	if err := r.db.GetContext(ctx, &grant, query, secretID, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find grant: %w", err)
	}
	return &grant, nil
}

// ListExpired returns every lapsed grant joined with its mapping's
// short id for operator review.
func (r *GrantRepository) ListExpired(ctx context.Context, now time.Time) ([]models.ExpiredGrant, error) {
	const query = `SELECT g.id AS grant_id, g.secret_id, COALESCE(m.short_id, '') AS short_id, g.email, g.expires_at FROM secret_grants g LEFT JOIN secret_mappings m ON m.secret_id = g.secret_id WHERE g.expires_at <= $1 ORDER BY g.expires_at ASC`
	var grants []models.ExpiredGrant
	if err := r.db.SelectContext(ctx, &grants, query, now); err != nil {
		return nil, fmt.Errorf("list expired grants: %w", err)
	}
	return grants, nil
}

// UpdateExpiry sets a grant's expiration in place. Returns
// sql.ErrNoRows when no grant matches the (secret id, email) pair.
func (r *GrantRepository) UpdateExpiry(ctx context.Context, secretID, email string, expiresAt, updatedAt time.Time) error {
	const query = `UPDATE secret_grants SET expires_at = $3, updated_at = $4 WHERE secret_id = $1 AND email = $2`
	res, err := r.db.ExecContext(ctx, query, secretID, email, expiresAt, updatedAt)
	if err != nil {
		return fmt.Errorf("update grant expiry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update grant expiry rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
