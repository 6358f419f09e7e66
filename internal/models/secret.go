package models

import "time"

// Secret is the authoritative row describing a stored secret. The text
// itself lives in secret_fragments; fragment_count records how many
// chunks were written.
type Secret struct {
	ID            string    `db:"id" json:"id"`
	PasswordHash  *string   `db:"password_hash" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	ExpiresAt     time.Time `db:"expires_at" json:"expires_at"`
	FragmentCount int       `db:"fragment_count" json:"fragment_count"`
	Extendable    bool      `db:"extendable" json:"extendable"`
	Email         *string   `db:"email" json:"email,omitempty"`
}

// HasPassword reports whether redemption requires password verification.
func (s *Secret) HasPassword() bool {
	return s.PasswordHash != nil && *s.PasswordHash != ""
}

// SecretFragment is one ordered chunk of a secret's payload. Indexes are
// 0-based and contiguous; concatenating fragments in ascending order
// reconstructs the original text.
type SecretFragment struct {
	SecretID string `db:"secret_id" json:"secret_id"`
	Ord      int    `db:"ord" json:"ord"`
	Fragment string `db:"fragment" json:"fragment"`
}

// SecretMapping resolves a short id to a secret. Its expiration is
// stored and checked independently of the secret's own expires_at.
type SecretMapping struct {
	ID        string    `db:"id" json:"id"`
	SecretID  string    `db:"secret_id" json:"secret_id"`
	ShortID   string    `db:"short_id" json:"short_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// CreateSecretRequest is the producer-side payload.
type CreateSecretRequest struct {
	SecretText     string `json:"secretText" validate:"required"`
	ExpiresDays    *int   `json:"expiresDays,omitempty" validate:"omitempty,min=0,max=365"`
	ExpiresMinutes *int   `json:"expiresMinutes,omitempty" validate:"omitempty,min=0,max=1439"`
	Password       string `json:"password,omitempty"`
	Extendable     bool   `json:"extendable,omitempty"`
	Email          string `json:"email,omitempty" validate:"omitempty,email"`
}

// CreateSecretResponse returns the retrieval link.
type CreateSecretResponse struct {
	ShortURL  string    `json:"shortUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RedeemRequest optionally carries the password for protected secrets.
type RedeemRequest struct {
	Password string `json:"password,omitempty"`
}

// RedeemResponse is the consumer-side result. PasswordRequired is a
// success-shaped soft signal, not an error.
type RedeemResponse struct {
	SecretText       string     `json:"secretText,omitempty"`
	PasswordRequired bool       `json:"passwordRequired,omitempty"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	RemainingTime    string     `json:"remainingTime,omitempty"`
}

// ExtendedRedeemRequest names the grantee on the extended-access path.
type ExtendedRedeemRequest struct {
	Email string `json:"email" validate:"required,email"`
}
