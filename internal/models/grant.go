package models

import "time"

// SecretGrant allows a named recipient to redeem a secret independently
// of the primary mapping's expiry. Its lifecycle is decoupled from the
// secret row: lazy purges never touch grants.
type SecretGrant struct {
	ID        string    `db:"id" json:"id"`
	SecretID  string    `db:"secret_id" json:"secret_id"`
	Email     string    `db:"email" json:"email"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ExpiredGrant is the operator-review row: a lapsed grant joined with
// its mapping's short id.
type ExpiredGrant struct {
	GrantID        string    `db:"grant_id" json:"grantId"`
	SecretID       string    `db:"secret_id" json:"secretId"`
	ShortID        string    `db:"short_id" json:"shortId"`
	Email          string    `db:"email" json:"email"`
	ExpiresAt      time.Time `db:"expires_at" json:"expiresAt"`
	ExpiresAtHuman string    `db:"-" json:"expiresAtHuman"`
}

// ExpiredGrantsResponse wraps the admin listing.
type ExpiredGrantsResponse struct {
	ExpiredGrants []ExpiredGrant `json:"expiredGrants"`
}

// AdminExtendRequest pushes a grant's expiration forward relative to
// now. An empty request selects the listing branch instead.
type AdminExtendRequest struct {
	Email          string `json:"email" validate:"required,email"`
	SecretID       string `json:"secretId" validate:"required,uuid"`
	ExpiresDays    int    `json:"expiresDays" validate:"min=0,max=365"`
	ExpiresMinutes int    `json:"expiresMinutes" validate:"min=0,max=1439"`
}

// IsList reports whether the payload selects the listing operation.
func (r AdminExtendRequest) IsList() bool {
	return r.Email == "" && r.SecretID == ""
}

// AdminExtendResponse confirms the new expiration.
type AdminExtendResponse struct {
	Message       string    `json:"message"`
	ExpiresAt     time.Time `json:"expiresAt"`
	RemainingTime string    `json:"remainingTime"`
}
