package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietdrop/quietdrop-api/internal/models"
)

func TestGrantCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	mock.ExpectExec("INSERT INTO secret_grants").WillReturnResult(sqlmock.NewResult(1, 1))

	grant := &models.SecretGrant{SecretID: "sec-1", Email: "a@x.com", ExpiresAt: time.Now().Add(24 * time.Hour)}
	err := repo.Create(context.Background(), grant)
	require.NoError(t, err)
	assert.NotEmpty(t, grant.ID)
	assert.False(t, grant.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantFind(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "secret_id", "email", "expires_at", "created_at", "updated_at"}).
		AddRow("grant-1", "sec-1", "a@x.com", now.Add(time.Hour), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, secret_id, email, expires_at, created_at, updated_at FROM secret_grants WHERE secret_id = $1 AND email = $2 LIMIT 1")).
		WithArgs("sec-1", "a@x.com").
		WillReturnRows(rows)

	grant, err := repo.Find(context.Background(), "sec-1", "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "grant-1", grant.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantFindMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	mock.ExpectQuery("SELECT id, secret_id, email, expires_at, created_at, updated_at FROM secret_grants").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "sec-1", "nobody@x.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantListExpired(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"grant_id", "secret_id", "short_id", "email", "expires_at"}).
		AddRow("grant-1", "sec-1", "Ab3dEf9h", "a@x.com", now.Add(-time.Hour)).
		AddRow("grant-2", "sec-2", "", "b@x.com", now.Add(-time.Minute))
	mock.ExpectQuery("SELECT g.id AS grant_id, g.secret_id, COALESCE").
		WithArgs(now).
		WillReturnRows(rows)

	grants, err := repo.ListExpired(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, "Ab3dEf9h", grants[0].ShortID)
	assert.Empty(t, grants[1].ShortID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantUpdateExpiry(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	now := time.Now()
	expiresAt := now.Add(48 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE secret_grants SET expires_at = $3, updated_at = $4 WHERE secret_id = $1 AND email = $2")).
		WithArgs("sec-1", "a@x.com", expiresAt, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateExpiry(context.Background(), "sec-1", "a@x.com", expiresAt, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantUpdateExpiryMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	mock.ExpectExec("UPDATE secret_grants SET expires_at").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateExpiry(context.Background(), "sec-1", "nobody@x.com", time.Now(), time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
