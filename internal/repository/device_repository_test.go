package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edulearn-api/internal/models"
)

func newDeviceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestDeviceRepositoryExists(t *testing.T) {
	db, mock, cleanup := newDeviceRepoMock(t)
	defer cleanup()
	repo := NewDeviceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE trusted_devices SET last_seen = $3 WHERE user_id = $1 AND fingerprint = $2")).
		WithArgs("usr-1", "Mozilla/5.0", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	trusted, err := repo.Exists(context.Background(), "usr-1", "Mozilla/5.0")
	require.NoError(t, err)
	require.True(t, trusted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepositoryExistsMiss(t *testing.T) {
	db, mock, cleanup := newDeviceRepoMock(t)
	defer cleanup()
	repo := NewDeviceRepository(db)

	mock.ExpectExec("UPDATE trusted_devices SET last_seen").
		WithArgs("usr-1", "curl/8.0", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	trusted, err := repo.Exists(context.Background(), "usr-1", "curl/8.0")
	require.NoError(t, err)
	require.False(t, trusted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepositoryTrustUpsert(t *testing.T) {
	db, mock, cleanup := newDeviceRepoMock(t)
	defer cleanup()
	repo := NewDeviceRepository(db)

	mock.ExpectExec("INSERT INTO trusted_devices").
		WithArgs(sqlmock.AnyArg(), "usr-1", "Mozilla/5.0", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	device := &models.TrustedDevice{UserID: "usr-1", Fingerprint: "Mozilla/5.0"}
	require.NoError(t, repo.Trust(context.Background(), device))
	require.NotEmpty(t, device.ID)
	require.False(t, device.TrustedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepositoryListByUser(t *testing.T) {
	db, mock, cleanup := newDeviceRepoMock(t)
	defer cleanup()
	repo := NewDeviceRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT .+ FROM trusted_devices WHERE user_id").
		WithArgs("usr-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "fingerprint", "first_seen", "trusted_at", "last_seen"}).
			AddRow("dev-1", "usr-1", "Mozilla/5.0", now, now, now))

	devices, err := repo.ListByUser(context.Background(), "usr-1")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Equal(t, "dev-1", devices[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepositoryRevokeScopedToOwner(t *testing.T) {
	db, mock, cleanup := newDeviceRepoMock(t)
	defer cleanup()
	repo := NewDeviceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM trusted_devices WHERE id = $1 AND user_id = $2")).
		WithArgs("dev-1", "usr-other").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Revoke(context.Background(), "usr-other", "dev-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
