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

func newVerificationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestVerificationRepositoryFindLatestUnusedSignup(t *testing.T) {
	db, mock, cleanup := newVerificationRepoMock(t)
	defer cleanup()
	repo := NewVerificationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "full_name", "role", "code", "delivery_id", "delivery_error", "created_at", "expires_at", "used_at"}).
		AddRow("ver-1", "siti@edulearn.id", "siti", "$2a$10$hash", "Siti", models.RoleStudent, "482913", nil, nil, time.Now(), time.Now().Add(15*time.Minute), nil)
	mock.ExpectQuery("SELECT .+ FROM signup_verifications WHERE email = \\$1 AND code = \\$2 AND used_at IS NULL ORDER BY created_at DESC LIMIT 1").
		WithArgs("siti@edulearn.id", "482913").
		WillReturnRows(rows)

	rec, err := repo.FindLatestUnusedSignup(context.Background(), "Siti@EduLearn.id", "482913")
	require.NoError(t, err)
	require.Equal(t, "ver-1", rec.ID)
	require.Nil(t, rec.UsedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationRepositoryConsumeSignup(t *testing.T) {
	db, mock, cleanup := newVerificationRepoMock(t)
	defer cleanup()
	repo := NewVerificationRepository(db)

	usedAt := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE signup_verifications SET used_at = $2 WHERE id = $1 AND used_at IS NULL")).
		WithArgs("ver-1", usedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user := &models.User{Username: "siti", Email: "siti@edulearn.id", PasswordHash: "$2a$10$hash", FullName: "Siti", Role: models.RoleStudent, Status: models.StatusActive}
	err := repo.ConsumeSignup(context.Background(), "ver-1", usedAt, user)
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationRepositoryConsumeSignupReplay(t *testing.T) {
	db, mock, cleanup := newVerificationRepoMock(t)
	defer cleanup()
	repo := NewVerificationRepository(db)

	usedAt := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE signup_verifications SET used_at").
		WithArgs("ver-1", usedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ConsumeSignup(context.Background(), "ver-1", usedAt, &models.User{})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationRepositoryMarkResetUsedReplay(t *testing.T) {
	db, mock, cleanup := newVerificationRepoMock(t)
	defer cleanup()
	repo := NewVerificationRepository(db)

	usedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE password_resets SET used_at = $2 WHERE id = $1 AND used_at IS NULL")).
		WithArgs("rst-1", usedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkResetUsed(context.Background(), "rst-1", usedAt)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationRepositoryApproveChallengeOnce(t *testing.T) {
	db, mock, cleanup := newVerificationRepoMock(t)
	defer cleanup()
	repo := NewVerificationRepository(db)

	approvedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE login_challenges SET approved_at = $2, session_token = $3 WHERE id = $1 AND approved_at IS NULL")).
		WithArgs("chg-1", approvedAt, "jwt-token").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE login_challenges SET approved_at").
		WithArgs("chg-1", approvedAt, "jwt-token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.ApproveChallenge(context.Background(), "chg-1", approvedAt, "jwt-token"))
	require.ErrorIs(t, repo.ApproveChallenge(context.Background(), "chg-1", approvedAt, "jwt-token"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
