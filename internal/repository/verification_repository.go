package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edulearn-api/internal/models"
)

// VerificationRepository persists one-time-code records: signup
// verifications, password resets and login challenges. Expired records are
// never deleted; expiry is evaluated by the callers at read time.
type VerificationRepository struct {
	db *sqlx.DB
}

// NewVerificationRepository creates a new instance of VerificationRepository.
func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// CreateSignup persists a pending registration.
func (r *VerificationRepository) CreateSignup(ctx context.Context, rec *models.SignupVerification) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Email = strings.ToLower(rec.Email)
	const query = `INSERT INTO signup_verifications (id, email, username, password_hash, full_name, role, code, delivery_id, delivery_error, created_at, expires_at, used_at)
		VALUES (:id, :email, :username, :password_hash, :full_name, :role, :code, :delivery_id, :delivery_error, :created_at, :expires_at, :used_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("create signup verification: %w", err)
	}
	return nil
}

// FindLatestSignupByEmail returns the most recent pending registration for
// an email, used or not, so a resend can reuse its payload.
func (r *VerificationRepository) FindLatestSignupByEmail(ctx context.Context, email string) (*models.SignupVerification, error) {
	const query = `SELECT id, email, username, password_hash, full_name, role, code, delivery_id, delivery_error, created_at, expires_at, used_at
		FROM signup_verifications WHERE email = $1 ORDER BY created_at DESC LIMIT 1`
	var rec models.SignupVerification
	if err := r.db.GetContext(ctx, &rec, query, strings.ToLower(email)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find latest signup verification: %w", err)
	}
	return &rec, nil
}

// FindLatestUnusedSignup returns the newest unused record matching email
// and code.
func (r *VerificationRepository) FindLatestUnusedSignup(ctx context.Context, email, code string) (*models.SignupVerification, error) {
	const query = `SELECT id, email, username, password_hash, full_name, role, code, delivery_id, delivery_error, created_at, expires_at, used_at
		FROM signup_verifications WHERE email = $1 AND code = $2 AND used_at IS NULL ORDER BY created_at DESC LIMIT 1`
	var rec models.SignupVerification
	if err := r.db.GetContext(ctx, &rec, query, strings.ToLower(email), code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find unused signup verification: %w", err)
	}
	return &rec, nil
}

// UpdateSignupDelivery records the notifier outcome on the issuing record.
func (r *VerificationRepository) UpdateSignupDelivery(ctx context.Context, id string, deliveryID, deliveryErr *string) error {
	const query = `UPDATE signup_verifications SET delivery_id = $2, delivery_error = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, deliveryID, deliveryErr); err != nil {
		return fmt.Errorf("update signup delivery: %w", err)
	}
	return nil
}

// ConsumeSignup marks the verification used and creates the user in a
// single transaction. A used code without an account, or an account
// without a consumed code, cannot be observed. Returns sql.ErrNoRows if
// another caller consumed the record first.
func (r *VerificationRepository) ConsumeSignup(ctx context.Context, id string, usedAt time.Time, user *models.User) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin consume signup: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `UPDATE signup_verifications SET used_at = $2 WHERE id = $1 AND used_at IS NULL`, id, usedAt)
	if err != nil {
		return fmt.Errorf("mark signup verification used: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark signup verification used: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	prepareUser(user)
	const insertUser = `INSERT INTO users (id, username, email, phone, password_hash, full_name, role, status, permissions, created_by, created_at, updated_at)
		VALUES (:id, :username, :email, :phone, :password_hash, :full_name, :role, :status, :permissions, :created_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertUser, user); err != nil {
		return fmt.Errorf("create verified user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit consume signup: %w", err)
	}
	return nil
}

// CreateReset persists a password reset code.
func (r *VerificationRepository) CreateReset(ctx context.Context, rec *models.PasswordReset) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO password_resets (id, user_id, channel, target, code, delivery_id, delivery_error, created_at, expires_at, used_at)
		VALUES (:id, :user_id, :channel, :target, :code, :delivery_id, :delivery_error, :created_at, :expires_at, :used_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

// FindLatestUnusedReset returns the newest unused reset matching user and
// code.
func (r *VerificationRepository) FindLatestUnusedReset(ctx context.Context, userID, code string) (*models.PasswordReset, error) {
	const query = `SELECT id, user_id, channel, target, code, delivery_id, delivery_error, created_at, expires_at, used_at
		FROM password_resets WHERE user_id = $1 AND code = $2 AND used_at IS NULL ORDER BY created_at DESC LIMIT 1`
	var rec models.PasswordReset
	if err := r.db.GetContext(ctx, &rec, query, userID, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find unused password reset: %w", err)
	}
	return &rec, nil
}

// MarkResetUsed consumes a reset code. Returns sql.ErrNoRows on replay.
func (r *VerificationRepository) MarkResetUsed(ctx context.Context, id string, usedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE password_resets SET used_at = $2 WHERE id = $1 AND used_at IS NULL`, id, usedAt)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateResetDelivery records the notifier outcome on the issuing record.
func (r *VerificationRepository) UpdateResetDelivery(ctx context.Context, id string, deliveryID, deliveryErr *string) error {
	const query = `UPDATE password_resets SET delivery_id = $2, delivery_error = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, deliveryID, deliveryErr); err != nil {
		return fmt.Errorf("update reset delivery: %w", err)
	}
	return nil
}

// CreateChallenge persists a pending login confirmation.
func (r *VerificationRepository) CreateChallenge(ctx context.Context, rec *models.LoginChallenge) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO login_challenges (id, user_id, token, ip_address, device_info, session_token, created_at, expires_at, approved_at)
		VALUES (:id, :user_id, :token, :ip_address, :device_info, :session_token, :created_at, :expires_at, :approved_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("create login challenge: %w", err)
	}
	return nil
}

// FindChallengeByToken returns a challenge by its confirmation token.
func (r *VerificationRepository) FindChallengeByToken(ctx context.Context, token string) (*models.LoginChallenge, error) {
	const query = `SELECT id, user_id, token, ip_address, device_info, session_token, created_at, expires_at, approved_at
		FROM login_challenges WHERE token = $1 LIMIT 1`
	var rec models.LoginChallenge
	if err := r.db.GetContext(ctx, &rec, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find login challenge by token: %w", err)
	}
	return &rec, nil
}

// FindChallengeByID returns a challenge by identifier.
func (r *VerificationRepository) FindChallengeByID(ctx context.Context, id string) (*models.LoginChallenge, error) {
	const query = `SELECT id, user_id, token, ip_address, device_info, session_token, created_at, expires_at, approved_at
		FROM login_challenges WHERE id = $1 LIMIT 1`
	var rec models.LoginChallenge
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find login challenge by id: %w", err)
	}
	return &rec, nil
}

// ApproveChallenge performs the single pending-to-approved transition,
// storing the minted session token. Returns sql.ErrNoRows if the challenge
// was already approved by a concurrent confirmer.
func (r *VerificationRepository) ApproveChallenge(ctx context.Context, id string, approvedAt time.Time, sessionToken string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE login_challenges SET approved_at = $2, session_token = $3 WHERE id = $1 AND approved_at IS NULL`,
		id, approvedAt, sessionToken)
	if err != nil {
		return fmt.Errorf("approve login challenge: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve login challenge: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
