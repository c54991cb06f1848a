package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/edulearn-api/internal/models"
	"github.com/noah-isme/edulearn-api/internal/notifier"
	appErrors "github.com/noah-isme/edulearn-api/pkg/errors"
)

type signupUserRepository interface {
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
}

type signupVerificationRepository interface {
	CreateSignup(ctx context.Context, rec *models.SignupVerification) error
	FindLatestSignupByEmail(ctx context.Context, email string) (*models.SignupVerification, error)
	FindLatestUnusedSignup(ctx context.Context, email, code string) (*models.SignupVerification, error)
	UpdateSignupDelivery(ctx context.Context, id string, deliveryID, deliveryErr *string) error
	ConsumeSignup(ctx context.Context, id string, usedAt time.Time, user *models.User) error
}

// SignupService handles email-verified registration. An account only
// exists after its code is consumed; until then registration lives as
// pending verification records.
type SignupService struct {
	users         signupUserRepository
	verifications signupVerificationRepository
	notifier      notifier.Notifier
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewSignupService constructs a SignupService instance.
func NewSignupService(
	users signupUserRepository,
	verifications signupVerificationRepository,
	sender notifier.Notifier,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *SignupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SignupService{
		users:         users,
		verifications: verifications,
		notifier:      sender,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
	}
}

// Register starts the signup flow: hashes the password, stores a pending
// verification record and emails the code. Public registration always
// yields a student account.
func (s *SignupService) Register(ctx context.Context, req models.RegisterRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	taken, err := s.users.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing users")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, "username or email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	rec := &models.SignupVerification{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleStudent,
	}
	if err := s.issueSignupCode(ctx, rec); err != nil {
		return err
	}

	s.metrics.IncCode("signup", "issued")
	return nil
}

// VerifyEmail consumes a signup code and creates the account. The most
// recently created unused record matching email+code wins; the redemption
// and the account insert are one transaction.
func (s *SignupService) VerifyEmail(ctx context.Context, req models.VerifyEmailRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}

	rec, err := s.verifications.FindLatestUnusedSignup(ctx, req.Email, req.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.IncCode("signup", "invalid")
			return nil, appErrors.Clone(appErrors.ErrInvalidCode, "invalid or already used code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up verification")
	}

	if time.Now().UTC().After(rec.ExpiresAt) {
		s.metrics.IncCode("signup", "expired")
		return nil, appErrors.Clone(appErrors.ErrCodeExpired, "verification code has expired")
	}

	user := &models.User{
		Username:     rec.Username,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		FullName:     rec.FullName,
		Role:         rec.Role,
		Status:       models.StatusActive,
	}
	if err := s.verifications.ConsumeSignup(ctx, rec.ID, time.Now().UTC(), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.IncCode("signup", "invalid")
			return nil, appErrors.Clone(appErrors.ErrInvalidCode, "invalid or already used code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume verification")
	}

	s.metrics.IncCode("signup", "consumed")
	s.logger.Info("account verified", zap.String("user_id", user.ID), zap.String("email", user.Email))

	return &models.UserInfo{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	}, nil
}

// Resend reissues a code for a pending registration, reusing the payload
// of the most recent record for the email.
func (s *SignupService) Resend(ctx context.Context, req models.ResendCodeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resend payload")
	}

	latest, err := s.verifications.FindLatestSignupByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no pending registration for this email")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up registration")
	}
	if latest.UsedAt != nil {
		return appErrors.Clone(appErrors.ErrConflict, "email is already verified")
	}

	rec := &models.SignupVerification{
		Email:        latest.Email,
		Username:     latest.Username,
		PasswordHash: latest.PasswordHash,
		FullName:     latest.FullName,
		Role:         latest.Role,
	}
	if err := s.issueSignupCode(ctx, rec); err != nil {
		return err
	}

	s.metrics.IncCode("signup", "resent")
	return nil
}

// issueSignupCode generates the code, persists a fresh pending record and
// dispatches the email. The delivery outcome lands on the record either
// way; a send failure surfaces to the caller while the record stays
// usable for a resend.
func (s *SignupService) issueSignupCode(ctx context.Context, rec *models.SignupVerification) error {
	code, err := generateCode()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
	}

	now := time.Now().UTC()
	rec.Code = code
	rec.CreatedAt = now
	rec.ExpiresAt = now.Add(models.SignupCodeTTL)

	if err := s.verifications.CreateSignup(ctx, rec); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist verification")
	}

	receipt, sendErr := s.notifier.Send(ctx, notifier.Message{
		To:      rec.Email,
		Subject: "Verify your EduLearn account",
		Body: fmt.Sprintf("Hi %s,\n\nYour verification code is: %s\n\nIt expires in 15 minutes. If you did not sign up, ignore this email.",
			displayName(rec), code),
	})

	var deliveryID, deliveryErr *string
	if sendErr != nil {
		msg := sendErr.Error()
		deliveryErr = &msg
	} else {
		id := receipt.MessageID
		if receipt.Dev {
			id = "dev:" + id
		}
		deliveryID = &id
	}
	if err := s.verifications.UpdateSignupDelivery(ctx, rec.ID, deliveryID, deliveryErr); err != nil {
		s.logger.Warn("failed to persist delivery outcome", zap.String("verification_id", rec.ID), zap.Error(err))
	}

	if sendErr != nil {
		s.logger.Error("failed to deliver verification code", zap.String("verification_id", rec.ID), zap.Error(sendErr))
		return appErrors.Clone(appErrors.ErrDelivery, "failed to send verification email")
	}
	return nil
}

func displayName(rec *models.SignupVerification) string {
	if rec.FullName != "" {
		return rec.FullName
	}
	return rec.Username
}
