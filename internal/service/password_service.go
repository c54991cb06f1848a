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

type passwordUserRepository interface {
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

type passwordResetRepository interface {
	CreateReset(ctx context.Context, rec *models.PasswordReset) error
	FindLatestUnusedReset(ctx context.Context, userID, code string) (*models.PasswordReset, error)
	MarkResetUsed(ctx context.Context, id string, usedAt time.Time) error
	UpdateResetDelivery(ctx context.Context, id string, deliveryID, deliveryErr *string) error
}

type sessionRevoker interface {
	DeleteByUser(ctx context.Context, userID string) error
}

// PasswordService handles the forgot/reset flow.
type PasswordService struct {
	users     passwordUserRepository
	resets    passwordResetRepository
	sessions  sessionRevoker
	notifier  notifier.Notifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPasswordService constructs a PasswordService instance.
func NewPasswordService(
	users passwordUserRepository,
	resets passwordResetRepository,
	sessions sessionRevoker,
	sender notifier.Notifier,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *PasswordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PasswordService{
		users:     users,
		resets:    resets,
		sessions:  sessions,
		notifier:  sender,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Forgot issues a reset code for the account behind the identifier. An
// unknown identifier returns success so the endpoint cannot be used to
// enumerate accounts. The sms channel is disabled.
func (s *PasswordService) Forgot(ctx context.Context, req models.ForgotPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid forgot password payload")
	}
	if req.Channel == "sms" {
		return appErrors.Clone(appErrors.ErrValidation, "sms delivery is not supported")
	}

	user, err := s.users.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("password reset requested for unknown identifier")
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up user")
	}

	code, err := generateCode()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
	}

	now := time.Now().UTC()
	rec := &models.PasswordReset{
		UserID:    user.ID,
		Channel:   "email",
		Target:    user.Email,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(models.ResetCodeTTL),
	}
	if err := s.resets.CreateReset(ctx, rec); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist reset code")
	}

	receipt, sendErr := s.notifier.Send(ctx, notifier.Message{
		To:      user.Email,
		Subject: "Reset your EduLearn password",
		Body: fmt.Sprintf("Hi %s,\n\nYour password reset code is: %s\n\nIt expires in 10 minutes. If you did not request this, you can ignore this email.",
			user.FullName, code),
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
	if err := s.resets.UpdateResetDelivery(ctx, rec.ID, deliveryID, deliveryErr); err != nil {
		s.logger.Warn("failed to persist delivery outcome", zap.String("reset_id", rec.ID), zap.Error(err))
	}

	if sendErr != nil {
		s.logger.Error("failed to deliver reset code", zap.String("reset_id", rec.ID), zap.Error(sendErr))
		return appErrors.Clone(appErrors.ErrDelivery, "failed to send reset email")
	}

	s.metrics.IncCode("reset", "issued")
	return nil
}

// Reset consumes a reset code, replaces the password hash and revokes
// every live session of the user.
func (s *PasswordService) Reset(ctx context.Context, req models.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reset password payload")
	}

	user, err := s.users.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.IncCode("reset", "invalid")
			return appErrors.Clone(appErrors.ErrInvalidCode, "invalid or already used code")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up user")
	}

	rec, err := s.resets.FindLatestUnusedReset(ctx, user.ID, req.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.IncCode("reset", "invalid")
			return appErrors.Clone(appErrors.ErrInvalidCode, "invalid or already used code")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up reset code")
	}

	if time.Now().UTC().After(rec.ExpiresAt) {
		s.metrics.IncCode("reset", "expired")
		return appErrors.Clone(appErrors.ErrCodeExpired, "reset code has expired")
	}

	if err := s.resets.MarkResetUsed(ctx, rec.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.IncCode("reset", "invalid")
			return appErrors.Clone(appErrors.ErrInvalidCode, "invalid or already used code")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume reset code")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	if err := s.sessions.DeleteByUser(ctx, user.ID); err != nil {
		s.logger.Warn("failed to revoke sessions after password reset", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.metrics.IncCode("reset", "consumed")
	return nil
}
