package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user. Identifier
// matches either username or email.
type LoginRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued session token.
type LoginResponse struct {
	Token string   `json:"token"`
	Role  UserRole `json:"role"`
}

// ChallengeResponse is returned with 202 when a login requires email
// confirmation before a session is granted.
type ChallengeResponse struct {
	Message     string `json:"message"`
	ChallengeID string `json:"challenge_id"`
}

// ChallengeStatusResponse is polled by the waiting client.
type ChallengeStatusResponse struct {
	Approved bool   `json:"approved"`
	Token    string `json:"token,omitempty"`
}

// RegisterRequest starts the signup verification flow. Public registration
// always yields a student account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=8"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"omitempty,max=120"`
}

// VerifyEmailRequest consumes a signup code and creates the account.
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// ResendCodeRequest reissues a signup code for a pending registration.
type ResendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPasswordRequest initiates a password reset. Only the email channel
// is supported; channel=sms is rejected.
type ForgotPasswordRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Channel    string `json:"channel" validate:"omitempty,oneof=email sms"`
}

// ResetPasswordRequest consumes a reset code and updates the password hash.
type ResetPasswordRequest struct {
	Identifier  string `json:"identifier" validate:"required"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Role        UserRole   `json:"role"`
	Permissions []string   `json:"permissions,omitempty"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// JWTClaims represents the signed session token payload.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
