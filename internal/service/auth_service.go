package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/edulearn-api/internal/models"
	"github.com/noah-isme/edulearn-api/internal/notifier"
	appErrors "github.com/noah-isme/edulearn-api/pkg/errors"
)

type authUserRepository interface {
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

type authSessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type authChallengeRepository interface {
	CreateChallenge(ctx context.Context, rec *models.LoginChallenge) error
	FindChallengeByToken(ctx context.Context, token string) (*models.LoginChallenge, error)
	FindChallengeByID(ctx context.Context, id string) (*models.LoginChallenge, error)
	ApproveChallenge(ctx context.Context, id string, approvedAt time.Time, sessionToken string) error
}

type authActivityRepository interface {
	CreateFailedLogin(ctx context.Context, rec *models.FailedLogin) error
}

type statusCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

const challengeStatusCacheTTL = 5 * time.Minute

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret   string
	SessionExpiry time.Duration
	Issuer        string
	BaseURL       string
}

// AuthService provides login, session and login-challenge use cases.
type AuthService struct {
	users      authUserRepository
	sessions   authSessionRepository
	challenges authChallengeRepository
	activity   authActivityRepository
	notifier   notifier.Notifier
	cache      statusCache
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	config     AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	users authUserRepository,
	sessions authSessionRepository,
	challenges authChallengeRepository,
	activity authActivityRepository,
	sender notifier.Notifier,
	cache statusCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	config AuthConfig,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		challenges: challenges,
		activity:   activity,
		notifier:   sender,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		config:     config,
	}
}

// Login authenticates a user. It returns either an issued session or a
// pending challenge, never both. A repeat student login (last_login
// already set) must be confirmed via emailed link before a session is
// granted; first-ever logins and admin/teacher logins get a session
// immediately.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, *models.ChallengeResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByIdentifier(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordFailedLogin(ctx, req)
			s.metrics.IncLogin("invalid_credentials")
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "Invalid credentials")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordFailedLogin(ctx, req)
		s.metrics.IncLogin("invalid_credentials")
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "Invalid credentials")
	}

	if user.Status != models.StatusActive {
		s.metrics.IncLogin("inactive")
		return nil, nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is not active")
	}

	if user.Role == models.RoleStudent && user.LastLogin != nil {
		challenge, err := s.issueChallenge(ctx, user, req)
		if err != nil {
			return nil, nil, err
		}
		s.metrics.IncLogin("challenged")
		return nil, challenge, nil
	}

	token, err := s.issueSession(ctx, user, req.IP, req.UserAgent)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	s.metrics.IncLogin("success")
	return &models.LoginResponse{Token: token, Role: user.Role}, nil, nil
}

// ConfirmChallenge approves a pending login challenge by its confirmation
// token and mints the session the waiting client will collect. Confirming
// an already-approved challenge is benign; an expired one is permanently
// dead.
func (s *AuthService) ConfirmChallenge(ctx context.Context, token string) error {
	challenge, err := s.challenges.FindChallengeByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "challenge not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load challenge")
	}

	if challenge.Approved() {
		return nil
	}
	if challenge.Expired(time.Now().UTC()) {
		s.metrics.IncChallenge("expired")
		return appErrors.Clone(appErrors.ErrCodeExpired, "challenge has expired")
	}

	user, err := s.users.FindByID(ctx, challenge.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user no longer exists")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Status != models.StatusActive {
		return appErrors.Clone(appErrors.ErrInactiveAccount, "account is not active")
	}

	// IP and device come from challenge-creation time, not confirmation
	// time: the confirming device may be a different one.
	sessionToken, err := s.issueSession(ctx, user, challenge.IPAddress, challenge.DeviceInfo)
	if err != nil {
		return err
	}

	if err := s.challenges.ApproveChallenge(ctx, challenge.ID, time.Now().UTC(), sessionToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A concurrent confirmer won the single approval transition.
			// Drop the session we minted; theirs is the one handed back.
			if delErr := s.sessions.DeleteByToken(ctx, sessionToken); delErr != nil {
				s.logger.Warn("failed to discard losing challenge session", zap.Error(delErr))
			}
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve challenge")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	s.metrics.IncChallenge("approved")
	return nil
}

// ChallengeStatus reports whether a challenge has been approved. The
// session token is only revealed once approval happened.
func (s *AuthService) ChallengeStatus(ctx context.Context, id string) (*models.ChallengeStatusResponse, error) {
	cacheKey := "challenge:status:" + id
	if s.cache != nil {
		var cached models.ChallengeStatusResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil && cached.Approved {
			return &cached, nil
		}
	}

	challenge, err := s.challenges.FindChallengeByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "challenge not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load challenge")
	}

	resp := &models.ChallengeStatusResponse{Approved: challenge.Approved()}
	if challenge.Approved() && challenge.SessionToken != nil {
		resp.Token = *challenge.SessionToken
	}

	// Approval is terminal, so only approved statuses are cacheable.
	if s.cache != nil && resp.Approved {
		if err := s.cache.Set(ctx, cacheKey, resp, challengeStatusCacheTTL); err != nil {
			s.logger.Warn("failed to cache challenge status", zap.Error(err))
		}
	}
	return resp, nil
}

// Authenticate resolves a bearer token into a live user. The token must
// verify cryptographically AND a matching session record must still
// exist; the user is reloaded so status changes take effect immediately.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, *models.JWTClaims, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "session revoked")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		if err := s.sessions.DeleteByToken(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "session expired")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "user no longer exists")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Status != models.StatusActive {
		return nil, nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is not active")
	}

	return user, claims, nil
}

// Logout revokes the presented session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke session")
	}
	return nil
}

// RevokeUserSessions force-invalidates every session a user holds.
func (s *AuthService) RevokeUserSessions(ctx context.Context, userID string) error {
	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke user sessions")
	}
	return nil
}

// ValidateToken parses and validates a session token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User, ip, deviceInfo string) (string, error) {
	signed, expiresAt, err := s.signToken(user)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	session := &models.Session{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Token:      signed,
		IPAddress:  ip,
		DeviceInfo: deviceInfo,
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  expiresAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}
	return signed, nil
}

func (s *AuthService) issueChallenge(ctx context.Context, user *models.User, req models.LoginRequest) (*models.ChallengeResponse, error) {
	token, err := generateOpaqueToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create challenge token")
	}

	now := time.Now().UTC()
	challenge := &models.LoginChallenge{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Token:      token,
		IPAddress:  req.IP,
		DeviceInfo: req.UserAgent,
		CreatedAt:  now,
		ExpiresAt:  now.Add(models.LoginChallengeTTL),
	}
	if err := s.challenges.CreateChallenge(ctx, challenge); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist challenge")
	}

	confirmURL := fmt.Sprintf("%s/auth/confirm-login?token=%s", s.config.BaseURL, token)
	receipt, err := s.notifier.Send(ctx, notifier.Message{
		To:      user.Email,
		Subject: "Confirm your login",
		Body: fmt.Sprintf("A login to your account was attempted from %s.\n\nIf this was you, confirm it by opening the link below within 10 minutes:\n\n%s\n\nIf this was not you, change your password immediately.",
			req.IP, confirmURL),
	})
	if err != nil {
		// The challenge row stays; a fresh login attempt issues a new one.
		s.logger.Error("failed to deliver login confirmation", zap.String("challenge_id", challenge.ID), zap.Error(err))
		s.metrics.IncChallenge("delivery_failed")
		return nil, appErrors.Clone(appErrors.ErrDelivery, "failed to send login confirmation email")
	}
	s.logger.Info("login confirmation sent",
		zap.String("challenge_id", challenge.ID),
		zap.String("message_id", receipt.MessageID),
		zap.Bool("dev", receipt.Dev),
	)

	s.metrics.IncChallenge("created")
	return &models.ChallengeResponse{
		Message:     "Confirm this login from your email to continue",
		ChallengeID: challenge.ID,
	}, nil
}

func (s *AuthService) signToken(user *models.User) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.SessionExpiry)
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *AuthService) recordFailedLogin(ctx context.Context, req models.LoginRequest) {
	if err := s.activity.CreateFailedLogin(ctx, &models.FailedLogin{
		Username:  req.Username,
		IPAddress: req.IP,
	}); err != nil {
		s.logger.Warn("failed to record failed login", zap.Error(err))
	}
}
