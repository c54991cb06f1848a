package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edulearn-api/internal/models"
	"github.com/noah-isme/edulearn-api/internal/service"
	appErrors "github.com/noah-isme/edulearn-api/pkg/errors"
	"github.com/noah-isme/edulearn-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth, signup and password
// services.
type AuthHandler struct {
	auth     *service.AuthService
	signup   *service.SignupService
	password *service.PasswordService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth *service.AuthService, signup *service.SignupService, password *service.PasswordService) *AuthHandler {
	return &AuthHandler{auth: auth, signup: signup, password: password}
}

// Register godoc
// @Summary Register a student account
// @Description Start email verification for a new student account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	if err := h.signup.Register(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, gin.H{"message": "verification code sent to your email"}, nil)
}

// VerifyEmail godoc
// @Summary Verify email and create the account
// @Description Consume a signup code; the account exists only after this succeeds
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.VerifyEmailRequest true "Verification payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req models.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verification payload"))
		return
	}

	info, err := h.signup.VerifyEmail(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, info, nil)
}

// ResendCode godoc
// @Summary Resend a signup verification code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ResendCodeRequest true "Resend payload"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/resend-code [post]
func (h *AuthHandler) ResendCode(c *gin.Context) {
	var req models.ResendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resend payload"))
		return
	}

	if err := h.signup.Resend(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, gin.H{"message": "verification code sent to your email"}, nil)
}

// Login godoc
// @Summary Authenticate user
// @Description Credential check; returns a session token or a pending challenge id
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, challenge, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if challenge != nil {
		response.JSON(c, http.StatusAccepted, challenge, nil)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// ConfirmLogin godoc
// @Summary Confirm a challenged login
// @Description Visited from the emailed link; possession of the token is the credential
// @Tags Authentication
// @Produce html
// @Param token query string true "Challenge token"
// @Success 200 {string} string "HTML confirmation page"
// @Failure 400 {object} response.Envelope
// @Router /auth/confirm-login [get]
func (h *AuthHandler) ConfirmLogin(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	if err := h.auth.ConfirmChallenge(c.Request.Context(), token); err != nil {
		appErr := appErrors.FromError(err)
		c.Data(appErr.Status, "text/html; charset=utf-8", []byte(confirmFailurePage(appErr.Message)))
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(confirmSuccessPage))
}

// ChallengeStatus godoc
// @Summary Poll a login challenge
// @Description Returns {approved, token?} for the waiting client
// @Tags Authentication
// @Produce json
// @Param id query string true "Challenge id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/challenge-status [get]
func (h *AuthHandler) ChallengeStatus(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id is required"))
		return
	}

	status, err := h.auth.ChallengeStatus(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, status, nil)
}

// ForgotPassword godoc
// @Summary Request a password reset code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ForgotPasswordRequest true "Forgot password payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/forgot-password/request [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.password.Forgot(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, gin.H{"message": "if the account exists, a reset code will be sent"}, nil)
}

// ResetPassword godoc
// @Summary Reset password with a code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ResetPasswordRequest true "Reset password payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/forgot-password/reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.password.Reset(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Logout godoc
// @Summary Revoke the current session
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token := tokenFromContext(c)
	if token == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's info
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := accountFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	info := models.UserInfo{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FullName:    user.FullName,
		Role:        user.Role,
		Permissions: user.Permissions,
		LastLogin:   user.LastLogin,
	}

	response.JSON(c, http.StatusOK, info, nil)
}

const confirmSuccessPage = `<!DOCTYPE html>
<html>
<head><title>Login confirmed</title></head>
<body>
<h1>Login confirmed</h1>
<p>You can return to your other device; it will be signed in shortly.</p>
</body>
</html>`

func confirmFailurePage(reason string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Login confirmation failed</title></head>
<body>
<h1>Login confirmation failed</h1>
<p>%s</p>
</body>
</html>`, reason)
}
