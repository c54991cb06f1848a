package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/edulearn-api/internal/models"
	"github.com/noah-isme/edulearn-api/internal/notifier"
	"github.com/noah-isme/edulearn-api/internal/repository"
	"github.com/noah-isme/edulearn-api/internal/router"
	"github.com/noah-isme/edulearn-api/internal/service"
	"github.com/noah-isme/edulearn-api/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:     config.EnvDevelopment,
		Port:    4000,
		BaseURL: "http://localhost:4000",
		JWT: config.JWTConfig{
			Secret:        "test-secret",
			SessionExpiry: time.Hour,
			Issuer:        "edulearn-api",
		},
		Trust: config.TrustConfig{PrivateCIDRs: []string{"10.0.0.0/8", "127.0.0.0/8"}},
		RateLimit: config.RateLimitConfig{
			LoginPerMinute:    100,
			RegisterPerMinute: 100,
		},
	}
}

func newTestStack(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "sqlmock")

	cfg := testConfig()

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	verifications := repository.NewVerificationRepository(db)
	devices := repository.NewDeviceRepository(db)
	activity := repository.NewActivityRepository(db)
	courses := repository.NewCourseRepository(db)
	cacheRepo := repository.NewCacheRepository(nil, nil)

	mailer := notifier.NewSMTPNotifier(cfg.SMTP, nil)

	authSvc := service.NewAuthService(users, sessions, verifications, activity, mailer, cacheRepo, nil, nil, nil, service.AuthConfig{
		TokenSecret:   cfg.JWT.Secret,
		SessionExpiry: cfg.JWT.SessionExpiry,
		Issuer:        cfg.JWT.Issuer,
		BaseURL:       cfg.BaseURL,
	})
	signupSvc := service.NewSignupService(users, verifications, mailer, nil, nil, nil)
	passwordSvc := service.NewPasswordService(users, verifications, sessions, mailer, nil, nil, nil)
	userSvc := service.NewUserService(users, sessions, activity, nil, nil)
	courseSvc := service.NewCourseService(courses, nil, nil)
	deviceSvc := service.NewDeviceService(devices, nil)

	r, err := router.New(router.Dependencies{
		Config:      cfg,
		DB:          db,
		Auth:        authSvc,
		Signup:      signupSvc,
		Password:    passwordSvc,
		Users:       userSvc,
		Courses:     courseSvc,
		Device:      deviceSvc,
		Activity:    activity,
		Devices:     devices,
		RateCounter: cacheRepo,
	})
	require.NoError(t, err)
	return r, mock
}

func userRow(id, username string, role models.UserRole, passwordHash string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "email", "phone", "password_hash", "full_name", "role", "status", "permissions", "created_by", "last_login", "created_at", "updated_at"}).
		AddRow(id, username, username+"@edulearn.id", nil, passwordHash, "Test User", role, models.StatusActive, pq.StringArray(models.TeacherPermissions), nil, nil, time.Now(), time.Now())
}

func TestRouterHealth(t *testing.T) {
	r, _ := newTestStack(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterMeWithoutToken(t *testing.T) {
	r, _ := newTestStack(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouterAdminGroupWithoutToken(t *testing.T) {
	r, _ := newTestStack(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouterLoginThenAuthenticatedRead(t *testing.T) {
	r, mock := newTestStack(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("teacher-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT .+ FROM users WHERE username").
		WithArgs("guru").
		WillReturnRows(userRow("tch-1", "guru", models.RoleTeacher, string(hash)))
	mock.ExpectExec("INSERT INTO sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET last_login").
		WillReturnResult(sqlmock.NewResult(1, 1))

	body, _ := json.Marshal(models.LoginRequest{Username: "guru", Password: "teacher-pass"})
	loginReq := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	loginReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, loginReq)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	token := envelope.Data.Token
	require.NotEmpty(t, token)

	mock.ExpectQuery("SELECT .+ FROM sessions WHERE token").
		WithArgs(token).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "ip_address", "device_info", "created_at", "expires_at"}).
			AddRow("ses-1", "tch-1", token, "10.0.0.5", "go-test", time.Now(), time.Now().Add(time.Hour)))
	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs("tch-1").
		WillReturnRows(userRow("tch-1", "guru", models.RoleTeacher, string(hash)))
	mock.ExpectQuery("SELECT .+ FROM courses WHERE lecturer_id").
		WithArgs("tch-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "lecturer_id", "status", "created_at", "updated_at"}))
	mock.ExpectExec("INSERT INTO activity_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	listReq := httptest.NewRequest(http.MethodGet, "/teacher/courses", nil)
	listReq.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, listReq)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRouterUntrustedWriteRejected(t *testing.T) {
	r, mock := newTestStack(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("teacher-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT .+ FROM users WHERE username").
		WithArgs("guru").
		WillReturnRows(userRow("tch-1", "guru", models.RoleTeacher, string(hash)))
	mock.ExpectExec("INSERT INTO sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET last_login").
		WillReturnResult(sqlmock.NewResult(1, 1))

	body, _ := json.Marshal(models.LoginRequest{Username: "guru", Password: "teacher-pass"})
	loginReq := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	loginReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, loginReq)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	token := envelope.Data.Token

	mock.ExpectQuery("SELECT .+ FROM sessions WHERE token").
		WithArgs(token).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "ip_address", "device_info", "created_at", "expires_at"}).
			AddRow("ses-1", "tch-1", token, "203.0.113.9", "go-test", time.Now(), time.Now().Add(time.Hour)))
	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs("tch-1").
		WillReturnRows(userRow("tch-1", "guru", models.RoleTeacher, string(hash)))
	mock.ExpectExec("UPDATE trusted_devices SET last_seen").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO activity_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	createBody, _ := json.Marshal(models.CreateCourseRequest{Title: "Algebra I"})
	createReq := httptest.NewRequest(http.MethodPost, "/teacher/courses", bytes.NewReader(createBody))
	createReq.Header.Set("Content-Type", "application/json")
	createReq.Header.Set("Authorization", "Bearer "+token)
	createReq.RemoteAddr = "203.0.113.9:51234"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, createReq)

	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "UNTRUSTED_DEVICE")
	require.NoError(t, mock.ExpectationsWereMet())
}
