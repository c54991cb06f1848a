package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edulearn-api/internal/middleware"
	"github.com/noah-isme/edulearn-api/internal/models"
	"github.com/noah-isme/edulearn-api/internal/service"
)

type stubAdminUsers struct {
	users   map[string]*models.User
	created []*models.User
}

func (s *stubAdminUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubAdminUsers) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubAdminUsers) Create(ctx context.Context, user *models.User) error {
	if s.users == nil {
		s.users = make(map[string]*models.User)
	}
	s.users[user.ID] = user
	s.created = append(s.created, user)
	return nil
}

func (s *stubAdminUsers) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	s.users[id].Status = status
	return nil
}

func (s *stubAdminUsers) UpdatePermissions(ctx context.Context, id string, permissions []string) error {
	s.users[id].Permissions = pq.StringArray(permissions)
	return nil
}

func (s *stubAdminUsers) Delete(ctx context.Context, id string) error {
	delete(s.users, id)
	return nil
}

func (s *stubAdminUsers) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

type stubRevoker struct {
	revoked []string
}

func (s *stubRevoker) DeleteByUser(ctx context.Context, userID string) error {
	s.revoked = append(s.revoked, userID)
	return nil
}

type stubActivityLister struct {
	logs []models.ActivityLog
}

func (s *stubActivityLister) ListActivity(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error) {
	return s.logs, nil
}

func newAdminTestHandler(users ...*models.User) (*AdminHandler, *stubAdminUsers, *stubRevoker) {
	repo := &stubAdminUsers{users: map[string]*models.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	revoker := &stubRevoker{}
	svc := service.NewUserService(repo, revoker, &stubActivityLister{}, nil, nil)
	return NewAdminHandler(svc), repo, revoker
}

func asAdmin(c *gin.Context) {
	c.Set(middleware.ContextAccountKey, &models.User{ID: "adm-1", Username: "admin", Role: models.RoleAdmin})
}

func TestAdminHandlerCreateTeacher(t *testing.T) {
	handler, repo, _ := newAdminTestHandler()

	c, w := postJSON(t, "/admin/teachers", models.CreateTeacherRequest{
		Username: "guru",
		Email:    "guru@edulearn.id",
		Password: "teacher-pass",
		FullName: "Pak Guru",
	})
	asAdmin(c)
	handler.CreateTeacher(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.created, 1)
	assert.Equal(t, models.RoleTeacher, repo.created[0].Role)
	assert.NotEmpty(t, repo.created[0].Permissions)

	var envelope struct {
		Data models.UserInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "guru", envelope.Data.Username)
}

func TestAdminHandlerCreateTeacherDuplicate(t *testing.T) {
	existing := &models.User{ID: "usr-1", Username: "guru", Email: "guru@edulearn.id", Role: models.RoleTeacher}
	handler, _, _ := newAdminTestHandler(existing)

	c, w := postJSON(t, "/admin/teachers", models.CreateTeacherRequest{
		Username: "guru",
		Email:    "other@edulearn.id",
		Password: "teacher-pass",
		FullName: "Pak Guru",
	})
	asAdmin(c)
	handler.CreateTeacher(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminHandlerUpdateStatusRevokesSessions(t *testing.T) {
	target := &models.User{ID: "usr-1", Username: "guru", Role: models.RoleTeacher, Status: models.StatusActive}
	handler, repo, revoker := newAdminTestHandler(target)

	c, w := postJSON(t, "/admin/users/usr-1/status", models.UpdateStatusRequest{Status: "blocked"})
	c.Params = gin.Params{{Key: "id", Value: "usr-1"}}
	asAdmin(c)
	handler.UpdateStatus(c)

	// A body-less status is deferred by gin until a write happens.
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, models.StatusBlocked, repo.users["usr-1"].Status)
	assert.Equal(t, []string{"usr-1"}, revoker.revoked)
}

func TestAdminHandlerUpdatePermissionsUnknownCapability(t *testing.T) {
	target := &models.User{ID: "usr-1", Username: "guru", Role: models.RoleTeacher, Status: models.StatusActive}
	handler, _, _ := newAdminTestHandler(target)

	c, w := postJSON(t, "/admin/users/usr-1/permissions", models.UpdatePermissionsRequest{Permissions: []string{"nonsense:cap"}})
	c.Params = gin.Params{{Key: "id", Value: "usr-1"}}
	asAdmin(c)
	handler.UpdatePermissions(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandlerDeleteAdminForbidden(t *testing.T) {
	other := &models.User{ID: "adm-2", Username: "root", Role: models.RoleAdmin}
	handler, _, _ := newAdminTestHandler(other)

	c, w := getRequest(t, "/admin/users/adm-2")
	c.Request.Method = http.MethodDelete
	c.Params = gin.Params{{Key: "id", Value: "adm-2"}}
	asAdmin(c)
	handler.DeleteUser(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
