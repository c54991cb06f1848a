package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/edulearn-api/internal/models"
	appErrors "github.com/noah-isme/edulearn-api/pkg/errors"
)

type adminUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	UpdatePermissions(ctx context.Context, id string, permissions []string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

type activityLister interface {
	ListActivity(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error)
}

// UserService provides the admin account-management use cases. No
// operation here can create or remove an admin.
type UserService struct {
	users     adminUserRepository
	sessions  sessionRevoker
	activity  activityLister
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(
	users adminUserRepository,
	sessions sessionRevoker,
	activity activityLister,
	validate *validator.Validate,
	logger *zap.Logger,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{
		users:     users,
		sessions:  sessions,
		activity:  activity,
		validator: validate,
		logger:    logger,
	}
}

// CreateTeacher provisions a teacher account with the default permission
// baseline and stamps who created it.
func (s *UserService) CreateTeacher(ctx context.Context, adminID string, req models.CreateTeacherRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	taken, err := s.users.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing users")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username or email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleTeacher,
		Status:       models.StatusActive,
		Permissions:  append(pq.StringArray(nil), models.DefaultTeacherPermissions...),
		CreatedBy:    &adminID,
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}

	s.logger.Info("teacher account created", zap.String("teacher_id", user.ID), zap.String("created_by", adminID))

	return &models.UserInfo{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FullName:    user.FullName,
		Role:        user.Role,
		Permissions: user.Permissions,
	}, nil
}

// ListUsers returns users matching the filter with pagination metadata.
func (s *UserService) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// UpdateStatus changes an account's status. Leaving active revokes every
// session the user holds so the change takes effect immediately.
func (s *UserService) UpdateStatus(ctx context.Context, targetID string, req models.UpdateStatusRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	target, err := s.loadTarget(ctx, targetID)
	if err != nil {
		return err
	}

	if err := s.users.UpdateStatus(ctx, target.ID, req.Status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}

	if req.Status != models.StatusActive {
		if err := s.sessions.DeleteByUser(ctx, target.ID); err != nil {
			s.logger.Warn("failed to revoke sessions on status change", zap.String("user_id", target.ID), zap.Error(err))
		}
	}

	s.logger.Info("user status updated", zap.String("user_id", target.ID), zap.String("status", string(req.Status)))
	return nil
}

// UpdatePermissions replaces a teacher's capability set. Only teacher
// accounts can be targeted and every capability must come from the
// catalogue.
func (s *UserService) UpdatePermissions(ctx context.Context, targetID string, req models.UpdatePermissionsRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid permissions payload")
	}

	target, err := s.loadTarget(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrValidation, "permissions can only be assigned to teachers")
	}

	for _, p := range req.Permissions {
		if !models.IsKnownPermission(p) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown permission %q", p))
		}
	}

	if err := s.users.UpdatePermissions(ctx, target.ID, req.Permissions); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update permissions")
	}

	s.logger.Info("teacher permissions updated", zap.String("user_id", target.ID), zap.Int("count", len(req.Permissions)))
	return nil
}

// DeleteUser removes a teacher or student account. Admin accounts can
// never be deleted through the API.
func (s *UserService) DeleteUser(ctx context.Context, targetID string) error {
	target, err := s.loadTarget(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Role == models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "admin accounts cannot be deleted")
	}

	if err := s.sessions.DeleteByUser(ctx, target.ID); err != nil {
		s.logger.Warn("failed to revoke sessions before delete", zap.String("user_id", target.ID), zap.Error(err))
	}
	if err := s.users.Delete(ctx, target.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	s.logger.Info("user deleted", zap.String("user_id", target.ID), zap.String("role", string(target.Role)))
	return nil
}

// ListActivity returns recent activity log entries.
func (s *UserService) ListActivity(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error) {
	logs, err := s.activity.ListActivity(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity logs")
	}
	return logs, nil
}

func (s *UserService) loadTarget(ctx context.Context, id string) (*models.User, error) {
	target, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return target, nil
}
