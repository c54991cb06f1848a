package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edulearn-api/internal/models"
)

// ActivityRepository stores activity and failed-login records.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new instance of ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// CreateActivity stores an activity log entry.
func (r *ActivityRepository) CreateActivity(ctx context.Context, log *models.ActivityLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO activity_logs (id, user_id, action, target, ip_address, device_info, status, timestamp)
		VALUES (:id, :user_id, :action, :target, :ip_address, :device_info, :status, :timestamp)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

// ListActivity returns recent activity, newest first.
func (r *ActivityRepository) ListActivity(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error) {
	baseQuery := `FROM activity_logs WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := fmt.Sprintf("SELECT id, user_id, action, target, ip_address, device_info, status, timestamp %s ORDER BY timestamp DESC LIMIT %d", baseQuery, limit)

	var logs []models.ActivityLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	return logs, nil
}

// CreateFailedLogin records a credential failure.
func (r *ActivityRepository) CreateFailedLogin(ctx context.Context, rec *models.FailedLogin) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO failed_logins (id, username, ip_address, timestamp)
		VALUES (:id, :username, :ip_address, :timestamp)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("create failed login: %w", err)
	}
	return nil
}
