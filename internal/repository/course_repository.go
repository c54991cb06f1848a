package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/edulearn-api/internal/models"
)

const pgUniqueViolation = "23505"

// ErrDuplicateCode signals a join/course code collided with an existing
// row on its unique index.
var ErrDuplicateCode = errors.New("duplicate code")

// CourseRepository provides access to courses, classrooms and enrollments.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new instance of CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// CreateCourse inserts a course owned by a teacher.
func (r *CourseRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	if course.Status == "" {
		course.Status = "active"
	}
	const query = `INSERT INTO courses (id, title, description, lecturer_id, status, created_at, updated_at)
		VALUES (:id, :title, :description, :lecturer_id, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// FindCourseByID returns a course by identifier.
func (r *CourseRepository) FindCourseByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, title, description, lecturer_id, status, created_at, updated_at FROM courses WHERE id = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// ListCoursesByLecturer returns a teacher's own courses, newest first.
func (r *CourseRepository) ListCoursesByLecturer(ctx context.Context, lecturerID string) ([]models.Course, error) {
	const query = `SELECT id, title, description, lecturer_id, status, created_at, updated_at
		FROM courses WHERE lecturer_id = $1 ORDER BY created_at DESC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, lecturerID); err != nil {
		return nil, fmt.Errorf("list courses by lecturer: %w", err)
	}
	return courses, nil
}

// CreateClassroom inserts a classroom. The join_code column carries a
// unique index; a collision surfaces as ErrDuplicateCode so the caller
// can retry with a fresh code.
func (r *CourseRepository) CreateClassroom(ctx context.Context, classroom *models.Classroom) error {
	if classroom.ID == "" {
		classroom.ID = uuid.NewString()
	}
	if classroom.CreatedAt.IsZero() {
		classroom.CreatedAt = time.Now().UTC()
	}
	if classroom.Status == "" {
		classroom.Status = "active"
	}
	const query = `INSERT INTO classrooms (id, name, course_id, teacher_id, join_code, status, created_at, updated_at)
		VALUES (:id, :name, :course_id, :teacher_id, :join_code, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, classroom); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("create classroom: %w", err)
	}
	return nil
}

// UpdateClassroom updates name/status of a classroom owned by the teacher.
func (r *CourseRepository) UpdateClassroom(ctx context.Context, classroom *models.Classroom) error {
	now := time.Now().UTC()
	classroom.UpdatedAt = &now
	const query = `UPDATE classrooms SET name = :name, status = :status, updated_at = :updated_at WHERE id = :id AND teacher_id = :teacher_id`
	if _, err := r.db.NamedExecContext(ctx, query, classroom); err != nil {
		return fmt.Errorf("update classroom: %w", err)
	}
	return nil
}

// UpdateJoinCode swaps a classroom's join code. ErrDuplicateCode on
// collision with the unique index.
func (r *CourseRepository) UpdateJoinCode(ctx context.Context, id, joinCode string) error {
	const query = `UPDATE classrooms SET join_code = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, joinCode, time.Now().UTC()); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("update join code: %w", err)
	}
	return nil
}

// FindClassroomByID returns a classroom by identifier.
func (r *CourseRepository) FindClassroomByID(ctx context.Context, id string) (*models.Classroom, error) {
	const query = `SELECT id, name, course_id, teacher_id, join_code, status, created_at, updated_at FROM classrooms WHERE id = $1 LIMIT 1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find classroom by id: %w", err)
	}
	return &classroom, nil
}

// FindClassroomByJoinCode returns the classroom carrying a join code.
func (r *CourseRepository) FindClassroomByJoinCode(ctx context.Context, joinCode string) (*models.Classroom, error) {
	const query = `SELECT id, name, course_id, teacher_id, join_code, status, created_at, updated_at FROM classrooms WHERE join_code = $1 LIMIT 1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, joinCode); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find classroom by join code: %w", err)
	}
	return &classroom, nil
}

// ListClassroomsByTeacher returns a teacher's own classrooms, newest first.
func (r *CourseRepository) ListClassroomsByTeacher(ctx context.Context, teacherID string) ([]models.Classroom, error) {
	const query = `SELECT id, name, course_id, teacher_id, join_code, status, created_at, updated_at
		FROM classrooms WHERE teacher_id = $1 ORDER BY created_at DESC`
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, teacherID); err != nil {
		return nil, fmt.Errorf("list classrooms by teacher: %w", err)
	}
	return classrooms, nil
}

// FindEnrollment returns the enrollment for a (student, classroom) pair.
func (r *CourseRepository) FindEnrollment(ctx context.Context, studentID, classroomID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, classroom_id, enrolled_at, status FROM enrollments WHERE student_id = $1 AND classroom_id = $2 LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, classroomID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// CreateEnrollment inserts an enrollment.
func (r *CourseRepository) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = "active"
	}
	const query = `INSERT INTO enrollments (id, student_id, classroom_id, enrolled_at, status)
		VALUES (:id, :student_id, :classroom_id, :enrolled_at, :status)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// ListEnrollmentsByStudent returns a student's enrollments, newest first.
func (r *CourseRepository) ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	const query = `SELECT id, student_id, classroom_id, enrolled_at, status
		FROM enrollments WHERE student_id = $1 ORDER BY enrolled_at DESC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments by student: %w", err)
	}
	return enrollments, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	return false
}
