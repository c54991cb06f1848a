package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"math/big"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edulearn-api/internal/models"
	"github.com/noah-isme/edulearn-api/internal/repository"
	appErrors "github.com/noah-isme/edulearn-api/pkg/errors"
)

const (
	joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	joinCodeLength   = 6
	joinCodeAttempts = 3
)

type courseRepository interface {
	CreateCourse(ctx context.Context, course *models.Course) error
	FindCourseByID(ctx context.Context, id string) (*models.Course, error)
	ListCoursesByLecturer(ctx context.Context, lecturerID string) ([]models.Course, error)
	CreateClassroom(ctx context.Context, classroom *models.Classroom) error
	UpdateClassroom(ctx context.Context, classroom *models.Classroom) error
	UpdateJoinCode(ctx context.Context, id, joinCode string) error
	FindClassroomByID(ctx context.Context, id string) (*models.Classroom, error)
	FindClassroomByJoinCode(ctx context.Context, joinCode string) (*models.Classroom, error)
	ListClassroomsByTeacher(ctx context.Context, teacherID string) ([]models.Classroom, error)
	FindEnrollment(ctx context.Context, studentID, classroomID string) (*models.Enrollment, error)
	CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

// CourseService provides the teacher course/classroom surface and the
// student enrollment surface.
type CourseService struct {
	courses   courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService instance.
func NewCourseService(courses courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{courses: courses, validator: validate, logger: logger}
}

// CreateCourse opens a new course owned by the teacher.
func (s *CourseService) CreateCourse(ctx context.Context, teacherID string, req models.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := &models.Course{
		Title:       req.Title,
		Description: req.Description,
		LecturerID:  teacherID,
	}
	if err := s.courses.CreateCourse(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("teacher_id", teacherID))
	return course, nil
}

// ListCourses returns the teacher's own courses.
func (s *CourseService) ListCourses(ctx context.Context, teacherID string) ([]models.Course, error) {
	courses, err := s.courses.ListCoursesByLecturer(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// CreateClass opens a classroom under one of the teacher's own courses
// and issues its join code. Code collisions on the unique index are
// retried with fresh codes a bounded number of times.
func (s *CourseService) CreateClass(ctx context.Context, teacherID string, req models.CreateClassRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	course, err := s.courses.FindCourseByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.LecturerID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course belongs to another teacher")
	}

	classroom := &models.Classroom{
		Name:      req.Name,
		CourseID:  course.ID,
		TeacherID: teacherID,
	}
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		code, err := generateJoinCode()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate join code")
		}
		classroom.JoinCode = code

		err = s.courses.CreateClassroom(ctx, classroom)
		if err == nil {
			s.logger.Info("classroom created", zap.String("classroom_id", classroom.ID), zap.String("teacher_id", teacherID))
			return classroom, nil
		}
		if !errors.Is(err, repository.ErrDuplicateCode) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
		}
	}
	return nil, appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique join code")
}

// ListClasses returns the teacher's own classrooms.
func (s *CourseService) ListClasses(ctx context.Context, teacherID string) ([]models.Classroom, error) {
	classrooms, err := s.courses.ListClassroomsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}
	return classrooms, nil
}

// UpdateClass renames a classroom or toggles its status. Only the owning
// teacher may modify it.
func (s *CourseService) UpdateClass(ctx context.Context, teacherID, classID string, req models.UpdateClassRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	classroom, err := s.ownedClassroom(ctx, teacherID, classID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		classroom.Name = req.Name
	}
	if req.Status != "" {
		classroom.Status = req.Status
	}
	if err := s.courses.UpdateClassroom(ctx, classroom); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classroom")
	}
	return classroom, nil
}

// RegenerateJoinCode replaces a classroom's join code, invalidating the
// previous one.
func (s *CourseService) RegenerateJoinCode(ctx context.Context, teacherID, classID string) (*models.Classroom, error) {
	classroom, err := s.ownedClassroom(ctx, teacherID, classID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		code, err := generateJoinCode()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate join code")
		}

		err = s.courses.UpdateJoinCode(ctx, classroom.ID, code)
		if err == nil {
			classroom.JoinCode = code
			s.logger.Info("join code regenerated", zap.String("classroom_id", classroom.ID))
			return classroom, nil
		}
		if !errors.Is(err, repository.ErrDuplicateCode) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update join code")
		}
	}
	return nil, appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique join code")
}

// JoinClass enrolls a student into the classroom behind a join code.
// Joining a class the student is already enrolled in is a no-op that
// returns the existing enrollment.
func (s *CourseService) JoinClass(ctx context.Context, studentID string, req models.JoinClassRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid join payload")
	}

	classroom, err := s.courses.FindClassroomByJoinCode(ctx, req.JoinCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no class matches this join code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up class")
	}
	if classroom.Status != "active" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class is not accepting enrollments")
	}

	existing, err := s.courses.FindEnrollment(ctx, studentID, classroom.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	enrollment := &models.Enrollment{
		StudentID:   studentID,
		ClassroomID: classroom.ID,
	}
	if err := s.courses.CreateEnrollment(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("student enrolled", zap.String("student_id", studentID), zap.String("classroom_id", classroom.ID))
	return enrollment, nil
}

// ListEnrollments returns the student's enrollments.
func (s *CourseService) ListEnrollments(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	enrollments, err := s.courses.ListEnrollmentsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

func (s *CourseService) ownedClassroom(ctx context.Context, teacherID, classID string) (*models.Classroom, error) {
	classroom, err := s.courses.FindClassroomByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	if classroom.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class belongs to another teacher")
	}
	return classroom, nil
}

func generateJoinCode() (string, error) {
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	code := make([]byte, joinCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
