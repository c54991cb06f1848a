package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edulearn-api/internal/middleware"
	"github.com/noah-isme/edulearn-api/internal/models"
	"github.com/noah-isme/edulearn-api/internal/service"
)

type stubCourses struct {
	courses     map[string]*models.Course
	classrooms  map[string]*models.Classroom
	enrollments map[string]*models.Enrollment
}

func newStubCourses() *stubCourses {
	return &stubCourses{
		courses:     map[string]*models.Course{},
		classrooms:  map[string]*models.Classroom{},
		enrollments: map[string]*models.Enrollment{},
	}
}

func (s *stubCourses) CreateCourse(ctx context.Context, course *models.Course) error {
	s.courses[course.ID] = course
	return nil
}

func (s *stubCourses) FindCourseByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := s.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubCourses) ListCoursesByLecturer(ctx context.Context, lecturerID string) ([]models.Course, error) {
	var out []models.Course
	for _, c := range s.courses {
		if c.LecturerID == lecturerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *stubCourses) CreateClassroom(ctx context.Context, classroom *models.Classroom) error {
	s.classrooms[classroom.ID] = classroom
	return nil
}

func (s *stubCourses) UpdateClassroom(ctx context.Context, classroom *models.Classroom) error {
	s.classrooms[classroom.ID] = classroom
	return nil
}

func (s *stubCourses) UpdateJoinCode(ctx context.Context, id, joinCode string) error {
	s.classrooms[id].JoinCode = joinCode
	return nil
}

func (s *stubCourses) FindClassroomByID(ctx context.Context, id string) (*models.Classroom, error) {
	if c, ok := s.classrooms[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubCourses) FindClassroomByJoinCode(ctx context.Context, joinCode string) (*models.Classroom, error) {
	for _, c := range s.classrooms {
		if c.JoinCode == joinCode {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubCourses) ListClassroomsByTeacher(ctx context.Context, teacherID string) ([]models.Classroom, error) {
	var out []models.Classroom
	for _, c := range s.classrooms {
		if c.TeacherID == teacherID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *stubCourses) FindEnrollment(ctx context.Context, studentID, classroomID string) (*models.Enrollment, error) {
	key := studentID + "|" + classroomID
	if e, ok := s.enrollments[key]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubCourses) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	s.enrollments[enrollment.StudentID+"|"+enrollment.ClassroomID] = enrollment
	return nil
}

func (s *stubCourses) ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, e := range s.enrollments {
		if e.StudentID == studentID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func newCourseTestHandlers(repo *stubCourses) (*TeacherHandler, *StudentHandler) {
	svc := service.NewCourseService(repo, nil, nil)
	return NewTeacherHandler(svc), NewStudentHandler(svc)
}

func asTeacher(c *gin.Context) {
	c.Set(middleware.ContextAccountKey, &models.User{ID: "tch-1", Username: "guru", Role: models.RoleTeacher})
}

func asStudent(c *gin.Context) {
	c.Set(middleware.ContextAccountKey, &models.User{ID: "std-1", Username: "siti", Role: models.RoleStudent})
}

func TestTeacherHandlerCreateCourse(t *testing.T) {
	repo := newStubCourses()
	teacher, _ := newCourseTestHandlers(repo)

	c, w := postJSON(t, "/teacher/courses", models.CreateCourseRequest{Title: "Algebra I"})
	asTeacher(c)
	teacher.CreateCourse(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope struct {
		Data models.Course `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "Algebra I", envelope.Data.Title)
	assert.Equal(t, "tch-1", envelope.Data.LecturerID)
}

func TestTeacherHandlerCreateCourseRequiresAuth(t *testing.T) {
	repo := newStubCourses()
	teacher, _ := newCourseTestHandlers(repo)

	c, w := postJSON(t, "/teacher/courses", models.CreateCourseRequest{Title: "Algebra I"})
	teacher.CreateCourse(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTeacherHandlerCreateClassForeignCourse(t *testing.T) {
	repo := newStubCourses()
	repo.courses["11111111-1111-1111-1111-111111111111"] = &models.Course{
		ID:         "11111111-1111-1111-1111-111111111111",
		Title:      "Biology",
		LecturerID: "tch-other",
	}
	teacher, _ := newCourseTestHandlers(repo)

	c, w := postJSON(t, "/teacher/classes", models.CreateClassRequest{
		Name:     "Class A",
		CourseID: "11111111-1111-1111-1111-111111111111",
	})
	asTeacher(c)
	teacher.CreateClass(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTeacherHandlerRegenerateJoinCodeRotates(t *testing.T) {
	repo := newStubCourses()
	repo.classrooms["cls-1"] = &models.Classroom{ID: "cls-1", Name: "Class A", TeacherID: "tch-1", JoinCode: "AAAAAA", Status: "active"}
	teacher, _ := newCourseTestHandlers(repo)

	c, w := getRequest(t, "/teacher/classes/cls-1/join-code")
	c.Request.Method = http.MethodPost
	c.Params = gin.Params{{Key: "id", Value: "cls-1"}}
	asTeacher(c)
	teacher.RegenerateJoinCode(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, "AAAAAA", repo.classrooms["cls-1"].JoinCode)
	assert.Len(t, repo.classrooms["cls-1"].JoinCode, 6)
}

func TestStudentHandlerJoinClass(t *testing.T) {
	repo := newStubCourses()
	repo.classrooms["cls-1"] = &models.Classroom{ID: "cls-1", Name: "Class A", TeacherID: "tch-1", JoinCode: "AB23CD", Status: "active"}
	_, student := newCourseTestHandlers(repo)

	c, w := postJSON(t, "/student/classes/join", models.JoinClassRequest{JoinCode: "AB23CD"})
	asStudent(c)
	student.JoinClass(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data models.Enrollment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "std-1", envelope.Data.StudentID)
	assert.Equal(t, "cls-1", envelope.Data.ClassroomID)
}

func TestStudentHandlerJoinUnknownCode(t *testing.T) {
	repo := newStubCourses()
	_, student := newCourseTestHandlers(repo)

	c, w := postJSON(t, "/student/classes/join", models.JoinClassRequest{JoinCode: "ZZZZZZ"})
	asStudent(c)
	student.JoinClass(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
