package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edulearn-api/internal/models"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCourseRepositoryCreateClassroomDuplicateCode(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO classrooms").
		WillReturnError(&pq.Error{Code: pq.ErrorCode(pgUniqueViolation)})

	err := repo.CreateClassroom(context.Background(), &models.Classroom{
		Name: "Kelas 10A", CourseID: "crs-1", TeacherID: "usr-1", JoinCode: "AB12CD",
	})
	require.ErrorIs(t, err, ErrDuplicateCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindClassroomByJoinCode(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "course_id", "teacher_id", "join_code", "status", "created_at", "updated_at"}).
		AddRow("cls-1", "Kelas 10A", "crs-1", "usr-1", "AB12CD", "active", time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, course_id, teacher_id, join_code, status, created_at, updated_at FROM classrooms WHERE join_code = $1 LIMIT 1")).
		WithArgs("AB12CD").
		WillReturnRows(rows)

	classroom, err := repo.FindClassroomByJoinCode(context.Background(), "AB12CD")
	require.NoError(t, err)
	require.Equal(t, "cls-1", classroom.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindEnrollmentNotFound(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("SELECT .+ FROM enrollments WHERE student_id").
		WithArgs("stu-1", "cls-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindEnrollment(context.Background(), "stu-1", "cls-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
