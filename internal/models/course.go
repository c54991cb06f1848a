package models

import "time"

// Course is owned by the teacher who created it.
type Course struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description,omitempty"`
	LecturerID  string     `db:"lecturer_id" json:"lecturer_id"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Classroom groups students under a course. JoinCode is unique across
// classrooms and is how students enroll themselves.
type Classroom struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	CourseID  string     `db:"course_id" json:"course_id"`
	TeacherID string     `db:"teacher_id" json:"teacher_id"`
	JoinCode  string     `db:"join_code" json:"join_code"`
	Status    string     `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// CreateCourseRequest opens a new course owned by the caller.
type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required,max=160"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

// CreateClassRequest opens a classroom under one of the caller's courses.
type CreateClassRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	CourseID string `json:"course_id" validate:"required,uuid"`
}

// UpdateClassRequest renames a classroom or toggles its status.
type UpdateClassRequest struct {
	Name   string `json:"name" validate:"omitempty,max=120"`
	Status string `json:"status" validate:"omitempty,oneof=active archived"`
}

// JoinClassRequest enrolls the calling student via join code.
type JoinClassRequest struct {
	JoinCode string `json:"join_code" validate:"required,len=6"`
}

// Enrollment links a student to a classroom.
type Enrollment struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	EnrolledAt  time.Time `db:"enrolled_at" json:"enrolled_at"`
	Status      string    `db:"status" json:"status"`
}
