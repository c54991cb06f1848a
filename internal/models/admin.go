package models

// CreateTeacherRequest provisions a teacher account. Admin-only; the new
// account starts with the default teacher permission baseline.
type CreateTeacherRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"omitempty,max=120"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

// UpdateStatusRequest changes an account's status. Moving away from
// active force-revokes every session the user holds.
type UpdateStatusRequest struct {
	Status UserStatus `json:"status" validate:"required,oneof=active inactive blocked"`
}

// UpdatePermissionsRequest replaces a teacher's capability set.
type UpdatePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required"`
}
