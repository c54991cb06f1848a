package models

// Capability strings granted to teachers. The authorizer treats these as a
// flat set; grouping exists for presentation only.
const (
	PermCourseCreate           = "course:create"
	PermCourseEdit             = "course:edit"
	PermCoursePublish          = "course:publish"
	PermContentManageCourse    = "content:manage_course_level"
	PermClassCreate            = "class:create"
	PermClassEdit              = "class:edit"
	PermClassDelete            = "class:delete"
	PermClassSchedule          = "class:schedule"
	PermContentAssignToClass   = "content:assign_to_class"
	PermStudentViewListByClass = "student:view_list_by_class"
	PermStudentEnrollClass     = "student:enroll_class"
	PermStudentProgressClass   = "student:progress_tracking_class"
	PermGradeManageClass       = "grade:manage_class"
	PermNoticeClass            = "communication:send_notice_class"
	PermStudentViewList        = "student:view_list"
	PermStudentProgress        = "student:progress_tracking"
	PermGradeManage            = "grade:manage"
	PermDiscussionModerate     = "discussion:moderate"
	PermNotice                 = "communication:send_notice"
)

// TeacherPermissions is the full capability catalogue admins may grant.
var TeacherPermissions = []string{
	PermCourseCreate,
	PermCourseEdit,
	PermCoursePublish,
	PermContentManageCourse,
	PermClassCreate,
	PermClassEdit,
	PermClassDelete,
	PermClassSchedule,
	PermContentAssignToClass,
	PermStudentViewListByClass,
	PermStudentEnrollClass,
	PermStudentProgressClass,
	PermGradeManageClass,
	PermNoticeClass,
	PermStudentViewList,
	PermStudentProgress,
	PermGradeManage,
	PermDiscussionModerate,
	PermNotice,
}

// DefaultTeacherPermissions is the baseline granted to an admin-created
// teacher account.
var DefaultTeacherPermissions = TeacherPermissions

// IsKnownPermission reports whether the capability exists in the catalogue.
func IsKnownPermission(capability string) bool {
	for _, p := range TeacherPermissions {
		if p == capability {
			return true
		}
	}
	return false
}
