package models

import "time"

// Capability enumerates the closed set of teacher capabilities. Each maps to
// one boolean column of the teacher_privileges table.
type Capability string

const (
	CapEditStudents    Capability = "EDIT_STUDENTS"
	CapDeleteStudents  Capability = "DELETE_STUDENTS"
	CapSuspendStudents Capability = "SUSPEND_STUDENTS"
	CapEditSubjects    Capability = "EDIT_SUBJECTS"
	CapDeleteSubjects  Capability = "DELETE_SUBJECTS"
	CapEditAttendance  Capability = "EDIT_ATTENDANCE"
)

// AllCapabilities lists every grantable capability.
var AllCapabilities = []Capability{
	CapEditStudents,
	CapDeleteStudents,
	CapSuspendStudents,
	CapEditSubjects,
	CapDeleteSubjects,
	CapEditAttendance,
}

// Valid reports whether the capability belongs to the closed enumeration.
func (c Capability) Valid() bool {
	switch c {
	case CapEditStudents, CapDeleteStudents, CapSuspendStudents,
		CapEditSubjects, CapDeleteSubjects, CapEditAttendance:
		return true
	}
	return false
}

// TeacherPrivilege holds the per-teacher capability flags. All flags default
// to false; a missing row is equivalent to an all-false record.
type TeacherPrivilege struct {
	TeacherID         string    `db:"teacher_id" json:"teacher_id"`
	CanEditStudents   bool      `db:"can_edit_students" json:"can_edit_students"`
	CanDeleteStudents bool      `db:"can_delete_students" json:"can_delete_students"`
	CanSuspendStudent bool      `db:"can_suspend_students" json:"can_suspend_students"`
	CanEditSubjects   bool      `db:"can_edit_subjects" json:"can_edit_subjects"`
	CanDeleteSubjects bool      `db:"can_delete_subjects" json:"can_delete_subjects"`
	CanEditAttendance bool      `db:"can_edit_attendance" json:"can_edit_attendance"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Has resolves one capability flag. The switch is total over the closed
// capability set; unknown values resolve to false.
func (p *TeacherPrivilege) Has(capability Capability) bool {
	if p == nil {
		return false
	}
	switch capability {
	case CapEditStudents:
		return p.CanEditStudents
	case CapDeleteStudents:
		return p.CanDeleteStudents
	case CapSuspendStudents:
		return p.CanSuspendStudent
	case CapEditSubjects:
		return p.CanEditSubjects
	case CapDeleteSubjects:
		return p.CanDeleteSubjects
	case CapEditAttendance:
		return p.CanEditAttendance
	}
	return false
}
