package models

import "time"

// TeacherAssignment links a teacher to a class/subject pair. The
// (teacher_id, class_id, subject_id) triple is unique.
type TeacherAssignment struct {
	ID         string    `db:"id" json:"id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	AssignedBy string    `db:"assigned_by" json:"assigned_by"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}

// TeacherAssignmentDetail enriches assignments with descriptive fields.
type TeacherAssignmentDetail struct {
	TeacherAssignment
	ClassName   string `db:"class_name" json:"class_name"`
	Section     string `db:"section" json:"section"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// StudentEnrollment maps a student to one subject of their current class.
type StudentEnrollment struct {
	StudentID string `db:"student_id" json:"student_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
}

// EnrollmentDetail lists an enrollment with subject context.
type EnrollmentDetail struct {
	StudentEnrollment
	SubjectName string `db:"subject_name" json:"subject_name"`
	ClassID     string `db:"class_id" json:"class_id"`
}
