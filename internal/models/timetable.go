package models

import "time"

// TimetableEntry schedules one subject period for a class. The
// (class_id, day_of_week, period) triple is unique.
type TimetableEntry struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	DayOfWeek string    `db:"day_of_week" json:"day_of_week"`
	Period    int       `db:"period" json:"period"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TimetableDetail adds descriptive fields for listings.
type TimetableDetail struct {
	TimetableEntry
	ClassName   string  `db:"class_name" json:"class_name"`
	Section     string  `db:"section" json:"section"`
	SubjectName string  `db:"subject_name" json:"subject_name"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}
