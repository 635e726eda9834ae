package models

import "time"

// Subject belongs to exactly one class. TeacherID is a derived pointer to the
// primary teacher for the subject; it is written only by the assignment
// resolver, never directly.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ClassID   string    `db:"class_id" json:"class_id"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectDetail carries class and teacher context for listings.
type SubjectDetail struct {
	Subject
	ClassName   string  `db:"class_name" json:"class_name"`
	Section     string  `db:"section" json:"section"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	ClassID   string
	TeacherID string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
