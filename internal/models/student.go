package models

import "time"

// Student represents a learner profile owned 1:1 by a user account. A nil
// ClassID means the student is not assigned to any class yet.
type Student struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	AdmissionNumber string    `db:"admission_number" json:"admission_number"`
	FullName        string    `db:"full_name" json:"full_name"`
	ClassID         *string   `db:"class_id" json:"class_id,omitempty"`
	Guardian        *string   `db:"guardian" json:"guardian,omitempty"`
	Phone           *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail extends Student with class context and effective status.
type StudentDetail struct {
	Student
	ClassName *string      `db:"class_name" json:"class_name,omitempty"`
	Section   *string      `db:"section" json:"section,omitempty"`
	Status    EntityStatus `db:"status" json:"status"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	ClassID   string
	Status    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
