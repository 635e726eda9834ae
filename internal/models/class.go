package models

import "time"

// Class represents an academic class section, unique on (name, section).
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Section   string    `db:"section" json:"section"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Name      string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
