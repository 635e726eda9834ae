package models

import "time"

// AttendanceStatus is the per-day presence marker.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// Valid reports whether the value is a known attendance status.
func (s AttendanceStatus) Valid() bool {
	return s == AttendancePresent || s == AttendanceAbsent
}

// AttendanceRecord is one entity-day attendance row; (entity_id, date) is
// unique and re-marking the same day updates in place.
type AttendanceRecord struct {
	ID         string           `db:"id" json:"id"`
	EntityID   string           `db:"entity_id" json:"entity_id"`
	Date       time.Time        `db:"date" json:"date"`
	Status     AttendanceStatus `db:"status" json:"status"`
	RecordedBy *string          `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt time.Time        `db:"recorded_at" json:"recorded_at"`
}

// AttendanceDetail adds the entity name for listings.
type AttendanceDetail struct {
	AttendanceRecord
	EntityName string `db:"entity_name" json:"entity_name"`
}

// AttendanceSummary aggregates presence counts for reporting.
type AttendanceSummary struct {
	EntityID    string  `db:"entity_id" json:"entity_id"`
	EntityName  string  `db:"entity_name" json:"entity_name"`
	PresentDays int     `db:"present_days" json:"present_days"`
	AbsentDays  int     `db:"absent_days" json:"absent_days"`
	Percentage  float64 `db:"percentage" json:"percentage"`
}
