package models

import "time"

// EntityStatus enumerates lifecycle states. Students use the first three;
// teachers additionally use on_leave and retired.
type EntityStatus string

const (
	StatusActive    EntityStatus = "active"
	StatusSuspended EntityStatus = "suspended"
	StatusRemoved   EntityStatus = "removed"
	StatusOnLeave   EntityStatus = "on_leave"
	StatusRetired   EntityStatus = "retired"
)

// ValidForStudent reports whether the status applies to students.
func (s EntityStatus) ValidForStudent() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusRemoved:
		return true
	}
	return false
}

// ValidForTeacher reports whether the status applies to teachers.
func (s EntityStatus) ValidForTeacher() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusRemoved, StatusOnLeave, StatusRetired:
		return true
	}
	return false
}

// ReasonAdministrative is recorded on removals, which take no free-text reason.
const ReasonAdministrative = "Administrative removal"

// StatusRecord is the single mutable ledger row per entity. A missing row is
// read as active; the ledger stays sparse and is only written on transitions.
type StatusRecord struct {
	EntityID  string       `db:"entity_id" json:"entity_id"`
	Status    EntityStatus `db:"status" json:"status"`
	Reason    *string      `db:"reason" json:"reason,omitempty"`
	ChangedBy *string      `db:"changed_by" json:"changed_by,omitempty"`
	ChangedAt time.Time    `db:"changed_at" json:"changed_at"`
}
