package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is the closed set of states for a join request.
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "pending"
	StatusAccepted ApplicationStatus = "accepted"
	StatusRejected ApplicationStatus = "rejected"
)

// Valid reports whether s is a recognized status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transition.
// accepted and rejected are final; only pending applications may move.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Application is one student's join request targeting one club.
// At most one application exists per (club, student email) pair.
type Application struct {
	ID           uuid.UUID         `json:"id"`
	ClubID       uuid.UUID         `json:"club_id"`
	StudentName  string            `json:"student_name"`
	StudentEmail string            `json:"student_email"`
	RollNumber   string            `json:"roll_number,omitempty"`
	Reason       string            `json:"reason,omitempty"`
	Status       ApplicationStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
