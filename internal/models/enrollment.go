package models

import "time"

// EnrollmentStatus represents the admission outcome of a KRS entry.
type EnrollmentStatus string

// Possible enrollment statuses. Status is decided once, at creation.
const (
	EnrollmentStatusPending  EnrollmentStatus = "pending"
	EnrollmentStatusApproved EnrollmentStatus = "approved"
)

// Enrollment captures a student's claim on a section for a term.
type Enrollment struct {
	ID        string `db:"id" json:"id"`
	StudentID string `db:"student_id" json:"student_id"`
	SectionID string `db:"section_id" json:"section_id"`
	Term
	Status    EnrollmentStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// HoldsSeat reports whether the enrollment occupies a seat in its section.
func (e *Enrollment) HoldsSeat() bool {
	return e.Status == EnrollmentStatusApproved
}

// EnrollmentDetail enriches an enrollment with its section and course.
type EnrollmentDetail struct {
	Enrollment
	Section SectionDetail `db:"section" json:"section"`
}

// WithdrawResult confirms a withdrawn enrollment.
type WithdrawResult struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}
