package models

import "time"

// Section is one scheduled offering of a course (jadwal). SeatsTaken is only
// changed by the admission engine and always equals the number of approved
// enrollments pointing at the section.
type Section struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	ClassCode  string    `db:"class_code" json:"class_code"`
	Day        string    `db:"day" json:"day"`
	StartTime  string    `db:"start_time" json:"start_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
	Room       string    `db:"room" json:"room"`
	Lecturer   string    `db:"lecturer" json:"lecturer"`
	Capacity   int       `db:"capacity" json:"capacity"`
	SeatsTaken int       `db:"seats_taken" json:"seats_taken"`
	Active     bool      `db:"active" json:"active"`
	Version    int64     `db:"version" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// IsFull reports whether every seat is taken.
func (s *Section) IsFull() bool {
	return s.SeatsTaken >= s.Capacity
}

// SectionDetail joins a section with its course.
type SectionDetail struct {
	Section
	Course Course `db:"course" json:"course"`
}

// SectionFilter lists sections for catalog browsing.
type SectionFilter struct {
	Program         string
	Level           int
	Day             string
	Search          string
	IncludeInactive bool
}

// SectionPatch carries optional field updates for a section.
type SectionPatch struct {
	CourseID  *string
	ClassCode *string
	Day       *string
	StartTime *string
	EndTime   *string
	Room      *string
	Lecturer  *string
	Capacity  *int
	Active    *bool
}
