package models

import "time"

// SavedClass is a section a student bookmarked while planning their KRS.
type SavedClass struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	SectionID string    `db:"section_id" json:"section_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SavedClassDetail joins a bookmark with its section and course.
type SavedClassDetail struct {
	SavedClass
	Section SectionDetail `db:"section" json:"section"`
}
