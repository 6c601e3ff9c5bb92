package models

// Term scopes enrollments and credit loads to one semester of an academic year,
// e.g. {Semester: "Ganjil", AcademicYear: "2024/2025"}.
type Term struct {
	Semester     string `db:"semester" json:"semester"`
	AcademicYear string `db:"academic_year" json:"academic_year"`
}

// TermFilter narrows listings to a semester and/or academic year. Empty fields match everything.
type TermFilter struct {
	Semester     string
	AcademicYear string
}

// Matches reports whether t satisfies the filter.
func (f TermFilter) Matches(t Term) bool {
	if f.Semester != "" && f.Semester != t.Semester {
		return false
	}
	if f.AcademicYear != "" && f.AcademicYear != t.AcademicYear {
		return false
	}
	return true
}
