package dto

import "time"

// ClassView is the flat "kelas" card the student frontend renders for a section.
type ClassView struct {
	ID           string `json:"id"`
	CourseCode   string `json:"kodeMataKuliah"`
	CourseName   string `json:"namaMataKuliah"`
	Credits      int    `json:"sks"`
	Lecturer     string `json:"dosen"`
	Room         string `json:"ruangan"`
	Schedule     string `json:"jadwal"`
	Day          string `json:"hari"`
	StartTime    string `json:"jamMulai"`
	EndTime      string `json:"jamSelesai"`
	ClassCode    string `json:"kodeKelas"`
	Capacity     int    `json:"kapasitas"`
	SeatsTaken   int    `json:"pendaftarSaat"`
	SeatsLeft    int    `json:"sisaKuota"`
	Active       bool   `json:"isActive"`
	Program      string `json:"prodi"`
	Level        int    `json:"semester"`
	WaitlistOnly bool   `json:"waitlistOnly"`
}

// SavedClassView is a bookmarked section as returned by /user/saved-classes.
type SavedClassView struct {
	ID        string    `json:"id"`
	SectionID string    `json:"jadwalId"`
	CreatedAt time.Time `json:"createdAt"`
	Class     ClassView `json:"jadwal"`
}
