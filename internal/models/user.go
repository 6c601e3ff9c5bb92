package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleStudent UserRole = "STUDENT"
)

// DefaultMaxCredits is the credit ceiling applied when a student has none on record.
const DefaultMaxCredits = 24

// User represents an account stored in the users table. Students carry their
// program, level and credit ceiling on the same row.
type User struct {
	ID           string     `db:"id" json:"id"`
	NIM          string     `db:"nim" json:"nim"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Program      *string    `db:"program" json:"program,omitempty"`
	Level        *int       `db:"level" json:"level,omitempty"`
	GPA          *float64   `db:"gpa" json:"gpa,omitempty"`
	MaxCredits   *int       `db:"max_credits" json:"max_credits,omitempty"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// CreditCeiling returns the student's maximum credit load, falling back to
// fallback when the stored value is missing or not positive.
func (u *User) CreditCeiling(fallback int) int {
	if fallback <= 0 {
		fallback = DefaultMaxCredits
	}
	if u == nil || u.MaxCredits == nil || *u.MaxCredits <= 0 {
		return fallback
	}
	return *u.MaxCredits
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
