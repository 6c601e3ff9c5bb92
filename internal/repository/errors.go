package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrVersionConflict is returned when a conditional section update lost a race.
	ErrVersionConflict = errors.New("section version conflict")
	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("duplicate record")
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
