package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/krs-online-api/internal/models"
)

// SectionTxStore is the part of the section store used inside an admission transaction.
type SectionTxStore interface {
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	UpdateSeatsTaken(ctx context.Context, id string, delta int, expectedVersion int64) (*models.Section, error)
}

// EnrollmentTxStore is the part of the enrollment store used inside an admission transaction.
type EnrollmentTxStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByStudentSectionTerm(ctx context.Context, studentID, sectionID string, term models.Term) (*models.Enrollment, error)
	SumCredits(ctx context.Context, studentID string, term models.Term) (int, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
}

// TxRepositories groups the repositories bound to one transaction.
type TxRepositories struct {
	Sections    SectionTxStore
	Enrollments EnrollmentTxStore
}

// TxManager runs a unit of work in a single database transaction.
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager constructs a TxManager.
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// WithTx begins a transaction, hands fn repositories bound to it and commits
// when fn returns nil. Any error rolls the transaction back and is returned
// unchanged.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) (err error) {
	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	repos := TxRepositories{
		Sections:    NewSectionRepository(tx),
		Enrollments: NewEnrollmentRepository(tx),
	}
	if err = fn(ctx, repos); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
