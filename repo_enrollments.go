package portal

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Enrollments stores device protection subscriptions.
type Enrollments interface {
	repository.Repository[*Enrollment]

	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]*Enrollment, error)
	ListByProfileTx(ctx context.Context, tx bun.IDB, profileID uuid.UUID) ([]*Enrollment, error)
}

type enrollments struct {
	repository.Repository[*Enrollment]
	db *bun.DB
}

var (
	_ Enrollments                        = (*enrollments)(nil)
	_ repository.Repository[*Enrollment] = (*enrollments)(nil)
)

func NewEnrollmentsRepository(db *bun.DB) Enrollments {
	repo := repository.NewRepository[*Enrollment](db, repository.ModelHandlers[*Enrollment]{
		NewRecord: func() *Enrollment { return &Enrollment{} },
		GetID: func(e *Enrollment) uuid.UUID {
			if e == nil {
				return uuid.Nil
			}
			return e.ID
		},
		SetID: func(e *Enrollment, id uuid.UUID) {
			if e != nil {
				e.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &enrollments{
		Repository: repo,
		db:         db,
	}
}

func (e *enrollments) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]*Enrollment, error) {
	return e.ListByProfileTx(ctx, e.db, profileID)
}

func (e *enrollments) ListByProfileTx(ctx context.Context, tx bun.IDB, profileID uuid.UUID) ([]*Enrollment, error) {
	var records []*Enrollment
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.profile_id = ?", profileID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}
