package portal

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profiles stores the profile document records.
type Profiles interface {
	repository.Repository[*Profile]

	GetByEmail(ctx context.Context, email string) (*Profile, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Profile, error)

	Upsert(ctx context.Context, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error)
	UpsertTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error)
}

type profiles struct {
	repository.Repository[*Profile]
	db *bun.DB
}

var (
	_ Profiles                        = (*profiles)(nil)
	_ repository.Repository[*Profile] = (*profiles)(nil)
)

func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (p *profiles) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	return p.GetByEmailTx(ctx, p.db, email)
}

func (p *profiles) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Profile, error) {
	record := &Profile{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (p *profiles) Upsert(ctx context.Context, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error) {
	return p.UpsertTx(ctx, p.db, record, criteria...)
}

func (p *profiles) UpsertTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error) {
	identifier := record.Email
	if record.ID != uuid.Nil {
		identifier = record.ID.String()
	}

	existing, err := p.Repository.GetByIdentifierTx(ctx, tx, identifier)
	if err == nil {
		record.ID = existing.ID
		return p.Repository.UpdateTx(ctx, tx, record, criteria...)
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return p.Repository.CreateTx(ctx, tx, record)
}

// profileStore adapts the Profiles repository to the ProfileStore
// contract keyed by the provider identifier.
type profileStore struct {
	repo Profiles
}

// NewProfileStore wraps a Profiles repository as a ProfileStore.
func NewProfileStore(repo Profiles) ProfileStore {
	return &profileStore{repo: repo}
}

var _ ProfileStore = (*profileStore)(nil)

func (s *profileStore) Get(ctx context.Context, id string) (*Profile, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrProfileMissing
		}
		return nil, err
	}
	return record, nil
}

func (s *profileStore) Put(ctx context.Context, id string, record *Profile) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return err
	}

	record.ID = uid
	_, err = s.repo.Upsert(ctx, record)
	return err
}
