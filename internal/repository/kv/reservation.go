package kv

import (
	"context"
	"errors"

	"delegues-backend/internal/domain"
	"delegues-backend/internal/repository"
	"delegues-backend/internal/storage"
)

type reservationRepository struct {
	kv   storage.Store
	keys keys
}

func NewReservationRepository(kv storage.Store, prefix string) repository.ReservationRepository {
	return &reservationRepository{kv: kv, keys: keys{prefix: prefix}}
}

func (r *reservationRepository) Put(ctx context.Context, reg *domain.Registrant) error {
	b, err := encode(reg)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, r.keys.email(reg.Email), b, 0)
}

func (r *reservationRepository) GetByEmail(ctx context.Context, email string) (*domain.Registrant, error) {
	b, err := r.kv.Get(ctx, r.keys.email(email))
	if err != nil {
		return nil, notFound(err)
	}
	return decode(b)
}

func (r *reservationRepository) Exists(ctx context.Context, email string) (bool, error) {
	_, err := r.kv.Get(ctx, r.keys.email(email))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
