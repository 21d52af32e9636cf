package kv

import (
	"context"
	"errors"

	"delegues-backend/internal/domain"
	"delegues-backend/internal/repository"
	"delegues-backend/internal/storage"
)

type slotRepository struct {
	kv   storage.Store
	keys keys
}

func NewSlotRepository(kv storage.Store, prefix string) repository.SlotRepository {
	return &slotRepository{kv: kv, keys: keys{prefix: prefix}}
}

// Claim never overwrites: slot records carry no TTL and are written only
// through SetIfAbsent.
func (r *slotRepository) Claim(ctx context.Context, station domain.Station, slot domain.Slot, reg *domain.Registrant) (bool, error) {
	b, err := encode(reg)
	if err != nil {
		return false, err
	}
	return r.kv.SetIfAbsent(ctx, r.keys.slot(station, slot), b, 0)
}

func (r *slotRepository) Get(ctx context.Context, station domain.Station, slot domain.Slot) (*domain.Registrant, error) {
	b, err := r.kv.Get(ctx, r.keys.slot(station, slot))
	if err != nil {
		return nil, notFound(err)
	}
	return decode(b)
}

func (r *slotRepository) Exists(ctx context.Context, station domain.Station, slot domain.Slot) (bool, error) {
	_, err := r.kv.Get(ctx, r.keys.slot(station, slot))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
