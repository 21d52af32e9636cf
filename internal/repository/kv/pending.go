package kv

import (
	"context"
	"time"

	"delegues-backend/internal/domain"
	"delegues-backend/internal/repository"
	"delegues-backend/internal/storage"
)

type pendingRegistrationRepository struct {
	kv   storage.Store
	keys keys
}

func NewPendingRegistrationRepository(kv storage.Store, prefix string) repository.PendingRegistrationRepository {
	return &pendingRegistrationRepository{kv: kv, keys: keys{prefix: prefix}}
}

func (r *pendingRegistrationRepository) Create(ctx context.Context, token string, reg *domain.Registrant, ttl time.Duration) error {
	b, err := encode(reg)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, r.keys.token(token), b, ttl)
}

func (r *pendingRegistrationRepository) Take(ctx context.Context, token string) (*domain.Registrant, error) {
	b, err := r.kv.GetAndDelete(ctx, r.keys.token(token))
	if err != nil {
		return nil, notFound(err)
	}
	return decode(b)
}
