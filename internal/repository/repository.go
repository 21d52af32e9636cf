package repository

import (
	"context"
	"errors"
	"time"

	"delegues-backend/internal/domain"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// PendingRegistrationRepository holds registrations waiting for their
// confirmation link to be clicked.
type PendingRegistrationRepository interface {
	Create(ctx context.Context, token string, r *domain.Registrant, ttl time.Duration) error
	// Take reads and deletes the registration atomically.
	Take(ctx context.Context, token string) (*domain.Registrant, error)
}

// SlotRepository holds the permanent slot assignments of polling stations.
type SlotRepository interface {
	// Claim writes r into the slot if it is still empty and reports whether it did.
	Claim(ctx context.Context, station domain.Station, slot domain.Slot, r *domain.Registrant) (bool, error)
	Get(ctx context.Context, station domain.Station, slot domain.Slot) (*domain.Registrant, error)
	Exists(ctx context.Context, station domain.Station, slot domain.Slot) (bool, error)
}

// ReservationRepository maps a confirmed email to its registration.
type ReservationRepository interface {
	Put(ctx context.Context, r *domain.Registrant) error
	GetByEmail(ctx context.Context, email string) (*domain.Registrant, error)
	Exists(ctx context.Context, email string) (bool, error)
}
