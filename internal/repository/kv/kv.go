package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"delegues-backend/internal/domain"
	"delegues-backend/internal/repository"
	"delegues-backend/internal/storage"
)

// Store groups the repositories backed by one key-value store.
type Store struct {
	repository.PendingRegistrationRepository
	repository.SlotRepository
	repository.ReservationRepository
}

// NewStore builds the repositories. Every key is prefixed with prefix.
func NewStore(kv storage.Store, prefix string) *Store {
	return &Store{
		PendingRegistrationRepository: NewPendingRegistrationRepository(kv, prefix),
		SlotRepository:                NewSlotRepository(kv, prefix),
		ReservationRepository:         NewReservationRepository(kv, prefix),
	}
}

// keys builds the key layout. Pending registrations and reservations
// live under their own namespaces so a caller-supplied token can never
// address a slot or reservation record.
type keys struct {
	prefix string
}

const (
	pendingNamespace     = "pending:"
	reservationNamespace = "email:"
)

func (k keys) token(token string) string {
	return k.prefix + pendingNamespace + token
}

func (k keys) slot(station domain.Station, slot domain.Slot) string {
	return fmt.Sprintf("%s%s:%s:%s", k.prefix, station.LocationID, station.RoleID, slot)
}

func (k keys) email(email string) string {
	return k.prefix + reservationNamespace + strings.ToLower(strings.TrimSpace(email))
}

func encode(r *domain.Registrant) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode registrant: %w", err)
	}
	return b, nil
}

func decode(b []byte) (*domain.Registrant, error) {
	var r domain.Registrant
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode registrant: %w", err)
	}
	return &r, nil
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return repository.ErrNotFound
	}
	return err
}
