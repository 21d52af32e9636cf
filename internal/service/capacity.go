package service

import (
	"context"
	"fmt"

	"delegues-backend/internal/domain"
	"delegues-backend/internal/repository"
)

type capacityService struct {
	slots     repository.SlotRepository
	directory LocationDirectory
}

// NewCapacityService derives the "full" status from the slot records on
// every call. Nothing is cached, so every instance sees the writes of the
// confirmation engine as soon as the store does.
func NewCapacityService(slots repository.SlotRepository, directory LocationDirectory) CapacityService {
	return &capacityService{slots: slots, directory: directory}
}

// IsFull reports whether both slots are taken. The secondary slot is only
// ever claimed after the primary one, so its presence is enough.
func (s *capacityService) IsFull(ctx context.Context, locationID, roleID string) (bool, error) {
	full, err := s.slots.Exists(ctx, domain.Station{LocationID: locationID, RoleID: roleID}, domain.SlotSecondary)
	if err != nil {
		return false, fmt.Errorf("%w: read slot: %w", domain.ErrStoreFailure, err)
	}
	return full, nil
}

func (s *capacityService) AvailableLocations(ctx context.Context, insee string) ([]domain.Location, error) {
	locs, ok := s.directory.Lookup(insee)
	if !ok {
		return nil, domain.ErrUnknownLocation
	}

	available := make([]domain.Location, 0, len(locs))
	for _, l := range locs {
		full, err := s.IsFull(ctx, l.Insee, l.Bureau)
		if err != nil {
			return nil, err
		}
		if !full {
			available = append(available, l)
		}
	}
	return available, nil
}
