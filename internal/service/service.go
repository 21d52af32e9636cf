package service

import (
	"context"

	"delegues-backend/internal/domain"
)

type RegistrationService interface {
	// Submit validates r, stores it as a pending registration for the given
	// station and emails the confirmation link. It returns the token.
	Submit(ctx context.Context, r *domain.Registrant, locationID, roleID string) (string, error)
}

type ConfirmationService interface {
	// Confirm consumes token and assigns its registrant to a free slot.
	// The registrant is returned for every outcome except NoSuchToken.
	// When the error is non-nil the outcome carries no meaning.
	Confirm(ctx context.Context, token string) (domain.Outcome, *domain.Registrant, error)
}

type CapacityService interface {
	IsFull(ctx context.Context, locationID, roleID string) (bool, error)
	// AvailableLocations lists the stations of a commune that still have a free slot.
	AvailableLocations(ctx context.Context, insee string) ([]domain.Location, error)
}

type EmailService interface {
	SendConfirmation(ctx context.Context, to, link string) error
}

// LocationDirectory is the read-only polling station table.
type LocationDirectory interface {
	Lookup(insee string) ([]domain.Location, bool)
	Has(station domain.Station) bool
	Search(query string, limit int) ([]domain.Commune, error)
}
