package service

import (
	"context"
	"errors"
	"fmt"

	"delegues-backend/internal/domain"
	"delegues-backend/internal/logger"
	"delegues-backend/internal/repository"
)

type confirmationService struct {
	pending      repository.PendingRegistrationRepository
	slots        repository.SlotRepository
	reservations repository.ReservationRepository
	metrics      *Metrics
}

func NewConfirmationService(
	pending repository.PendingRegistrationRepository,
	slots repository.SlotRepository,
	reservations repository.ReservationRepository,
	metrics *Metrics,
) ConfirmationService {
	return &confirmationService{
		pending:      pending,
		slots:        slots,
		reservations: reservations,
		metrics:      metrics,
	}
}

// claimOrder is the order in which slots are offered. A station moves
// Empty -> PrimaryTaken -> Full and never back.
var claimOrder = []struct {
	slot    domain.Slot
	outcome domain.Outcome
}{
	{domain.SlotPrimary, domain.OutcomeAssignedPrimary},
	{domain.SlotSecondary, domain.OutcomeAssignedSecondary},
}

// Confirm relies only on the atomicity of the store: the token is taken
// with a single read-and-delete and each slot is claimed with a single
// set-if-absent, so concurrent confirmations on any number of instances
// can neither reuse a token nor share a slot.
func (s *confirmationService) Confirm(ctx context.Context, token string) (domain.Outcome, *domain.Registrant, error) {
	logger.EnterMethod("ConfirmationService.Confirm")

	reg, err := s.pending.Take(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.observeConfirmation(domain.OutcomeNoSuchToken)
		logger.ExitMethod("ConfirmationService.Confirm", "outcome", domain.OutcomeNoSuchToken)
		return domain.OutcomeNoSuchToken, nil, nil
	}
	if err != nil {
		s.metrics.observeStoreFailure("pending_take")
		logger.ExitMethodWithError("ConfirmationService.Confirm", err)
		return domain.OutcomeNoSuchToken, nil, fmt.Errorf("%w: consume token: %w", domain.ErrStoreFailure, err)
	}

	// From here on the token is gone: any error loses the registration,
	// which is reported to the caller rather than hidden.
	station := reg.Station()
	for _, c := range claimOrder {
		claimed, err := s.slots.Claim(ctx, station, c.slot, reg)
		if err != nil {
			s.metrics.observeStoreFailure("slot_claim")
			logger.ExitMethodWithError("ConfirmationService.Confirm", err, "station", station.String(), "slot", c.slot)
			return domain.OutcomeNoSuchToken, reg, fmt.Errorf("%w: claim %s slot of %s: %w", domain.ErrStoreFailure, c.slot, station, err)
		}
		if !claimed {
			continue
		}

		if err := s.reservations.Put(ctx, reg); err != nil {
			// The slot is ours; only the intake duplicate guard is missing.
			s.metrics.observeStoreFailure("reservation_put")
			logger.ErrorContext(ctx, "Failed to record email reservation", "station", station.String(), "slot", c.slot, "error", err)
		}

		s.metrics.observeConfirmation(c.outcome)
		logger.InfoContext(ctx, "Registration confirmed", "station", station.String(), "slot", c.slot)
		logger.ExitMethod("ConfirmationService.Confirm", "outcome", c.outcome)
		return c.outcome, reg, nil
	}

	s.metrics.observeConfirmation(domain.OutcomeLocationFull)
	logger.InfoContext(ctx, "Registration rejected, station full", "station", station.String())
	logger.ExitMethod("ConfirmationService.Confirm", "outcome", domain.OutcomeLocationFull)
	return domain.OutcomeLocationFull, reg, nil
}
