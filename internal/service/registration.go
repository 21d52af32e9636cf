package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"delegues-backend/internal/domain"
	"delegues-backend/internal/logger"
	"delegues-backend/internal/repository"
	"delegues-backend/internal/security"
)

type registrationService struct {
	pending      repository.PendingRegistrationRepository
	reservations repository.ReservationRepository
	directory    LocationDirectory
	tokens       security.TokenGenerator
	emailSvc     EmailService
	publicURL    string
	pendingTTL   time.Duration
	metrics      *Metrics
}

// RegistrationConfig carries the intake settings
type RegistrationConfig struct {
	PublicURL  string
	PendingTTL time.Duration
}

func NewRegistrationService(
	pending repository.PendingRegistrationRepository,
	reservations repository.ReservationRepository,
	directory LocationDirectory,
	tokens security.TokenGenerator,
	emailSvc EmailService,
	cfg RegistrationConfig,
	metrics *Metrics,
) RegistrationService {
	return &registrationService{
		pending:      pending,
		reservations: reservations,
		directory:    directory,
		tokens:       tokens,
		emailSvc:     emailSvc,
		publicURL:    strings.TrimRight(cfg.PublicURL, "/"),
		pendingTTL:   cfg.PendingTTL,
		metrics:      metrics,
	}
}

// ConfirmationLink builds the URL mailed to the registrant.
func ConfirmationLink(publicURL, token string) string {
	return fmt.Sprintf("%s/confirmation/%s", strings.TrimRight(publicURL, "/"), token)
}

func (s *registrationService) Submit(ctx context.Context, in *domain.Registrant, locationID, roleID string) (string, error) {
	logger.EnterMethod("RegistrationService.Submit", "insee", locationID, "bur", roleID)

	reg := *in
	reg.Email = strings.TrimSpace(reg.Email)
	reg.LocationID = locationID
	reg.RoleID = roleID

	verr := ValidateRegistrant(&reg)
	if verr == nil {
		verr = domain.NewValidationError()
	}
	if s.directory != nil && !s.directory.Has(reg.Station()) {
		verr.Add("bureau", "Bureau de vote inconnu.")
	}
	if _, ok := verr.Fields["email"]; !ok && reg.Email != "" {
		// Best-effort guard: two unconfirmed submissions can still both confirm.
		taken, err := s.reservations.Exists(ctx, reg.Email)
		if err != nil {
			s.metrics.observeStoreFailure("reservation_lookup")
			logger.ExitMethodWithError("RegistrationService.Submit", err)
			return "", fmt.Errorf("%w: check email reservation: %w", domain.ErrStoreFailure, err)
		}
		if taken {
			verr.Add("email", "Email est déjà utilisé.")
		}
	}
	if !verr.Empty() {
		s.metrics.observeRegistration("invalid")
		logger.ExitMethod("RegistrationService.Submit", "result", "invalid")
		return "", verr
	}

	token, err := s.tokens.NewToken()
	if err != nil {
		logger.ExitMethodWithError("RegistrationService.Submit", err)
		return "", err
	}

	if err := s.pending.Create(ctx, token, &reg, s.pendingTTL); err != nil {
		s.metrics.observeStoreFailure("pending_create")
		s.metrics.observeRegistration("store_failed")
		logger.ExitMethodWithError("RegistrationService.Submit", err)
		return "", fmt.Errorf("%w: store pending registration: %w", domain.ErrStoreFailure, err)
	}

	// The pending registration stays stored when the mail fails; the
	// registrant has to submit again to get a working link.
	if err := s.emailSvc.SendConfirmation(ctx, reg.Email, ConfirmationLink(s.publicURL, token)); err != nil {
		s.metrics.observeRegistration("mail_failed")
		logger.ExitMethodWithError("RegistrationService.Submit", err)
		if !errors.Is(err, domain.ErrEmailDispatch) {
			err = fmt.Errorf("%w: %w", domain.ErrEmailDispatch, err)
		}
		return "", err
	}

	s.metrics.observeRegistration("accepted")
	logger.ExitMethod("RegistrationService.Submit", "result", "accepted")
	return token, nil
}
