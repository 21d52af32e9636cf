package http

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"delegues-backend/internal/domain"
	"delegues-backend/internal/logger"
	"delegues-backend/internal/security"
	"delegues-backend/internal/service"
)

const (
	msgSearchHint   = "Indiquez le code INSEE de votre commune."
	msgNoSuchToken  = "Ce lien de confirmation n'est pas valide ou a déjà été utilisé."
	msgThanks       = "Merci ! Votre inscription comme délégué est confirmée."
	msgStationFull  = "Ce bureau de vote a déjà ses deux délégués."
	msgMailFailed   = "L'email de confirmation n'a pas pu être envoyé, veuillez réessayer."
	msgInternal     = "Une erreur interne est survenue, veuillez réessayer."
	msgUnknownPlace = "Commune ou bureau de vote inconnu."
	msgBadQuery     = "La recherche doit contenir entre 1 et 300 caractères."
	msgBadBody      = "Formulaire illisible."
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler serves the registration site.
type Handler struct {
	registration service.RegistrationService
	confirmation service.ConfirmationService
	capacity     service.CapacityService
	directory    service.LocationDirectory
	health       HealthChecker
}

func NewHandler(
	registration service.RegistrationService,
	confirmation service.ConfirmationService,
	capacity service.CapacityService,
	directory service.LocationDirectory,
	health HealthChecker,
) *Handler {
	return &Handler{
		registration: registration,
		confirmation: confirmation,
		capacity:     capacity,
		directory:    directory,
		health:       health,
	}
}

type searchResponse struct {
	Full    bool              `json:"full"`
	Commune string            `json:"nomcom,omitempty"`
	Bureaux []domain.Location `json:"bureaux"`
}

type stationsResponse struct {
	Insee   string            `json:"insee"`
	Bureaux []domain.Location `json:"bureaux"`
}

type suggestionsResponse struct {
	Communes []domain.Commune `json:"communes"`
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, "/recherche")
}

func (h *Handler) SearchHint(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, msgSearchHint)
}

// Search lists the stations of a commune that still need a delegate.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	insee := r.FormValue("insee")
	available, err := h.capacity.AvailableLocations(r.Context(), insee)
	switch {
	case errors.Is(err, domain.ErrUnknownLocation):
		writeMessage(w, http.StatusNotFound, msgUnknownPlace)
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "Failed to list available stations", "insee", insee, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}

	if len(available) == 0 {
		resp := searchResponse{Full: true, Bureaux: []domain.Location{}}
		if locs, ok := h.directory.Lookup(insee); ok && len(locs) > 0 {
			resp.Commune = locs[0].Commune
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Commune: available[0].Commune, Bureaux: available})
}

func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	communes, err := h.directory.Search(r.URL.Query().Get("q"), 0)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadQuery)
		return
	}
	writeJSON(w, http.StatusOK, suggestionsResponse{Communes: communes})
}

// Stations returns every station of a commune, full or not, to prefill the
// registration form.
func (h *Handler) Stations(w http.ResponseWriter, r *http.Request) {
	insee := mux.Vars(r)["insee"]
	locs, ok := h.directory.Lookup(insee)
	if !ok {
		writeMessage(w, http.StatusNotFound, msgUnknownPlace)
		return
	}
	writeJSON(w, http.StatusOK, stationsResponse{Insee: insee, Bureaux: locs})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reg, err := decodeRegistrant(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadBody)
		return
	}

	_, err = h.registration.Submit(r.Context(), reg, vars["insee"], vars["bur"])
	var verr *domain.ValidationError
	switch {
	case err == nil:
		redirect(w, r, "/recherche")
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, verr)
	case errors.Is(err, domain.ErrEmailDispatch):
		writeMessage(w, http.StatusBadGateway, msgMailFailed)
	default:
		logger.ErrorContext(r.Context(), "Failed to register delegate", "insee", vars["insee"], "bur", vars["bur"], "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	// Malformed tokens cannot exist in the store; answer without a lookup.
	if err := security.ValidateTokenFormat(token); err != nil {
		writeMessage(w, http.StatusUnauthorized, msgNoSuchToken)
		return
	}

	outcome, _, err := h.confirmation.Confirm(r.Context(), token)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to confirm registration", "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}

	switch outcome {
	case domain.OutcomeAssignedPrimary, domain.OutcomeAssignedSecondary:
		redirect(w, r, "/merci")
	case domain.OutcomeLocationFull:
		redirect(w, r, "/bureau_plein")
	default:
		writeMessage(w, http.StatusUnauthorized, msgNoSuchToken)
	}
}

func (h *Handler) Thanks(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, msgThanks)
}

func (h *Handler) StationFull(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, msgStationFull)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			logger.WarnContext(r.Context(), "Health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeRegistrant accepts a JSON body or a classic form post.
func decodeRegistrant(r *http.Request) (*domain.Registrant, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var reg domain.Registrant
		if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(&reg); err != nil {
			return nil, err
		}
		return &reg, nil
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return &domain.Registrant{
		Email:     r.PostFormValue("email"),
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Phone:     r.PostFormValue("phone"),
		Date:      r.PostFormValue("date"),
		Zipcode:   r.PostFormValue("zipcode"),
		Address1:  r.PostFormValue("address1"),
		Address2:  r.PostFormValue("address2"),
		Commune:   r.PostFormValue("commune"),
	}, nil
}

const maxBodyBytes = 64 << 10

// RegisterRoutes registers the registration site endpoints
func RegisterRoutes(router *mux.Router, h *Handler) {
	router.Use(Recoverer, RequestLogger)

	router.HandleFunc("/", h.Home).Methods(http.MethodGet)
	router.HandleFunc("/recherche", h.SearchHint).Methods(http.MethodGet)
	router.HandleFunc("/recherche", h.Search).Methods(http.MethodPost)
	router.HandleFunc("/recherche/suggestions", h.Suggestions).Methods(http.MethodGet)
	router.HandleFunc("/bureau_vote/{insee}", h.Stations).Methods(http.MethodGet)
	router.HandleFunc("/bureau_vote/{insee}/{bur}", h.Register).Methods(http.MethodPost)
	router.HandleFunc("/confirmation/{token}", h.Confirm).Methods(http.MethodGet)
	router.HandleFunc("/merci", h.Thanks).Methods(http.MethodGet)
	router.HandleFunc("/bureau_plein", h.StationFull).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
}

// RegisterMetricsRoute exposes the Prometheus registry on path.
func RegisterMetricsRoute(router *mux.Router, path string, gatherer prometheus.Gatherer) {
	router.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}
