package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"delegues-backend/internal/domain"
	"delegues-backend/internal/locations"
	"delegues-backend/internal/repository/kv"
	"delegues-backend/internal/security"
	"delegues-backend/internal/service"
	"delegues-backend/internal/storage"
)

const validToken = "3f1c9a4e-8b2d-4c6e-9f0a-1b2c3d4e5f60"

type MockRegistrationService struct {
	mock.Mock
}

func (m *MockRegistrationService) Submit(ctx context.Context, r *domain.Registrant, locationID, roleID string) (string, error) {
	args := m.Called(ctx, r, locationID, roleID)
	return args.String(0), args.Error(1)
}

type MockConfirmationService struct {
	mock.Mock
}

func (m *MockConfirmationService) Confirm(ctx context.Context, token string) (domain.Outcome, *domain.Registrant, error) {
	args := m.Called(ctx, token)
	reg, _ := args.Get(1).(*domain.Registrant)
	return args.Get(0).(domain.Outcome), reg, args.Error(2)
}

type MockCapacityService struct {
	mock.Mock
}

func (m *MockCapacityService) IsFull(ctx context.Context, locationID, roleID string) (bool, error) {
	args := m.Called(ctx, locationID, roleID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCapacityService) AvailableLocations(ctx context.Context, insee string) ([]domain.Location, error) {
	args := m.Called(ctx, insee)
	locs, _ := args.Get(0).([]domain.Location)
	return locs, args.Error(1)
}

type fakeHealth struct{ err error }

func (f fakeHealth) Ping(ctx context.Context) error { return f.err }

func testDirectory(t *testing.T) *locations.Directory {
	t.Helper()
	dir, err := locations.New([]domain.Location{
		{Insee: "42", Bureau: "7", Commune: "Saint-Étienne"},
		{Insee: "42", Bureau: "8", Commune: "Saint-Étienne"},
		{Insee: "43", Bureau: "1", Commune: "Le Puy-en-Velay"},
	})
	require.NoError(t, err)
	return dir
}

type mocks struct {
	registration *MockRegistrationService
	confirmation *MockConfirmationService
	capacity     *MockCapacityService
}

func newMockRouter(t *testing.T) (*mux.Router, *mocks) {
	m := &mocks{
		registration: new(MockRegistrationService),
		confirmation: new(MockConfirmationService),
		capacity:     new(MockCapacityService),
	}
	router := mux.NewRouter()
	RegisterRoutes(router, NewHandler(m.registration, m.confirmation, m.capacity, testDirectory(t), fakeHealth{}))
	return router, m
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHome_RedirectsToSearch(t *testing.T) {
	router, _ := newMockRouter(t)
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/recherche", rec.Header().Get("Location"))
}

func TestSearch(t *testing.T) {
	t.Run("Available", func(t *testing.T) {
		router, m := newMockRouter(t)
		m.capacity.On("AvailableLocations", mock.Anything, "42").
			Return([]domain.Location{{Insee: "42", Bureau: "8", Commune: "Saint-Étienne"}}, nil)

		rec := serve(router, formRequest(http.MethodPost, "/recherche", url.Values{"insee": {"42"}}))
		require.Equal(t, http.StatusOK, rec.Code)
		var body searchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Full)
		require.Len(t, body.Bureaux, 1)
		assert.Equal(t, "8", body.Bureaux[0].Bureau)
	})

	t.Run("AllFull", func(t *testing.T) {
		router, m := newMockRouter(t)
		m.capacity.On("AvailableLocations", mock.Anything, "42").Return([]domain.Location{}, nil)

		rec := serve(router, formRequest(http.MethodPost, "/recherche", url.Values{"insee": {"42"}}))
		require.Equal(t, http.StatusOK, rec.Code)
		var body searchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Full)
		assert.Equal(t, "Saint-Étienne", body.Commune)
	})

	t.Run("Unknown", func(t *testing.T) {
		router, m := newMockRouter(t)
		m.capacity.On("AvailableLocations", mock.Anything, "99").Return(nil, domain.ErrUnknownLocation)

		rec := serve(router, formRequest(http.MethodPost, "/recherche", url.Values{"insee": {"99"}}))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("StoreFailure", func(t *testing.T) {
		router, m := newMockRouter(t)
		m.capacity.On("AvailableLocations", mock.Anything, "42").Return(nil, domain.ErrStoreFailure)

		rec := serve(router, formRequest(http.MethodPost, "/recherche", url.Values{"insee": {"42"}}))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestSuggestions(t *testing.T) {
	router, _ := newMockRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/recherche/suggestions?q=saint+etienne", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body suggestionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Communes, 1)
	assert.Equal(t, "42", body.Communes[0].Insee)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/recherche/suggestions?q=", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStations(t *testing.T) {
	router, _ := newMockRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/bureau_vote/42", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body stationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Bureaux, 2)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/bureau_vote/99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegister(t *testing.T) {
	form := url.Values{
		"first_name": {"Jeanne"},
		"last_name":  {"Martin"},
		"email":      {"a@x.com"},
		"date":       {"23/04/2027"},
		"address1":   {"12 rue de la Roquette"},
		"phone":      {"0612345678"},
	}
	isJeanne := mock.MatchedBy(func(r *domain.Registrant) bool {
		return r.FirstName == "Jeanne" && r.Email == "a@x.com"
	})

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"Accepted", nil, http.StatusSeeOther},
		{"Invalid", &domain.ValidationError{Fields: map[string]string{"phone": "bad"}}, http.StatusUnprocessableEntity},
		{"MailFailed", domain.ErrEmailDispatch, http.StatusBadGateway},
		{"StoreFailed", domain.ErrStoreFailure, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, m := newMockRouter(t)
			m.registration.On("Submit", mock.Anything, isJeanne, "42", "7").Return("", tt.err)

			rec := serve(router, formRequest(http.MethodPost, "/bureau_vote/42/7", form))
			assert.Equal(t, tt.status, rec.Code)
			m.registration.AssertExpectations(t)
		})
	}

	t.Run("ValidationBody", func(t *testing.T) {
		router, m := newMockRouter(t)
		m.registration.On("Submit", mock.Anything, mock.Anything, "42", "7").
			Return("", &domain.ValidationError{Fields: map[string]string{"phone": "Téléphone invalide."}})

		rec := serve(router, formRequest(http.MethodPost, "/bureau_vote/42/7", form))
		assert.JSONEq(t, `{"errors":{"phone":"Téléphone invalide."}}`, rec.Body.String())
	})

	t.Run("JSONBody", func(t *testing.T) {
		router, m := newMockRouter(t)
		m.registration.On("Submit", mock.Anything, isJeanne, "42", "7").Return("tok", nil)

		req := httptest.NewRequest(http.MethodPost, "/bureau_vote/42/7",
			strings.NewReader(`{"first_name":"Jeanne","email":"a@x.com"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := serve(router, req)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})

	t.Run("BadJSON", func(t *testing.T) {
		router, m := newMockRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/bureau_vote/42/7", strings.NewReader(`{`))
		req.Header.Set("Content-Type", "application/json")
		rec := serve(router, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		m.registration.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name     string
		outcome  domain.Outcome
		err      error
		status   int
		location string
	}{
		{"Primary", domain.OutcomeAssignedPrimary, nil, http.StatusSeeOther, "/merci"},
		{"Secondary", domain.OutcomeAssignedSecondary, nil, http.StatusSeeOther, "/merci"},
		{"Full", domain.OutcomeLocationFull, nil, http.StatusSeeOther, "/bureau_plein"},
		{"NoSuchToken", domain.OutcomeNoSuchToken, nil, http.StatusUnauthorized, ""},
		{"StoreFailure", domain.OutcomeNoSuchToken, domain.ErrStoreFailure, http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, m := newMockRouter(t)
			m.confirmation.On("Confirm", mock.Anything, validToken).Return(tt.outcome, nil, tt.err)

			rec := serve(router, httptest.NewRequest(http.MethodGet, "/confirmation/"+validToken, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}

	t.Run("MalformedTokenSkipsEngine", func(t *testing.T) {
		router, m := newMockRouter(t)
		rec := serve(router, httptest.NewRequest(http.MethodGet, "/confirmation/not-a-token", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		m.confirmation.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
	})
}

func TestStaticPagesAndHealth(t *testing.T) {
	router, _ := newMockRouter(t)
	for _, path := range []string{"/merci", "/bureau_plein", "/recherche", "/healthz"} {
		rec := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	unhealthy := mux.NewRouter()
	RegisterRoutes(unhealthy, NewHandler(nil, nil, nil, testDirectory(t), fakeHealth{err: assert.AnError}))
	rec := serve(unhealthy, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecoverer(t *testing.T) {
	router, m := newMockRouter(t)
	m.confirmation.On("Confirm", mock.Anything, validToken).Run(func(mock.Arguments) { panic("boom") })

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/confirmation/"+validToken, nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := mux.NewRouter()
	RegisterMetricsRoute(router, "/metrics", reg)

	store := kv.NewStore(storage.NewMemoryStore(), "")
	confirmation := service.NewConfirmationService(
		store.PendingRegistrationRepository, store.SlotRepository, store.ReservationRepository, service.NewMetrics(reg))
	_, _, err := confirmation.Confirm(context.Background(), validToken)
	require.NoError(t, err)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `delegues_confirmations_total{outcome="no_such_token"} 1`)
}

// linkCatcher stands in for the mailer and remembers confirmation links.
type linkCatcher struct {
	mu    sync.Mutex
	links map[string]string
}

func (c *linkCatcher) SendConfirmation(ctx context.Context, to, link string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links[to] = link
	return nil
}

func (c *linkCatcher) path(t *testing.T, to string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, err := url.Parse(c.links[to])
	require.NoError(t, err)
	return u.Path
}

func TestRegistrationFlow(t *testing.T) {
	mem := storage.NewMemoryStore()
	defer mem.Close()
	store := kv.NewStore(mem, "")
	dir := testDirectory(t)
	mailer := &linkCatcher{links: make(map[string]string)}

	handler := NewHandler(
		service.NewRegistrationService(store.PendingRegistrationRepository, store.ReservationRepository, dir,
			security.NewTokenGenerator(), mailer, service.RegistrationConfig{PublicURL: "https://delegues.test"}, nil),
		service.NewConfirmationService(store.PendingRegistrationRepository, store.SlotRepository, store.ReservationRepository, nil),
		service.NewCapacityService(store.SlotRepository, dir),
		dir,
		nil,
	)
	router := mux.NewRouter()
	RegisterRoutes(router, handler)

	register := func(email string) {
		form := url.Values{
			"first_name": {"Jeanne"},
			"last_name":  {"Martin"},
			"email":      {email},
			"date":       {"23/04/2027"},
			"address1":   {"12 rue de la Roquette"},
			"phone":      {"06 12 34 56 78"},
		}
		rec := serve(router, formRequest(http.MethodPost, "/bureau_vote/42/7", form))
		require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	}
	confirm := func(email string) *httptest.ResponseRecorder {
		return serve(router, httptest.NewRequest(http.MethodGet, mailer.path(t, email), nil))
	}

	register("a@x.com")
	register("b@x.com")
	register("c@x.com")

	rec := confirm("a@x.com")
	assert.Equal(t, "/merci", rec.Header().Get("Location"))
	rec = confirm("a@x.com")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = confirm("b@x.com")
	assert.Equal(t, "/merci", rec.Header().Get("Location"))
	rec = confirm("c@x.com")
	assert.Equal(t, "/bureau_plein", rec.Header().Get("Location"))

	rec = serve(router, formRequest(http.MethodPost, "/recherche", url.Values{"insee": {"42"}}))
	var body searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Bureaux, 1)
	assert.Equal(t, "8", body.Bureaux[0].Bureau)
}
