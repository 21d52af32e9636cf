package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"delegues-backend/internal/domain"
	"delegues-backend/internal/locations"
	"delegues-backend/internal/repository/kv"
	"delegues-backend/internal/storage"
)

type testEnv struct {
	mem          *storage.MemoryStore
	store        *kv.Store
	directory    *locations.Directory
	email        *recordingEmailService
	registration RegistrationService
	confirmation ConfirmationService
	capacity     CapacityService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := storage.NewMemoryStore()
	t.Cleanup(func() { mem.Close() })
	env := newTestEnvOn(t, mem)
	env.mem = mem
	return env
}

// newBadgerTestEnv runs the services over an in-memory badger store.
func newBadgerTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newTestEnvOn(t, db)
}

func newTestEnvOn(t *testing.T, backend storage.Store) *testEnv {
	t.Helper()
	dir, err := locations.New([]domain.Location{
		{Insee: "42", Bureau: "7", Commune: "Testville"},
		{Insee: "42", Bureau: "8", Commune: "Testville"},
		{Insee: "43", Bureau: "1", Commune: "Autreville"},
	})
	require.NoError(t, err)

	store := kv.NewStore(backend, "")
	email := newRecordingEmailService()

	return &testEnv{
		store:     store,
		directory: dir,
		email:     email,
		registration: NewRegistrationService(store.PendingRegistrationRepository, store.ReservationRepository, dir, &sequenceTokens{}, email,
			RegistrationConfig{PublicURL: "https://delegues.test/"}, nil),
		confirmation: NewConfirmationService(store.PendingRegistrationRepository, store.SlotRepository, store.ReservationRepository, nil),
		capacity:     NewCapacityService(store.SlotRepository, dir),
	}
}

func registrantWithEmail(email string) *domain.Registrant {
	r := validRegistrant()
	r.Email = email
	return r
}

// submit registers email for station 42/7 and returns the token.
func (e *testEnv) submit(t *testing.T, email string) string {
	t.Helper()
	tok, err := e.registration.Submit(context.Background(), registrantWithEmail(email), "42", "7")
	require.NoError(t, err)
	return tok
}

func (e *testEnv) submitMany(t *testing.T, n int) []string {
	t.Helper()
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = e.submit(t, fmt.Sprintf("volunteer%d@example.com", i))
	}
	return tokens
}
