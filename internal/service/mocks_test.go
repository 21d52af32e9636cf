package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"delegues-backend/internal/domain"
)

// MockPendingRepo
type MockPendingRepo struct {
	mock.Mock
}

func (m *MockPendingRepo) Create(ctx context.Context, token string, r *domain.Registrant, ttl time.Duration) error {
	args := m.Called(ctx, token, r, ttl)
	return args.Error(0)
}
func (m *MockPendingRepo) Take(ctx context.Context, token string) (*domain.Registrant, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registrant), args.Error(1)
}

// MockSlotRepo
type MockSlotRepo struct {
	mock.Mock
}

func (m *MockSlotRepo) Claim(ctx context.Context, station domain.Station, slot domain.Slot, r *domain.Registrant) (bool, error) {
	args := m.Called(ctx, station, slot, r)
	return args.Bool(0), args.Error(1)
}
func (m *MockSlotRepo) Get(ctx context.Context, station domain.Station, slot domain.Slot) (*domain.Registrant, error) {
	args := m.Called(ctx, station, slot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registrant), args.Error(1)
}
func (m *MockSlotRepo) Exists(ctx context.Context, station domain.Station, slot domain.Slot) (bool, error) {
	args := m.Called(ctx, station, slot)
	return args.Bool(0), args.Error(1)
}

// MockReservationRepo
type MockReservationRepo struct {
	mock.Mock
}

func (m *MockReservationRepo) Put(ctx context.Context, r *domain.Registrant) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockReservationRepo) GetByEmail(ctx context.Context, email string) (*domain.Registrant, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registrant), args.Error(1)
}
func (m *MockReservationRepo) Exists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendConfirmation(ctx context.Context, to, link string) error {
	args := m.Called(ctx, to, link)
	return args.Error(0)
}

// recordingEmailService keeps every link it was asked to send.
type recordingEmailService struct {
	mu    sync.Mutex
	links map[string]string
}

func newRecordingEmailService() *recordingEmailService {
	return &recordingEmailService{links: make(map[string]string)}
}

func (r *recordingEmailService) SendConfirmation(ctx context.Context, to, link string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[to] = link
	return nil
}

// MockSender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type sequenceTokens struct {
	mu sync.Mutex
	n  int
}

func (s *sequenceTokens) NewToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("T%d", s.n), nil
}
