// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"vpn-subscription-bot/internal/config"
	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// --- Subscription repo

type memSubscriber struct {
	serverID *int64
	expiry   *time.Time
	devices  int
}

type memSubscriptionRepo struct {
	mu        sync.RWMutex
	store     map[int64]*memSubscriber
	order     []int64
	listErr   error
	expiryErr map[int64]error
	deviceErr error
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{store: map[int64]*memSubscriber{}, expiryErr: map[int64]error{}}
}

func (m *memSubscriptionRepo) put(id int64, withServer bool, expiry *time.Time, devices int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &memSubscriber{expiry: expiry, devices: devices}
	if withServer {
		srv := int64(1)
		s.serverID = &srv
	}
	if _, ok := m.store[id]; !ok {
		m.order = append(m.order, id)
	}
	m.store[id] = s
}

func (m *memSubscriptionRepo) ListWithResource(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.SubscriptionRecord
	for _, id := range m.order {
		s := m.store[id]
		if s.serverID != nil {
			out = append(out, &model.SubscriptionRecord{SubjectID: id, ServerID: s.serverID, ResourceAssigned: true})
		}
	}
	return out, nil
}

func (m *memSubscriptionRepo) FindBySubject(ctx context.Context, tx repository.Tx, id int64) (*model.SubscriptionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &model.SubscriptionRecord{SubjectID: id, ServerID: s.serverID, ResourceAssigned: s.serverID != nil}, nil
}

func (m *memSubscriptionRepo) GetExpiry(ctx context.Context, tx repository.Tx, id int64) (*time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.expiryErr[id]; err != nil {
		return nil, err
	}
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.expiry, nil
}

func (m *memSubscriptionRepo) GetDeviceCount(ctx context.Context, tx repository.Tx, id int64) (int, error) {
	if m.deviceErr != nil {
		return 0, m.deviceErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return s.devices, nil
}

// --- Server repo

type memServerRepo struct {
	servers []*model.Server
}

func (m *memServerRepo) FindAvailable(ctx context.Context, tx repository.Tx) (*model.Server, error) {
	for _, s := range m.servers {
		if s.HasCapacity() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memServerRepo) Save(ctx context.Context, tx repository.Tx, s *model.Server) error {
	m.servers = append(m.servers, s)
	return nil
}

// --- Promocode repo

type memPromocodeRepo struct {
	mu        sync.Mutex
	store     map[string]*model.Promocode
	createErr error
	nextCode  string
}

func newMemPromocodeRepo() *memPromocodeRepo {
	return &memPromocodeRepo{store: map[string]*model.Promocode{}}
}

func (m *memPromocodeRepo) seed(code string, days int, activated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[code] = &model.Promocode{ID: "id-" + code, Code: code, DurationDays: days, IsActivated: activated}
}

func (m *memPromocodeRepo) Create(ctx context.Context, tx repository.Tx, days int) (*model.Promocode, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	code := m.nextCode
	if code == "" {
		code = fmt.Sprintf("CODE%04d", len(m.store)+1)
	}
	if _, ok := m.store[code]; ok {
		return nil, domain.ErrAlreadyExists
	}
	p := &model.Promocode{ID: "id-" + code, Code: code, DurationDays: days}
	m.store[code] = p
	cp := *p
	return &cp, nil
}

func (m *memPromocodeRepo) Get(ctx context.Context, tx repository.Tx, code string) (*model.Promocode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPromocodeRepo) Update(ctx context.Context, tx repository.Tx, code string, days int) (*model.Promocode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.DurationDays = days
	cp := *p
	return &cp, nil
}

func (m *memPromocodeRepo) Delete(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[code]; !ok {
		return false, nil
	}
	delete(m.store, code)
	return true, nil
}

// --- Payment gateway

type mockGateway struct {
	name     string
	currency string
	err      error
	requests []adapter.PaymentRequest
}

func (g *mockGateway) Name() string     { return g.name }
func (g *mockGateway) Currency() string { return g.currency }

func (g *mockGateway) CreatePayment(ctx context.Context, req adapter.PaymentRequest) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.requests = append(g.requests, req)
	return fmt.Sprintf("ref-%d", len(g.requests)), nil
}

// --- Notifier

type sentMessage struct {
	ID   int64
	Text string
}

type mockNotifier struct {
	mu     sync.Mutex
	Sent   []sentMessage
	failOn map[int64]bool
}

func (n *mockNotifier) Notify(ctx context.Context, id int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failOn[id] {
		return errors.New("telegram: bot was blocked by the user")
	}
	n.Sent = append(n.Sent, sentMessage{ID: id, Text: text})
	return nil
}

// --- Translator

// echoTranslator returns the key followed by its arguments, space separated.
type echoTranslator struct{}

func (echoTranslator) T(key string, args ...interface{}) string {
	parts := []string{key}
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, " ")
}

// --- Fixtures

func testShop() config.ShopConfig {
	return config.ShopConfig{
		Currency:  "XTR",
		Durations: []int{30, 90},
		Plans: []config.PlanConfig{
			{Devices: 1, Prices: map[string]map[int]int{"XTR": {30: 100, 90: 270}}},
			{Devices: 3, Prices: map[string]map[int]int{"XTR": {30: 200, 90: 540}}},
		},
	}
}
