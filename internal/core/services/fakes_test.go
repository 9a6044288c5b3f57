package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/core/domain"
	"github.com/SscSPs/fx_rates_service/internal/core/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var errTransportDown = errors.New("connection refused")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fake CacheTransport ---
type fakeTransport struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	down    bool
	gets    int
	pings   int
	compact int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeTransport) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeTransport) Backend() string { return "fake" }

func (f *fakeTransport) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if f.down {
		return errTransportDown
	}
	return nil
}

func (f *fakeTransport) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.down {
		return nil, errTransportDown
	}
	v, ok := f.data[key]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeTransport) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errTransportDown
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeTransport) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errTransportDown
	}
	delete(f.data, key)
	delete(f.ttls, key)
	return nil
}

func (f *fakeTransport) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return 0, errTransportDown
	}
	var n int64
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			delete(f.data, k)
			delete(f.ttls, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeTransport) Info(context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]string{
		"total_keys":        strconv.Itoa(len(f.data)),
		"uptime_in_seconds": "42",
		"used_memory_human": "1.00M",
	}, nil
}

func (f *fakeTransport) CountKeys(_ context.Context, prefix string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n, nil
}

func (f *fakeTransport) Compact(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errTransportDown
	}
	f.compact++
	return nil
}

func (f *fakeTransport) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

// --- Mock ExchangeRateRepository ---
type MockExchangeRateRepository struct {
	mock.Mock
}

func (m *MockExchangeRateRepository) FindRate(ctx context.Context, base, target string, date time.Time) (*domain.ExchangeRate, error) {
	args := m.Called(ctx, base, target, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) FindLatestDateWithRates(ctx context.Context, base string) (time.Time, error) {
	args := m.Called(ctx, base)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockExchangeRateRepository) FindRatesForDate(ctx context.Context, base string, date time.Time) ([]domain.ExchangeRate, error) {
	args := m.Called(ctx, base, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) UpsertRate(ctx context.Context, base, target string, date time.Time, rate decimal.Decimal) (*domain.ExchangeRate, error) {
	args := m.Called(ctx, base, target, date, rate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRate), args.Error(1)
}

// --- Mock RateFetcher ---
type MockRateFetcher struct {
	mock.Mock
}

func (m *MockRateFetcher) Fetch(ctx context.Context, base string) (ports.FetchResult, error) {
	args := m.Called(ctx, base)
	return args.Get(0).(ports.FetchResult), args.Error(1)
}

// --- Mock RateProvider ---
type MockRateProvider struct {
	mock.Mock
	name string
}

func (m *MockRateProvider) Name() string { return m.name }

func (m *MockRateProvider) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *MockRateProvider) FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, base)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

// --- Mock RateEventPublisher ---
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishRatesRefreshed(ctx context.Context, event domain.RatesRefreshedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventPublisher) Close() error { return nil }

// --- Mock WindowStore ---
type MockWindowStore struct {
	mock.Mock
}

func (m *MockWindowStore) Acquire(ctx context.Context, clientID string, bucket, ceiling int64) (bool, int64, error) {
	args := m.Called(ctx, clientID, bucket, ceiling)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
