package handlers_test

import (
	"context"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/core/domain"
	portssvc "github.com/SscSPs/fx_rates_service/internal/core/ports/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock ExchangeRateService ---
type MockExchangeRateService struct {
	mock.Mock
}

func (m *MockExchangeRateService) GetRate(ctx context.Context, base, target string, date time.Time) (*domain.ExchangeRate, error) {
	args := m.Called(ctx, base, target, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateService) GetLatestRates(ctx context.Context, base string) (domain.RateSnapshot, error) {
	args := m.Called(ctx, base)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.RateSnapshot), args.Error(1)
}

func (m *MockExchangeRateService) GetRatesForDate(ctx context.Context, base string, date time.Time) (domain.RateSnapshot, error) {
	args := m.Called(ctx, base, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.RateSnapshot), args.Error(1)
}

func (m *MockExchangeRateService) ConvertCurrency(ctx context.Context, amount decimal.Decimal, from, to string, date time.Time) (*domain.ConversionResult, error) {
	args := m.Called(ctx, amount, from, to, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConversionResult), args.Error(1)
}

func (m *MockExchangeRateService) FetchAndStoreDailyRates(ctx context.Context, base string) (bool, error) {
	args := m.Called(ctx, base)
	return args.Bool(0), args.Error(1)
}

func (m *MockExchangeRateService) SupportedCurrencies() []string {
	return []string{"USD", "EUR", "GBP"}
}

func (m *MockExchangeRateService) BaseCurrency() string {
	return "USD"
}

var _ portssvc.ExchangeRateSvcFacade = (*MockExchangeRateService)(nil)

// --- Mock RateCacheSvc ---
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetRate(ctx context.Context, base, target string, date time.Time) (decimal.Decimal, bool) {
	args := m.Called(ctx, base, target, date)
	return args.Get(0).(decimal.Decimal), args.Bool(1)
}

func (m *MockCacheService) SetRate(ctx context.Context, base, target string, date time.Time, rate decimal.Decimal, ttl time.Duration) bool {
	return m.Called(ctx, base, target, date, rate, ttl).Bool(0)
}

func (m *MockCacheService) DeleteRate(ctx context.Context, base, target string, date time.Time) bool {
	return m.Called(ctx, base, target, date).Bool(0)
}

func (m *MockCacheService) GetLatestSnapshot(ctx context.Context, base string) (domain.RateSnapshot, bool) {
	args := m.Called(ctx, base)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(domain.RateSnapshot), args.Bool(1)
}

func (m *MockCacheService) SetLatestSnapshot(ctx context.Context, base string, snapshot domain.RateSnapshot, ttl time.Duration) bool {
	return m.Called(ctx, base, snapshot, ttl).Bool(0)
}

func (m *MockCacheService) DeleteLatestSnapshot(ctx context.Context, base string) bool {
	return m.Called(ctx, base).Bool(0)
}

func (m *MockCacheService) InvalidateAll(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockCacheService) IsConnected(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockCacheService) Stats(ctx context.Context) domain.CacheStats {
	return m.Called(ctx).Get(0).(domain.CacheStats)
}

func (m *MockCacheService) Compact(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

var _ portssvc.RateCacheSvc = (*MockCacheService)(nil)

// --- Mock AdmissionLimiterSvc ---
type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, clientID string) bool {
	return m.Called(ctx, clientID).Bool(0)
}

func (m *MockLimiter) Ceiling() int64 { return 3 }

// --- Mock JobControllerSvc ---
type MockJobs struct {
	mock.Mock
}

func (m *MockJobs) Jobs() []portssvc.JobStatus {
	return m.Called().Get(0).([]portssvc.JobStatus)
}

func (m *MockJobs) RunNow(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

// --- Mock HealthSvc ---
type MockHealth struct {
	mock.Mock
}

func (m *MockHealth) DatabaseHealthy(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockHealth) CacheHealthy(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}
