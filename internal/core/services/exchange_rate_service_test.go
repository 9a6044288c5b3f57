package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/apperrors"
	"github.com/SscSPs/fx_rates_service/internal/core/domain"
	"github.com/SscSPs/fx_rates_service/internal/core/ports"
	"github.com/SscSPs/fx_rates_service/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Test Suite ---
type ExchangeRateServiceTestSuite struct {
	suite.Suite
	mockRateRepo  *MockExchangeRateRepository
	mockFetcher   *MockRateFetcher
	mockPublisher *MockEventPublisher
	transport     *fakeTransport
	cache         *services.RateCacheService
	service       *services.ExchangeRateService
	now           time.Time
	today         time.Time
	ctx           context.Context
}

func (suite *ExchangeRateServiceTestSuite) SetupTest() {
	suite.mockRateRepo = new(MockExchangeRateRepository)
	suite.mockFetcher = new(MockRateFetcher)
	suite.mockPublisher = new(MockEventPublisher)
	suite.transport = newFakeTransport()
	suite.cache = services.NewRateCacheService(suite.transport, services.WithCacheLogger(quietLogger()))
	suite.now = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	suite.today = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	suite.ctx = context.Background()

	supported := domain.MustCurrencySet("USD", "EUR", "GBP", "JPY")
	suite.service = services.NewExchangeRateService(suite.mockRateRepo, suite.cache, suite.mockFetcher, supported, "USD",
		services.WithClock(func() time.Time { return suite.now }),
		services.WithEventPublisher(suite.mockPublisher),
		services.WithRateLogger(quietLogger()),
	)
}

func TestExchangeRateServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ExchangeRateServiceTestSuite))
}

func (suite *ExchangeRateServiceTestSuite) storedRate(base, target, rate string, date time.Time) *domain.ExchangeRate {
	return &domain.ExchangeRate{
		ExchangeRateID: base + target,
		BaseCurrency:   base,
		TargetCurrency: target,
		Rate:           dec(rate),
		Date:           date,
		RecordedAt:     suite.now,
	}
}

// --- GetRate ---

func (suite *ExchangeRateServiceTestSuite) TestGetRate_StoreHitWritesBack() {
	suite.mockRateRepo.On("FindRate", mock.Anything, "USD", "EUR", suite.today).
		Return(suite.storedRate("USD", "EUR", "0.85", suite.today), nil).Once()

	rate, err := suite.service.GetRate(suite.ctx, "usd", "eur", time.Time{})
	suite.Require().NoError(err)
	suite.True(rate.Rate.Equal(dec("0.85")))
	suite.True(suite.transport.has("rate:USD:EUR:2024-03-15"))

	// second read is served by the cache; the Once() above would fail otherwise
	again, err := suite.service.GetRate(suite.ctx, "USD", "EUR", time.Time{})
	suite.Require().NoError(err)
	suite.True(again.Rate.Equal(dec("0.85")))
	suite.Equal(suite.today, again.Date)
	suite.mockRateRepo.AssertExpectations(suite.T())
}

func (suite *ExchangeRateServiceTestSuite) TestGetRate_CacheHitSkipsStore() {
	suite.cache.SetRate(suite.ctx, "USD", "GBP", suite.today, dec("0.79"), 0)

	rate, err := suite.service.GetRate(suite.ctx, "USD", "GBP", suite.today)
	suite.Require().NoError(err)
	suite.True(rate.Rate.Equal(dec("0.79")))
	suite.mockRateRepo.AssertNotCalled(suite.T(), "FindRate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ExchangeRateServiceTestSuite) TestGetRate_CacheDownFallsBackToStore() {
	suite.transport.setDown(true)
	suite.mockRateRepo.On("FindRate", mock.Anything, "USD", "EUR", suite.today).
		Return(suite.storedRate("USD", "EUR", "0.85", suite.today), nil).Twice()

	for i := 0; i < 2; i++ {
		rate, err := suite.service.GetRate(suite.ctx, "USD", "EUR", suite.today)
		suite.Require().NoError(err)
		suite.True(rate.Rate.Equal(dec("0.85")))
	}
	suite.mockRateRepo.AssertExpectations(suite.T())
}

func (suite *ExchangeRateServiceTestSuite) TestGetRate_NotFound() {
	suite.mockRateRepo.On("FindRate", mock.Anything, "USD", "JPY", suite.today).
		Return(nil, apperrors.NewNotFoundError("exchange rate not found")).Once()

	rate, err := suite.service.GetRate(suite.ctx, "USD", "JPY", suite.today)
	suite.Nil(rate)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.NotErrorIs(err, apperrors.ErrUnavailable)
	suite.False(suite.transport.has("rate:USD:JPY:2024-03-15"))
}

func (suite *ExchangeRateServiceTestSuite) TestGetRate_StoreFailureIsUnavailable() {
	suite.mockRateRepo.On("FindRate", mock.Anything, "USD", "EUR", suite.today).
		Return(nil, errors.New("connection reset by peer")).Once()

	_, err := suite.service.GetRate(suite.ctx, "USD", "EUR", suite.today)
	suite.ErrorIs(err, apperrors.ErrUnavailable)
	suite.NotErrorIs(err, apperrors.ErrNotFound)
}

func (suite *ExchangeRateServiceTestSuite) TestGetRate_Validation() {
	_, err := suite.service.GetRate(suite.ctx, "US", "EUR", suite.today)
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.service.GetRate(suite.ctx, "USD", "XAU", suite.today)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRateRepo.AssertNotCalled(suite.T(), "FindRate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- GetLatestRates ---

func (suite *ExchangeRateServiceTestSuite) TestGetLatestRates_EmptyStore() {
	suite.mockRateRepo.On("FindLatestDateWithRates", mock.Anything, "USD").
		Return(time.Time{}, apperrors.NewNotFoundError("no rates")).Once()

	snapshot, err := suite.service.GetLatestRates(suite.ctx, "USD")
	suite.Require().NoError(err)
	suite.NotNil(snapshot)
	suite.Empty(snapshot)
	suite.False(suite.transport.has("latest:USD"))
}

func (suite *ExchangeRateServiceTestSuite) TestGetLatestRates_LoadsAndCachesSnapshot() {
	latest := suite.today.AddDate(0, 0, -1)
	suite.mockRateRepo.On("FindLatestDateWithRates", mock.Anything, "USD").Return(latest, nil).Once()
	suite.mockRateRepo.On("FindRatesForDate", mock.Anything, "USD", latest).Return([]domain.ExchangeRate{
		*suite.storedRate("USD", "EUR", "0.85", latest),
		*suite.storedRate("USD", "GBP", "0.79", latest),
	}, nil).Once()

	snapshot, err := suite.service.GetLatestRates(suite.ctx, "USD")
	suite.Require().NoError(err)
	suite.Len(snapshot, 2)
	suite.True(snapshot["GBP"].Rate.Equal(dec("0.79")))

	cached, err := suite.service.GetLatestRates(suite.ctx, "USD")
	suite.Require().NoError(err)
	suite.Len(cached, 2)
	suite.True(cached["EUR"].Rate.Equal(dec("0.85")))
	suite.Equal(latest, cached["EUR"].Date)
	suite.mockRateRepo.AssertExpectations(suite.T())
}

func (suite *ExchangeRateServiceTestSuite) TestGetLatestRates_StoreFailure() {
	suite.mockRateRepo.On("FindLatestDateWithRates", mock.Anything, "USD").
		Return(time.Time{}, errors.New("timeout")).Once()

	_, err := suite.service.GetLatestRates(suite.ctx, "USD")
	suite.ErrorIs(err, apperrors.ErrUnavailable)
}

// --- GetRatesForDate ---

func (suite *ExchangeRateServiceTestSuite) TestGetRatesForDate_SkipsMissingTargets() {
	suite.mockRateRepo.On("FindRate", mock.Anything, "USD", "EUR", suite.today).
		Return(suite.storedRate("USD", "EUR", "0.85", suite.today), nil)
	suite.mockRateRepo.On("FindRate", mock.Anything, "USD", "GBP", suite.today).
		Return(nil, apperrors.NewNotFoundError("exchange rate not found"))
	suite.mockRateRepo.On("FindRate", mock.Anything, "USD", "JPY", suite.today).
		Return(suite.storedRate("USD", "JPY", "151.2", suite.today), nil)

	snapshot, err := suite.service.GetRatesForDate(suite.ctx, "USD", suite.today)
	suite.Require().NoError(err)
	suite.Len(snapshot, 2)
	suite.Contains(snapshot, "EUR")
	suite.Contains(snapshot, "JPY")
	suite.NotContains(snapshot, "USD")
}

// --- ConvertCurrency ---

func (suite *ExchangeRateServiceTestSuite) TestConvert_Identity() {
	for _, amount := range []string{"0", "-12.5", "100"} {
		result, err := suite.service.ConvertCurrency(suite.ctx, dec(amount), "XXX", "xxx", suite.today)
		suite.Require().NoError(err)
		suite.True(result.ConvertedAmount.Equal(dec(amount)))
		suite.True(result.RateUsed.Equal(decimal.NewFromInt(1)))
		suite.False(result.Reversed)
	}
	suite.mockRateRepo.AssertNotCalled(suite.T(), "FindRate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ExchangeRateServiceTestSuite) TestConvert_Direct() {
	suite.mockRateRepo.On("FindRate", mock.Anything, "USD", "EUR", suite.today).
		Return(suite.storedRate("USD", "EUR", "0.85", suite.today), nil).Once()

	result, err := suite.service.ConvertCurrency(suite.ctx, dec("100"), "USD", "EUR", suite.today)
	suite.Require().NoError(err)
	suite.True(result.ConvertedAmount.Equal(dec("85")), "got %s", result.ConvertedAmount)
	suite.True(result.RateUsed.Equal(dec("0.85")))
	suite.Equal("USD", result.OriginalCurrency)
	suite.Equal("EUR", result.TargetCurrency)
	suite.False(result.Reversed)
}

func (suite *ExchangeRateServiceTestSuite) TestConvert_ReverseRate() {
	reverseDate := suite.today.AddDate(0, 0, -2)
	suite.mockRateRepo.On("FindRate", mock.Anything, "EUR", "USD", suite.today).
		Return(nil, apperrors.NewNotFoundError("exchange rate not found")).Once()
	suite.mockRateRepo.On("FindRate", mock.Anything, "USD", "EUR", suite.today).
		Return(suite.storedRate("USD", "EUR", "0.85", reverseDate), nil).Once()

	result, err := suite.service.ConvertCurrency(suite.ctx, dec("85"), "EUR", "USD", suite.today)
	suite.Require().NoError(err)
	suite.True(result.Reversed)
	suite.Equal(reverseDate, result.RateDate)

	expected := 1 / 0.85
	got, _ := result.RateUsed.Float64()
	suite.InDelta(expected, got, 1e-9)

	converted, _ := result.ConvertedAmount.Float64()
	suite.InDelta(100.0, converted, 1e-9)
}

func (suite *ExchangeRateServiceTestSuite) TestConvert_RoundTrip() {
	suite.mockRateRepo.On("FindRate", mock.Anything, "USD", "GBP", suite.today).
		Return(suite.storedRate("USD", "GBP", "0.7913", suite.today), nil).Once()
	suite.mockRateRepo.On("FindRate", mock.Anything, "GBP", "USD", suite.today).
		Return(nil, apperrors.NewNotFoundError("exchange rate not found")).Once()

	there, err := suite.service.ConvertCurrency(suite.ctx, dec("250"), "USD", "GBP", suite.today)
	suite.Require().NoError(err)
	back, err := suite.service.ConvertCurrency(suite.ctx, there.ConvertedAmount, "GBP", "USD", suite.today)
	suite.Require().NoError(err)

	got, _ := back.ConvertedAmount.Float64()
	suite.InDelta(250.0, got, 1e-9)
}

func (suite *ExchangeRateServiceTestSuite) TestConvert_NoRate() {
	suite.mockRateRepo.On("FindRate", mock.Anything, mock.Anything, mock.Anything, suite.today).
		Return(nil, apperrors.NewNotFoundError("exchange rate not found"))

	_, err := suite.service.ConvertCurrency(suite.ctx, dec("10"), "GBP", "JPY", suite.today)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.ErrorContains(err, "GBP to JPY")
}

func (suite *ExchangeRateServiceTestSuite) TestConvert_DirectStoreFailureDoesNotTryReverse() {
	suite.mockRateRepo.On("FindRate", mock.Anything, "USD", "EUR", suite.today).
		Return(nil, errors.New("pool closed")).Once()

	_, err := suite.service.ConvertCurrency(suite.ctx, dec("10"), "USD", "EUR", suite.today)
	suite.ErrorIs(err, apperrors.ErrUnavailable)
	suite.mockRateRepo.AssertNotCalled(suite.T(), "FindRate", mock.Anything, "EUR", "USD", mock.Anything)
}

func (suite *ExchangeRateServiceTestSuite) TestConvert_UnsupportedCode() {
	_, err := suite.service.ConvertCurrency(suite.ctx, dec("10"), "USD", "XAU", suite.today)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

// --- FetchAndStoreDailyRates ---

func (suite *ExchangeRateServiceTestSuite) TestFetchAndStore_StoresValidRates() {
	suite.cache.SetLatestSnapshot(suite.ctx, "USD", domain.RateSnapshot{
		"EUR": *suite.storedRate("USD", "EUR", "0.80", suite.today.AddDate(0, 0, -1)),
	}, 0)

	suite.mockFetcher.On("Fetch", mock.Anything, "USD").Return(ports.FetchResult{
		Provider: "open-exchangerate",
		Rates: map[string]decimal.Decimal{
			"USD": dec("1"),
			"EUR": dec("0.85"),
			"GBP": dec("0.79"),
			"JPY": dec("0"),
		},
	}, nil).Once()
	suite.mockRateRepo.On("UpsertRate", mock.Anything, "USD", "EUR", suite.today, dec("0.85")).
		Return(suite.storedRate("USD", "EUR", "0.85", suite.today), nil).Once()
	suite.mockRateRepo.On("UpsertRate", mock.Anything, "USD", "GBP", suite.today, dec("0.79")).
		Return(suite.storedRate("USD", "GBP", "0.79", suite.today), nil).Once()
	suite.mockPublisher.On("PublishRatesRefreshed", mock.Anything, mock.MatchedBy(func(e domain.RatesRefreshedEvent) bool {
		return e.BaseCurrency == "USD" && e.Date == "2024-03-15" && e.Stored == 2 && e.Rejected == 1 && e.Provider == "open-exchangerate"
	})).Return(nil).Once()

	ok, err := suite.service.FetchAndStoreDailyRates(suite.ctx, "USD")
	suite.Require().NoError(err)
	suite.True(ok)

	suite.True(suite.transport.has("rate:USD:EUR:2024-03-15"))
	suite.True(suite.transport.has("rate:USD:GBP:2024-03-15"))
	suite.False(suite.transport.has("latest:USD"), "stale snapshot must be dropped")

	suite.mockRateRepo.AssertExpectations(suite.T())
	suite.mockRateRepo.AssertNotCalled(suite.T(), "UpsertRate", mock.Anything, "USD", "USD", mock.Anything, mock.Anything)
	suite.mockRateRepo.AssertNotCalled(suite.T(), "UpsertRate", mock.Anything, "USD", "JPY", mock.Anything, mock.Anything)
	suite.mockPublisher.AssertExpectations(suite.T())
}

func (suite *ExchangeRateServiceTestSuite) TestFetchAndStore_AllProvidersFailed() {
	suite.mockFetcher.On("Fetch", mock.Anything, "USD").
		Return(ports.FetchResult{}, apperrors.ErrAllProvidersFailed).Once()

	ok, err := suite.service.FetchAndStoreDailyRates(suite.ctx, "USD")
	suite.False(ok)
	suite.ErrorIs(err, apperrors.ErrAllProvidersFailed)
	suite.mockRateRepo.AssertNotCalled(suite.T(), "UpsertRate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockPublisher.AssertNotCalled(suite.T(), "PublishRatesRefreshed", mock.Anything, mock.Anything)
}

func (suite *ExchangeRateServiceTestSuite) TestFetchAndStore_NothingPlausible() {
	suite.mockFetcher.On("Fetch", mock.Anything, "USD").Return(ports.FetchResult{
		Provider: "fixer",
		Rates:    map[string]decimal.Decimal{"EUR": dec("-1"), "JPY": dec("25000")},
	}, nil).Once()

	ok, err := suite.service.FetchAndStoreDailyRates(suite.ctx, "USD")
	suite.NoError(err)
	suite.False(ok)
	suite.mockPublisher.AssertNotCalled(suite.T(), "PublishRatesRefreshed", mock.Anything, mock.Anything)
}

func (suite *ExchangeRateServiceTestSuite) TestFetchAndStore_EveryUpsertFails() {
	suite.mockFetcher.On("Fetch", mock.Anything, "USD").Return(ports.FetchResult{
		Provider: "fixer",
		Rates:    map[string]decimal.Decimal{"EUR": dec("0.85")},
	}, nil).Once()
	suite.mockRateRepo.On("UpsertRate", mock.Anything, "USD", "EUR", suite.today, dec("0.85")).
		Return(nil, errors.New("deadlock detected")).Once()

	ok, err := suite.service.FetchAndStoreDailyRates(suite.ctx, "USD")
	suite.False(ok)
	suite.ErrorIs(err, apperrors.ErrUnavailable)
}

func (suite *ExchangeRateServiceTestSuite) TestFetchAndStore_PublishFailureIsNotFatal() {
	suite.mockFetcher.On("Fetch", mock.Anything, "USD").Return(ports.FetchResult{
		Provider: "fixer",
		Rates:    map[string]decimal.Decimal{"EUR": dec("0.85")},
	}, nil).Once()
	suite.mockRateRepo.On("UpsertRate", mock.Anything, "USD", "EUR", suite.today, dec("0.85")).
		Return(suite.storedRate("USD", "EUR", "0.85", suite.today), nil).Once()
	suite.mockPublisher.On("PublishRatesRefreshed", mock.Anything, mock.Anything).
		Return(errors.New("broker down")).Once()

	ok, err := suite.service.FetchAndStoreDailyRates(suite.ctx, "USD")
	suite.NoError(err)
	suite.True(ok)
}

// Today follows the configured zone, not UTC.
func TestExchangeRateService_TodayInLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	repo := new(MockExchangeRateRepository)
	cache := services.NewRateCacheService(nil)
	svc := services.NewExchangeRateService(repo, cache, new(MockRateFetcher), domain.MustCurrencySet("USD", "JPY"), "USD",
		services.WithLocation(loc),
		services.WithClock(func() time.Time { return time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC) }),
		services.WithRateLogger(quietLogger()),
	)

	tokyoDate := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
	repo.On("FindRate", mock.Anything, "USD", "JPY", tokyoDate).
		Return(&domain.ExchangeRate{BaseCurrency: "USD", TargetCurrency: "JPY", Rate: dec("150"), Date: tokyoDate}, nil).Once()

	rate, err := svc.GetRate(context.Background(), "USD", "JPY", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, tokyoDate, rate.Date)
	repo.AssertExpectations(t)
}
