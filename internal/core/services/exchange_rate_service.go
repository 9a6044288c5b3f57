package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/apperrors"
	"github.com/SscSPs/fx_rates_service/internal/core/domain"
	"github.com/SscSPs/fx_rates_service/internal/core/ports"
	portsrepo "github.com/SscSPs/fx_rates_service/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fx_rates_service/internal/core/ports/services"
	"github.com/SscSPs/fx_rates_service/internal/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	// ReverseRatePrecision is the number of fractional digits kept when a
	// reverse rate is inverted.
	ReverseRatePrecision int32 = 16

	defaultUpsertConcurrency = 8
)

// ExchangeRateService resolves rates cache-first, converts amounts and runs
// the daily fetch-and-store cycle.
type ExchangeRateService struct {
	BaseService
	rateRepo     portsrepo.ExchangeRateRepositoryFacade
	cache        portssvc.RateCacheSvc
	fetcher      ports.RateFetcher
	publisher    ports.RateEventPublisher
	supported    domain.CurrencySet
	baseCurrency string

	location          *time.Location
	now               func() time.Time
	cacheTTL          time.Duration
	upsertConcurrency int
	metrics           *metrics.RateMetrics
}

// ExchangeRateServiceOption is a function that configures an ExchangeRateService
type ExchangeRateServiceOption func(*ExchangeRateService)

// WithLocation sets the time zone whose calendar date is "today".
func WithLocation(loc *time.Location) ExchangeRateServiceOption {
	return func(s *ExchangeRateService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) ExchangeRateServiceOption {
	return func(s *ExchangeRateService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRateCacheTTL sets the TTL of cache writes. Zero leaves the cache default.
func WithRateCacheTTL(ttl time.Duration) ExchangeRateServiceOption {
	return func(s *ExchangeRateService) {
		s.cacheTTL = ttl
	}
}

// WithUpsertConcurrency bounds parallel upserts during a daily fetch.
func WithUpsertConcurrency(n int) ExchangeRateServiceOption {
	return func(s *ExchangeRateService) {
		if n > 0 {
			s.upsertConcurrency = n
		}
	}
}

// WithEventPublisher announces successful daily fetches.
func WithEventPublisher(p ports.RateEventPublisher) ExchangeRateServiceOption {
	return func(s *ExchangeRateService) {
		s.publisher = p
	}
}

// WithRateMetrics records stored and rejected rates.
func WithRateMetrics(m *metrics.RateMetrics) ExchangeRateServiceOption {
	return func(s *ExchangeRateService) {
		s.metrics = m
	}
}

// WithRateLogger sets the logger used outside request scope.
func WithRateLogger(logger *slog.Logger) ExchangeRateServiceOption {
	return func(s *ExchangeRateService) {
		s.Logger = logger
	}
}

// NewExchangeRateService creates a new ExchangeRateService.
func NewExchangeRateService(
	rateRepo portsrepo.ExchangeRateRepositoryFacade,
	cache portssvc.RateCacheSvc,
	fetcher ports.RateFetcher,
	supported domain.CurrencySet,
	baseCurrency string,
	opts ...ExchangeRateServiceOption,
) *ExchangeRateService {
	s := &ExchangeRateService{
		rateRepo:          rateRepo,
		cache:             cache,
		fetcher:           fetcher,
		supported:         supported,
		baseCurrency:      domain.NormalizeCode(baseCurrency),
		location:          time.UTC,
		now:               time.Now,
		upsertConcurrency: defaultUpsertConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SupportedCurrencies lists the configured currency codes.
func (s *ExchangeRateService) SupportedCurrencies() []string {
	return s.supported.Codes()
}

// BaseCurrency is the configured default base.
func (s *ExchangeRateService) BaseCurrency() string {
	return s.baseCurrency
}

func (s *ExchangeRateService) today() time.Time {
	return domain.TodayIn(s.now(), s.location)
}

func (s *ExchangeRateService) resolveDate(date time.Time) time.Time {
	if date.IsZero() {
		return s.today()
	}
	return domain.CalendarDate(date)
}

func (s *ExchangeRateService) checkCode(code string) (string, error) {
	code = domain.NormalizeCode(code)
	if !domain.IsWellFormedCode(code) {
		return "", fmt.Errorf("%w: currency code %q must be 3 letters", apperrors.ErrValidation, code)
	}
	if !s.supported.Contains(code) {
		return "", fmt.Errorf("%w: unsupported currency %s", apperrors.ErrValidation, code)
	}
	return code, nil
}

func (s *ExchangeRateService) checkPair(base, target string) (string, string, error) {
	base, err := s.checkCode(base)
	if err != nil {
		return "", "", err
	}
	target, err = s.checkCode(target)
	if err != nil {
		return "", "", err
	}
	return base, target, nil
}

// storeErr separates absence from a store that could not answer.
func storeErr(err error, op string) error {
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, apperrors.ErrUnavailable, err)
}

// GetRate resolves a single rate: cache, then store with write-back.
func (s *ExchangeRateService) GetRate(ctx context.Context, base, target string, date time.Time) (*domain.ExchangeRate, error) {
	base, target, err := s.checkPair(base, target)
	if err != nil {
		return nil, err
	}
	date = s.resolveDate(date)
	return s.getRate(ctx, base, target, date)
}

func (s *ExchangeRateService) getRate(ctx context.Context, base, target string, date time.Time) (*domain.ExchangeRate, error) {
	if rate, ok := s.cache.GetRate(ctx, base, target, date); ok {
		s.LogDebug(ctx, "Rate served from cache",
			slog.String("base", base), slog.String("target", target), slog.String("date", domain.FormatDate(date)))
		return &domain.ExchangeRate{
			BaseCurrency:   base,
			TargetCurrency: target,
			Rate:           rate,
			Date:           date,
		}, nil
	}

	rate, err := s.rateRepo.FindRate(ctx, base, target, date)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Rate store lookup failed",
				slog.String("base", base), slog.String("target", target), slog.String("date", domain.FormatDate(date)))
		}
		return nil, storeErr(err, fmt.Sprintf("rate %s/%s on %s", base, target, domain.FormatDate(date)))
	}

	if !s.cache.SetRate(ctx, base, target, date, rate.Rate, s.cacheTTL) {
		s.LogDebug(ctx, "Rate write-back to cache skipped", slog.String("base", base), slog.String("target", target))
	}
	return rate, nil
}

// GetLatestRates returns the rates of the most recent stored date for base.
func (s *ExchangeRateService) GetLatestRates(ctx context.Context, base string) (domain.RateSnapshot, error) {
	base, err := s.checkCode(base)
	if err != nil {
		return nil, err
	}

	if snapshot, ok := s.cache.GetLatestSnapshot(ctx, base); ok {
		return snapshot, nil
	}

	latest, err := s.rateRepo.FindLatestDateWithRates(ctx, base)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogDebug(ctx, "No rates stored yet", slog.String("base", base))
			return domain.RateSnapshot{}, nil
		}
		s.LogError(ctx, err, "Failed to resolve latest rate date", slog.String("base", base))
		return nil, storeErr(err, "latest rate date for "+base)
	}

	rates, err := s.rateRepo.FindRatesForDate(ctx, base, latest)
	if err != nil {
		s.LogError(ctx, err, "Failed to load rates for date", slog.String("base", base), slog.String("date", domain.FormatDate(latest)))
		return nil, storeErr(err, "rates for "+base)
	}

	snapshot := make(domain.RateSnapshot, len(rates))
	for _, r := range rates {
		snapshot[r.TargetCurrency] = r
	}
	if len(snapshot) > 0 {
		s.cache.SetLatestSnapshot(ctx, base, snapshot, s.cacheTTL)
	}
	return snapshot, nil
}

// GetRatesForDate resolves every supported target for base on date. Targets
// without a rate are left out.
func (s *ExchangeRateService) GetRatesForDate(ctx context.Context, base string, date time.Time) (domain.RateSnapshot, error) {
	base, err := s.checkCode(base)
	if err != nil {
		return nil, err
	}
	date = s.resolveDate(date)

	snapshot := make(domain.RateSnapshot)
	for _, target := range s.supported.Codes() {
		if target == base {
			continue
		}
		rate, err := s.getRate(ctx, base, target, date)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		snapshot[target] = *rate
	}
	return snapshot, nil
}

// ConvertCurrency converts amount from one currency to another using a direct
// rate, or the inverse of the reverse pair. No third currency is consulted.
func (s *ExchangeRateService) ConvertCurrency(ctx context.Context, amount decimal.Decimal, from, to string, date time.Time) (*domain.ConversionResult, error) {
	from, to = domain.NormalizeCode(from), domain.NormalizeCode(to)
	date = s.resolveDate(date)

	if from == to {
		return &domain.ConversionResult{
			OriginalAmount:   amount,
			OriginalCurrency: from,
			ConvertedAmount:  amount,
			TargetCurrency:   to,
			RateUsed:         decimal.NewFromInt(1),
			RateDate:         date,
		}, nil
	}

	from, to, err := s.checkPair(from, to)
	if err != nil {
		return nil, err
	}

	direct, err := s.getRate(ctx, from, to, date)
	if err == nil {
		return &domain.ConversionResult{
			OriginalAmount:   amount,
			OriginalCurrency: from,
			ConvertedAmount:  amount.Mul(direct.Rate),
			TargetCurrency:   to,
			RateUsed:         direct.Rate,
			RateDate:         direct.Date,
		}, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	reverse, err := s.getRate(ctx, to, from, date)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: no rate available for %s to %s on %s", apperrors.ErrNotFound, from, to, domain.FormatDate(date))
		}
		return nil, err
	}

	rateUsed := decimal.NewFromInt(1).DivRound(reverse.Rate, ReverseRatePrecision)
	s.LogDebug(ctx, "Converted using reverse rate",
		slog.String("from", from), slog.String("to", to), slog.String("rate_date", domain.FormatDate(reverse.Date)))
	return &domain.ConversionResult{
		OriginalAmount:   amount,
		OriginalCurrency: from,
		ConvertedAmount:  amount.Mul(rateUsed),
		TargetCurrency:   to,
		RateUsed:         rateUsed,
		RateDate:         reverse.Date,
		Reversed:         true,
	}, nil
}

// FetchAndStoreDailyRates fetches today's rates for base and persists each
// valid one. It returns true iff at least one rate was stored. A total
// provider failure returns false with an ErrAllProvidersFailed error and
// leaves the store untouched.
func (s *ExchangeRateService) FetchAndStoreDailyRates(ctx context.Context, base string) (bool, error) {
	base, err := s.checkCode(base)
	if err != nil {
		return false, err
	}

	result, err := s.fetcher.Fetch(ctx, base)
	if err != nil {
		s.LogError(ctx, err, "Daily rate fetch failed", slog.String("base", base))
		return false, err
	}

	today := s.today()
	var stored, rejected, failed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(s.upsertConcurrency)
	for target, rate := range result.Rates {
		if target == base {
			continue
		}
		if !domain.ValidateRate(base, target, rate) {
			s.LogWarn(ctx, "Rejected implausible rate",
				slog.String("base", base), slog.String("target", target), slog.String("rate", rate.String()))
			s.metrics.RateRejected(base, "implausible")
			rejected.Add(1)
			continue
		}

		g.Go(func() error {
			saved, err := s.rateRepo.UpsertRate(ctx, base, target, today, rate)
			if err != nil {
				s.LogError(ctx, err, "Failed to store rate", slog.String("base", base), slog.String("target", target))
				s.metrics.RateRejected(base, "store_error")
				failed.Add(1)
				return nil
			}
			s.cache.SetRate(ctx, base, target, today, saved.Rate, s.cacheTTL)
			s.metrics.RateStored(base)
			stored.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	s.LogInfo(ctx, "Daily rates processed",
		slog.String("base", base),
		slog.String("provider", result.Provider),
		slog.String("date", domain.FormatDate(today)),
		slog.Int64("stored", stored.Load()),
		slog.Int64("rejected", rejected.Load()),
		slog.Int64("failed", failed.Load()))

	if stored.Load() == 0 {
		if failed.Load() > 0 {
			return false, fmt.Errorf("%w: no rates stored for %s, %d upserts failed", apperrors.ErrUnavailable, base, failed.Load())
		}
		return false, nil
	}

	// the warm step rebuilds the snapshot from the store
	s.cache.DeleteLatestSnapshot(ctx, base)
	s.publishRefreshed(ctx, domain.RatesRefreshedEvent{
		BaseCurrency: base,
		Date:         domain.FormatDate(today),
		Stored:       int(stored.Load()),
		Rejected:     int(rejected.Load() + failed.Load()),
		Provider:     result.Provider,
		OccurredAt:   s.now().UTC(),
	})
	return true, nil
}

func (s *ExchangeRateService) publishRefreshed(ctx context.Context, event domain.RatesRefreshedEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRatesRefreshed(ctx, event); err != nil {
		s.LogError(ctx, err, "Failed to publish rates refreshed event", slog.String("base", event.BaseCurrency))
	}
}

var _ portssvc.ExchangeRateSvcFacade = (*ExchangeRateService)(nil)
