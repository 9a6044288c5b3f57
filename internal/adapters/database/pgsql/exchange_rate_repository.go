package pgsql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/apperrors"
	"github.com/SscSPs/fx_rates_service/internal/core/domain"
	portsrepo "github.com/SscSPs/fx_rates_service/internal/core/ports/repositories"
	"github.com/SscSPs/fx_rates_service/internal/models"
	"github.com/SscSPs/fx_rates_service/internal/utils/mapping"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const exchangeRateColumns = `exchange_rate_id, base_currency, target_currency, rate, rate_date, recorded_at`

// PgxExchangeRateRepository implements the repositories.ExchangeRateRepositoryWithHealth interface using pgxpool.
type PgxExchangeRateRepository struct {
	BaseRepository
}

// NewPgxExchangeRateRepository creates a new PgxExchangeRateRepository.
func NewPgxExchangeRateRepository(db *pgxpool.Pool) *PgxExchangeRateRepository {
	return &PgxExchangeRateRepository{
		BaseRepository: BaseRepository{Pool: db},
	}
}

func scanExchangeRate(row pgx.Row) (models.ExchangeRate, error) {
	var m models.ExchangeRate
	err := row.Scan(&m.ExchangeRateID, &m.BaseCurrency, &m.TargetCurrency, &m.Rate, &m.RateDate, &m.RecordedAt)
	return m, err
}

// UpsertRate inserts the rate or overwrites the one already stored for the
// same (base, target, date). Concurrent writers resolve on the unique
// constraint; the last write wins.
func (r *PgxExchangeRateRepository) UpsertRate(ctx context.Context, base, target string, date time.Time, rate decimal.Decimal) (*domain.ExchangeRate, error) {
	base, target = domain.NormalizeCode(base), domain.NormalizeCode(target)
	if base == target {
		return nil, apperrors.NewValidationError("base and target currencies cannot be the same")
	}

	query := `
		INSERT INTO exchange_rates (` + exchangeRateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (base_currency, target_currency, rate_date)
		DO UPDATE SET rate = EXCLUDED.rate, recorded_at = EXCLUDED.recorded_at
		RETURNING ` + exchangeRateColumns

	m, err := scanExchangeRate(r.Pool.QueryRow(ctx, query,
		uuid.NewString(), base, target, rate, domain.CalendarDate(date), time.Now().UTC(),
	))
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to upsert exchange rate", err)
	}

	d := mapping.ToDomainExchangeRate(m)
	return &d, nil
}

// FindRate retrieves the rate stored for the exact (base, target, date) key.
func (r *PgxExchangeRateRepository) FindRate(ctx context.Context, base, target string, date time.Time) (*domain.ExchangeRate, error) {
	base, target = domain.NormalizeCode(base), domain.NormalizeCode(target)
	query := `
		SELECT ` + exchangeRateColumns + `
		FROM exchange_rates
		WHERE base_currency = $1 AND target_currency = $2 AND rate_date = $3;
	`

	m, err := scanExchangeRate(r.Pool.QueryRow(ctx, query, base, target, domain.CalendarDate(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("exchange rate %s/%s on %s not found", base, target, domain.FormatDate(date)))
		}
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to find exchange rate", err)
	}

	d := mapping.ToDomainExchangeRate(m)
	return &d, nil
}

// FindLatestDateWithRates returns the most recent rate_date stored for base.
func (r *PgxExchangeRateRepository) FindLatestDateWithRates(ctx context.Context, base string) (time.Time, error) {
	base = domain.NormalizeCode(base)
	query := `
		SELECT rate_date
		FROM exchange_rates
		WHERE base_currency = $1
		ORDER BY rate_date DESC
		LIMIT 1;
	`

	var latest time.Time
	if err := r.Pool.QueryRow(ctx, query, base).Scan(&latest); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, apperrors.NewNotFoundError("no exchange rates stored for " + base)
		}
		return time.Time{}, apperrors.NewAppError(http.StatusInternalServerError, "failed to find latest rate date", err)
	}
	return domain.CalendarDate(latest), nil
}

// FindRatesForDate returns every rate stored for base on date.
func (r *PgxExchangeRateRepository) FindRatesForDate(ctx context.Context, base string, date time.Time) ([]domain.ExchangeRate, error) {
	base = domain.NormalizeCode(base)
	query := `
		SELECT ` + exchangeRateColumns + `
		FROM exchange_rates
		WHERE base_currency = $1 AND rate_date = $2
		ORDER BY target_currency;
	`

	rows, err := r.Pool.Query(ctx, query, base, domain.CalendarDate(date))
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to list exchange rates", err)
	}
	defer rows.Close()

	var modelRates []models.ExchangeRate
	for rows.Next() {
		m, err := scanExchangeRate(rows)
		if err != nil {
			return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to scan exchange rate", err)
		}
		modelRates = append(modelRates, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "error iterating exchange rates", err)
	}

	return mapping.ToDomainExchangeRates(modelRates), nil
}

var _ portsrepo.ExchangeRateRepositoryWithHealth = (*PgxExchangeRateRepository)(nil)
