// Package history reads daily bars from an externally managed SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/domain"
)

// HistoryDB provides read access to the daily_prices table:
//
//	symbol TEXT, date INTEGER (unix seconds, UTC midnight), open, high, low, close REAL,
//	volume REAL, bid REAL NULL, ask REAL NULL
//
// Schema and ingestion are owned by the market-data layer.
type HistoryDB struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(db *sql.DB, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

// Schema is the daily_prices layout this reader expects. The service only applies
// it to bootstrap an empty database in dev mode.
const Schema = `
CREATE TABLE IF NOT EXISTS daily_prices (
	symbol TEXT NOT NULL,
	date INTEGER NOT NULL,
	open REAL, high REAL, low REAL, close REAL,
	volume REAL,
	bid REAL, ask REAL,
	PRIMARY KEY (symbol, date)
)`

const barColumns = `date, open, high, low, close, volume, bid, ask`

func scanBars(rows *sql.Rows) ([]domain.Bar, error) {
	var bars []domain.Bar
	for rows.Next() {
		var (
			b        domain.Bar
			dateUnix int64
			volume   sql.NullFloat64
			bid, ask sql.NullFloat64
		)
		if err := rows.Scan(&dateUnix, &b.Open, &b.High, &b.Low, &b.Close, &volume, &bid, &ask); err != nil {
			return nil, fmt.Errorf("failed to scan daily bar: %w", err)
		}
		b.Date = time.Unix(dateUnix, 0).UTC()
		if volume.Valid {
			b.Volume = volume.Float64
		}
		if bid.Valid {
			v := bid.Float64
			b.Bid = &v
		}
		if ask.Valid {
			v := ask.Float64
			b.Ask = &v
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily bars: %w", err)
	}
	return bars, nil
}

// GetDailyBars returns the most recent limit bars of symbol in ascending date order.
func (h *HistoryDB) GetDailyBars(ctx context.Context, symbol string, limit int) (domain.PriceSeries, error) {
	query := `SELECT ` + barColumns + `
		FROM daily_prices
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT ?`

	rows, err := h.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("failed to query daily bars: %w", err)
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return domain.PriceSeries{Symbol: symbol, Bars: bars}, nil
}

// LoadSeries returns the bars of every symbol dated on or after since, ascending.
// Symbols without rows come back with no bars.
func (h *HistoryDB) LoadSeries(ctx context.Context, symbols []string, since time.Time) ([]domain.PriceSeries, error) {
	out := make([]domain.PriceSeries, 0, len(symbols))
	query := `SELECT ` + barColumns + `
		FROM daily_prices
		WHERE symbol = ? AND date >= ?
		ORDER BY date ASC`

	for _, symbol := range symbols {
		rows, err := h.db.QueryContext(ctx, query, symbol, since.Unix())
		if err != nil {
			return nil, fmt.Errorf("failed to query series for %s: %w", symbol, err)
		}
		bars, err := scanBars(rows)
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("series for %s: %w", symbol, err)
		}
		out = append(out, domain.PriceSeries{Symbol: symbol, Bars: bars})
	}

	h.log.Debug().Int("symbols", len(symbols)).Time("since", since).Msg("Loaded series")
	return out, nil
}

// LatestPrices returns the most recent close of each symbol that has one.
func (h *HistoryDB) LatestPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(symbols))
	if len(symbols) == 0 {
		return prices, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(symbols)), ",")
	query := `
		SELECT p.symbol, p.close
		FROM daily_prices p
		JOIN (
			SELECT symbol, MAX(date) AS date
			FROM daily_prices
			WHERE symbol IN (` + placeholders + `)
			GROUP BY symbol
		) latest ON latest.symbol = p.symbol AND latest.date = p.date`

	args := make([]interface{}, len(symbols))
	for i, s := range symbols {
		args[i] = s
	}
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var symbol string
		var price float64
		if err := rows.Scan(&symbol, &price); err != nil {
			return nil, fmt.Errorf("failed to scan latest price: %w", err)
		}
		prices[symbol] = price
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating latest prices: %w", err)
	}
	return prices, nil
}
