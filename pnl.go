package fundledger

import "errors"

// Confidence qualifies a P&L figure. Zero and "unknown" are never
// conflated: a figure computed from missing data is labeled, not
// silently substituted.
type Confidence string

const (
	// ConfidenceExact means every input was available.
	ConfidenceExact Confidence = "exact"
	// ConfidencePartial means the daily figure compares against a
	// close older than the previous trading day.
	ConfidencePartial Confidence = "partial"
	// ConfidenceInsufficient means no usable input existed within the
	// lookback window; the figure is not a true zero.
	ConfidenceInsufficient Confidence = "insufficient_data"
)

// PnLRecord is the per-ticker profit-and-loss annotation of a snapshot.
type PnLRecord struct {
	Ticker     string     `json:"ticker"`
	Unrealized Money      `json:"unrealized"`
	Realized   Money      `json:"realized"`
	Daily      Money      `json:"daily"`
	Confidence Confidence `json:"confidence"`
}

// DefaultLookback is how many prior days the daily P&L walks back
// searching for a previous close.
const DefaultLookback = 5

// PnLEngine annotates reconstructed snapshots with realized,
// unrealized and daily P&L using externally supplied prices and rates.
// It holds no state and never mutates the snapshot.
type PnLEngine struct {
	Prices   PriceOracle
	FX       FxOracle
	Lookback int
}

// NewPnLEngine creates an engine with the default lookback window.
func NewPnLEngine(prices PriceOracle, fx FxOracle) *PnLEngine {
	return &PnLEngine{Prices: prices, FX: fx, Lookback: DefaultLookback}
}

// Annotate computes a PnLRecord for every position of the snapshot as
// of the given date, in ticker order. Oracle misses degrade the
// affected record's confidence instead of failing the whole
// annotation; realized P&L comes from replay and is always exact.
func (e *PnLEngine) Annotate(snap *PortfolioSnapshot, on Date) []PnLRecord {
	records := make([]PnLRecord, 0, len(snap.Positions))
	for _, ticker := range snap.Tickers() {
		records = append(records, e.annotate(snap.Positions[ticker], on))
	}
	return records
}

func (e *PnLEngine) annotate(pos Position, on Date) PnLRecord {
	rec := PnLRecord{
		Ticker:     pos.Ticker,
		Realized:   pos.Realized,
		Unrealized: M(0, pos.Currency),
		Daily:      M(0, pos.Currency),
		Confidence: ConfidenceExact,
	}

	current, err := e.price(pos.Ticker, pos.Currency, on)
	if err != nil {
		rec.Confidence = ConfidenceInsufficient
		return rec
	}

	// Unrealized: market value minus cost basis.
	rec.Unrealized = pos.MarketValue(current).Sub(pos.CostBasis)

	// Daily: close-to-close. Walk back through the lookback window for
	// the previous close; day one is exact, deeper is partial.
	prev, daysBack, err := e.previousClose(pos.Ticker, pos.Currency, on)
	if err != nil {
		rec.Confidence = ConfidenceInsufficient
		return rec
	}
	rec.Daily = pos.MarketValue(current).Sub(pos.MarketValue(prev))
	if daysBack > 1 {
		rec.Confidence = ConfidencePartial
	}
	return rec
}

// price fetches the price for a ticker and converts it into the
// position currency when the oracle quotes in another one.
func (e *PnLEngine) price(ticker, currency string, on Date) (Money, error) {
	quote, err := e.Prices.Price(ticker, on)
	if err != nil {
		return Money{}, &StaleDataError{What: ticker, On: on, Err: err}
	}
	if quote.Price.Currency() == currency || currency == "" {
		return quote.Price, nil
	}
	if e.FX == nil {
		return Money{}, &StaleDataError{What: ticker, On: on, Err: errors.New("no fx oracle configured")}
	}
	return Convert(quote.Price, currency, on, e.FX)
}

// previousClose finds the most recent close strictly before on, within
// the lookback window. It returns how many days back it had to walk.
func (e *PnLEngine) previousClose(ticker, currency string, on Date) (Money, int, error) {
	lookback := e.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	var lastErr error
	for days := 1; days <= lookback; days++ {
		price, err := e.price(ticker, currency, on.Add(-days))
		if err != nil {
			lastErr = err
			continue
		}
		return price, days, nil
	}
	if lastErr == nil {
		lastErr = &StaleDataError{What: ticker, On: on, Err: ErrUnavailable}
	}
	return Money{}, 0, lastErr
}
