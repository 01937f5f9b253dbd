package fundledger

import (
	"errors"
	"fmt"
	"time"
)

// ErrOutOfOrder reports a trade that is not ordered after every trade
// already folded into a snapshot. The incremental fast path is invalid
// for such a trade; a full rebuild is mandatory.
var ErrOutOfOrder = errors.New("trade predates snapshot state, full rebuild required")

// Reconstructor replays the trade ledger through fresh lot trackers to
// derive portfolio snapshots. It is a pure function over the ordered
// trade list: no wall clock, no map-order dependence, no shared state
// across funds. Rebuilding two funds concurrently is safe.
type Reconstructor struct {
	ledger *TradeLedger
	policy OversellPolicy
}

// NewReconstructor creates a reconstructor over a ledger with the
// default oversell policy.
func NewReconstructor(ledger *TradeLedger) *Reconstructor {
	return &Reconstructor{ledger: ledger, policy: OversellReject}
}

// NewReconstructorWithPolicy creates a reconstructor with an explicit
// oversell policy.
func NewReconstructorWithPolicy(ledger *TradeLedger, policy OversellPolicy) *Reconstructor {
	return &Reconstructor{ledger: ledger, policy: policy}
}

// Ledger returns the underlying trade ledger.
func (r *Reconstructor) Ledger() *TradeLedger { return r.ledger }

// Rebuild replays the entire ordered trade list for the fund from an
// empty state and returns the derived snapshot. Given the same trade
// list it produces an identical snapshot on every invocation.
func (r *Reconstructor) Rebuild(fund string) (*PortfolioSnapshot, error) {
	return r.replay(fund, r.ledger.Trades(fund, TradeFilter{}))
}

// RebuildAt replays only the trades at or before asOf.
func (r *Reconstructor) RebuildAt(fund string, asOf time.Time) (*PortfolioSnapshot, error) {
	var trades []Trade
	for _, t := range r.ledger.Trades(fund, TradeFilter{}) {
		if !t.Time.After(asOf) {
			trades = append(trades, t)
		}
	}
	return r.replay(fund, trades)
}

// replay folds an ordered trade list into a fresh snapshot.
func (r *Reconstructor) replay(fund string, trades []Trade) (*PortfolioSnapshot, error) {
	trackers := make(map[string]*LotTracker)
	snap := newPortfolioSnapshot(fund)

	for _, t := range trades {
		tracker, ok := trackers[t.Ticker]
		if !ok {
			tracker = NewLotTrackerWithPolicy(fund, t.Ticker, r.policy)
			trackers[t.Ticker] = tracker
		}
		if err := fold(snap, tracker, t); err != nil {
			return nil, err
		}
	}

	for ticker, tracker := range trackers {
		snap.Positions[ticker] = makePosition(ticker, tracker)
	}
	return snap, nil
}

// ApplyTrade is the incremental fast path: it folds one more trade
// into an already-correct snapshot without replaying the ledger. It is
// valid only when the trade is ordered after every trade in the
// snapshot; anything else returns ErrOutOfOrder. The input snapshot is
// never mutated.
func (r *Reconstructor) ApplyTrade(snap *PortfolioSnapshot, t Trade) (*PortfolioSnapshot, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.Fund != snap.Fund {
		return nil, &ValidationError{Reason: fmt.Sprintf("trade fund %q does not match snapshot fund %q", t.Fund, snap.Fund)}
	}
	if t.Time.Before(snap.AsOf) || (t.Time.Equal(snap.AsOf) && t.Sequence <= snap.LastSequence) {
		return nil, ErrOutOfOrder
	}

	next := snap.clone()
	var tracker *LotTracker
	if p, ok := next.Positions[t.Ticker]; ok {
		tracker = restoreLotTracker(snap.Fund, t.Ticker, p.Lots, p.Realized, r.policy)
	} else {
		tracker = NewLotTrackerWithPolicy(snap.Fund, t.Ticker, r.policy)
	}
	if err := fold(next, tracker, t); err != nil {
		return nil, err
	}
	next.Positions[t.Ticker] = makePosition(t.Ticker, tracker)
	return next, nil
}

// fold applies one trade to the tracker and the snapshot's cash and
// clock. It never partially mutates: a failed SELL leaves everything
// untouched.
func fold(snap *PortfolioSnapshot, tracker *LotTracker, t Trade) error {
	currency := t.Currency()
	if held := positionCurrency(tracker); held != "" && held != currency {
		return &ValidationError{Reason: fmt.Sprintf("trade currency %s does not match position currency %s for %s",
			currency, held, t.Ticker)}
	}

	switch t.Action {
	case ActionBuy:
		tracker.Buy(t.Date(), t.Shares, t.Price)
		snap.Cash[currency] = cash(snap, currency).Sub(t.Cost())
	case ActionSell:
		if _, err := tracker.Sell(t.Date(), t.Shares, t.Price); err != nil {
			return err
		}
		snap.Cash[currency] = cash(snap, currency).Add(t.Cost())
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown action %q", t.Action)}
	}

	snap.AsOf = t.Time
	snap.LastSequence = t.Sequence
	return nil
}

func cash(snap *PortfolioSnapshot, currency string) Money {
	if m, ok := snap.Cash[currency]; ok {
		return m
	}
	return M(0, currency)
}

// positionCurrency returns the currency the tracker already trades in,
// or "" for a tracker with no history.
func positionCurrency(tracker *LotTracker) string {
	if lots := tracker.Lots(); len(lots) > 0 {
		return lots[0].UnitCost.Currency()
	}
	return tracker.Realized().Currency()
}

// makePosition derives the position aggregate from tracker state.
func makePosition(ticker string, tracker *LotTracker) Position {
	currency := positionCurrency(tracker)
	shares := tracker.Shares()
	basis := M(0, currency).Add(tracker.CostBasis())
	avg := M(0, currency)
	if !shares.IsZero() {
		avg = basis.Div(shares)
	}
	return Position{
		Ticker:    ticker,
		Shares:    shares,
		AvgPrice:  avg,
		CostBasis: basis,
		Currency:  currency,
		Lots:      tracker.Lots(),
		Realized:  M(0, currency).Add(tracker.Realized()),
	}
}
