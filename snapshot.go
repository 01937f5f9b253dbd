package fundledger

import (
	"sort"
	"time"
)

// Position is the aggregate state of one (fund, ticker), derived
// entirely from replay and never hand-edited.
//
// Invariant: Shares equals the sum of lot remaining shares, and
// CostBasis equals the sum of remaining shares times unit cost.
type Position struct {
	Ticker    string   `json:"ticker"`
	Shares    Quantity `json:"shares"`
	AvgPrice  Money    `json:"avgPrice"`
	CostBasis Money    `json:"costBasis"`
	Currency  string   `json:"currency"`
	Lots      []Lot    `json:"lots"`
	Realized  Money    `json:"realized"`
}

// MarketValue returns the value of the position at the given unit price.
func (p Position) MarketValue(price Money) Money { return price.Mul(p.Shares) }

// consistent reports whether the position honors its defining
// invariants. Used by tests and the reconstructor's own checks.
func (p Position) consistent() bool {
	shares := Q(0)
	basis := M(0, p.Currency)
	for _, lot := range p.Lots {
		shares = shares.Add(lot.Remaining)
		basis = basis.Add(lot.Cost())
	}
	return shares.Equal(p.Shares) && basis.Equal(p.CostBasis)
}

// PortfolioSnapshot is a point-in-time view of all positions and cash
// balances of a fund. It is fully recomputable from the trade ledger;
// any persisted copy is a cache.
type PortfolioSnapshot struct {
	Fund string `json:"fund"`
	// AsOf is the timestamp of the last trade folded in, never the
	// wall clock, so that replay stays deterministic.
	AsOf         time.Time           `json:"asOf"`
	LastSequence int64               `json:"lastSequence"`
	Positions    map[string]Position `json:"positions"`
	Cash         map[string]Money    `json:"cash"`
}

// newPortfolioSnapshot creates an empty snapshot for a fund.
func newPortfolioSnapshot(fund string) *PortfolioSnapshot {
	return &PortfolioSnapshot{
		Fund:      fund,
		Positions: make(map[string]Position),
		Cash:      make(map[string]Money),
	}
}

// Position returns the position held for a ticker.
func (s *PortfolioSnapshot) Position(ticker string) (Position, bool) {
	p, ok := s.Positions[ticker]
	return p, ok
}

// Tickers returns the sorted tickers of the snapshot. Iterating in
// this order keeps every derived output deterministic.
func (s *PortfolioSnapshot) Tickers() []string {
	tickers := make([]string, 0, len(s.Positions))
	for t := range s.Positions {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// Currencies returns the sorted currencies with a cash balance.
func (s *PortfolioSnapshot) Currencies() []string {
	curs := make([]string, 0, len(s.Cash))
	for c := range s.Cash {
		curs = append(curs, c)
	}
	sort.Strings(curs)
	return curs
}

// clone returns a deep copy, so the incremental fast path never
// mutates an already-published snapshot.
func (s *PortfolioSnapshot) clone() *PortfolioSnapshot {
	c := &PortfolioSnapshot{
		Fund:         s.Fund,
		AsOf:         s.AsOf,
		LastSequence: s.LastSequence,
		Positions:    make(map[string]Position, len(s.Positions)),
		Cash:         make(map[string]Money, len(s.Cash)),
	}
	for t, p := range s.Positions {
		lots := make([]Lot, len(p.Lots))
		copy(lots, p.Lots)
		p.Lots = lots
		c.Positions[t] = p
	}
	for cu, m := range s.Cash {
		c.Cash[cu] = m
	}
	return c
}

// Equal reports whether two snapshots carry exactly the same derived
// state, compared value by value in exact decimals.
func (s *PortfolioSnapshot) Equal(o *PortfolioSnapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	return snapshotDigest(s) == snapshotDigest(o)
}
