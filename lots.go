package fundledger

import "fmt"

// Lot is a discrete purchase batch, consumed oldest-first on sale.
type Lot struct {
	Opened    Date     `json:"opened"`
	Remaining Quantity `json:"remaining"`
	UnitCost  Money    `json:"unitCost"`
}

// Cost returns the cost of the remaining shares of the lot.
func (l Lot) Cost() Money { return l.UnitCost.Mul(l.Remaining) }

// OversellPolicy decides what a SELL exceeding the available shares does.
type OversellPolicy int

const (
	// OversellReject fails the sale and leaves the queue untouched.
	// This is the default.
	OversellReject OversellPolicy = iota
	// OversellAllowNegative books the shortfall as a short lot at the
	// sale price. Explicit opt-in only.
	OversellAllowNegative
)

// InsufficientSharesError reports a SELL for more shares than held
// across all open lots. The lot queue is left exactly as it was.
type InsufficientSharesError struct {
	Fund      string
	Ticker    string
	Requested Quantity
	Available Quantity
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares for %s/%s: requested %s, available %s",
		e.Fund, e.Ticker, e.Requested, e.Available)
}

// Consumption records one lot (or lot portion) consumed by a sale,
// with its realized gain: shares times (sale price minus unit cost),
// in the currency of the lot.
type Consumption struct {
	Opened   Date
	Shares   Quantity
	UnitCost Money
	Realized Money
}

// LotTracker holds the FIFO queue of open lots for one (fund, ticker).
//
// All arithmetic is exact decimal; no floating point is ever involved.
type LotTracker struct {
	fund     string
	ticker   string
	policy   OversellPolicy
	queue    []Lot
	realized Money
}

// NewLotTracker creates an empty tracker with the default reject policy.
func NewLotTracker(fund, ticker string) *LotTracker {
	return NewLotTrackerWithPolicy(fund, ticker, OversellReject)
}

// NewLotTrackerWithPolicy creates an empty tracker with an explicit
// oversell policy.
func NewLotTrackerWithPolicy(fund, ticker string, policy OversellPolicy) *LotTracker {
	return &LotTracker{fund: fund, ticker: ticker, policy: policy}
}

// restoreLotTracker rebuilds a tracker from previously derived state.
// Used by the incremental replay fast path.
func restoreLotTracker(fund, ticker string, lots []Lot, realized Money, policy OversellPolicy) *LotTracker {
	t := NewLotTrackerWithPolicy(fund, ticker, policy)
	t.queue = append(t.queue, lots...)
	t.realized = realized
	return t
}

// Buy pushes a new lot to the back of the queue.
func (t *LotTracker) Buy(on Date, shares Quantity, unitCost Money) {
	t.queue = append(t.queue, Lot{Opened: on, Remaining: shares, UnitCost: unitCost})
}

// Sell consumes shares from the front of the queue, oldest lot first.
//
// A lot larger than the remaining sale quantity is shrunk in place, not
// removed. When the requested quantity exceeds the total available and
// the policy is OversellReject, Sell fails with InsufficientSharesError
// and the queue is left exactly as it was: all or nothing.
func (t *LotTracker) Sell(on Date, shares Quantity, price Money) ([]Consumption, error) {
	if available := t.Shares(); shares.GreaterThan(available) {
		if t.policy == OversellReject {
			return nil, &InsufficientSharesError{
				Fund:      t.fund,
				Ticker:    t.ticker,
				Requested: shares,
				Available: available,
			}
		}
	}

	var consumed []Consumption
	toSell := shares
	var remaining []Lot
	for _, lot := range t.queue {
		if toSell.IsZero() {
			remaining = append(remaining, lot)
			continue
		}
		if lot.Remaining.GreaterThan(toSell) {
			// Partial sale: split the lot, keep the rest in place.
			consumed = append(consumed, Consumption{
				Opened:   lot.Opened,
				Shares:   toSell,
				UnitCost: lot.UnitCost,
				Realized: price.Sub(lot.UnitCost).Mul(toSell),
			})
			lot.Remaining = lot.Remaining.Sub(toSell)
			remaining = append(remaining, lot)
			toSell = Q(0)
		} else {
			// Full consumption of this lot.
			consumed = append(consumed, Consumption{
				Opened:   lot.Opened,
				Shares:   lot.Remaining,
				UnitCost: lot.UnitCost,
				Realized: price.Sub(lot.UnitCost).Mul(lot.Remaining),
			})
			toSell = toSell.Sub(lot.Remaining)
		}
	}
	if toSell.IsPositive() {
		// OversellAllowNegative: book the shortfall as a short lot at
		// the sale price. Realized gain for the short part is zero
		// until it is covered.
		remaining = append(remaining, Lot{Opened: on, Remaining: toSell.Neg(), UnitCost: price})
	}

	t.queue = remaining
	for _, c := range consumed {
		t.realized = t.realized.Add(c.Realized)
	}
	return consumed, nil
}

// Shares returns the total remaining shares across all open lots.
func (t *LotTracker) Shares() Quantity {
	total := Q(0)
	for _, lot := range t.queue {
		total = total.Add(lot.Remaining)
	}
	return total
}

// CostBasis returns the total cost of all remaining shares.
func (t *LotTracker) CostBasis() Money {
	var total Money
	for _, lot := range t.queue {
		total = total.Add(lot.Cost())
	}
	return total
}

// Realized returns the cumulative realized gain of all sales so far.
func (t *LotTracker) Realized() Money { return t.realized }

// Lots returns a copy of the open lot queue, oldest first.
func (t *LotTracker) Lots() []Lot {
	out := make([]Lot, len(t.queue))
	copy(out, t.queue)
	return out
}
