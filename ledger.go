package fundledger

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// TradeLedger is the ordered, append-only store of immutable trades.
//
// It is the single source of truth: no other component may persist
// state that cannot be reproduced by replaying this sequence. Trades
// are kept in (timestamp, sequence) ascending order; ties are never
// reordered across calls.
type TradeLedger struct {
	mu     sync.RWMutex
	trades []Trade
	keys   map[tradeKey]struct{}
}

// NewTradeLedger creates an empty ledger.
func NewTradeLedger() *TradeLedger {
	return &TradeLedger{keys: make(map[tradeKey]struct{})}
}

// Append validates the trade and inserts it in order. A malformed
// trade or a duplicate (fund, ticker, timestamp, sequence) key is
// rejected with a ValidationError and never enters the ledger.
func (l *TradeLedger) Append(t Trade) error {
	if err := t.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k := t.key()
	if _, dup := l.keys[k]; dup {
		return &ValidationError{Reason: fmt.Sprintf("duplicate trade %s/%s at %s seq %d", t.Fund, t.Ticker, t.Time.Format(time.RFC3339), t.Sequence)}
	}
	l.keys[k] = struct{}{}
	l.trades = append(l.trades, t)
	l.stableSort()
	return nil
}

// remove deletes a trade by key. Only the accounting system uses it,
// to roll back an in-memory append whose persistence failed so the
// trade can be retried without tripping the duplicate check.
func (l *TradeLedger) remove(t Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := t.key()
	if _, ok := l.keys[k]; !ok {
		return
	}
	delete(l.keys, k)
	for i := range l.trades {
		if l.trades[i].key() == k {
			l.trades = append(l.trades[:i], l.trades[i+1:]...)
			break
		}
	}
}

// stableSort restores (timestamp, sequence) order without reordering ties.
func (l *TradeLedger) stableSort() {
	sort.SliceStable(l.trades, func(i, j int) bool {
		return l.trades[i].before(l.trades[j])
	})
}

// Len returns the number of trades in the ledger.
func (l *TradeLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trades)
}

// TradeFilter narrows a ledger listing. Zero values accept everything.
type TradeFilter struct {
	Ticker string
	Since  time.Time
}

func (f TradeFilter) accept(t Trade) bool {
	if f.Ticker != "" && t.Ticker != f.Ticker {
		return false
	}
	if !f.Since.IsZero() && t.Time.Before(f.Since) {
		return false
	}
	return true
}

// Trades returns the ordered trades of a fund matching the filter.
// The returned slice is a copy and is safe to hold.
func (l *TradeLedger) Trades(fund string, f TradeFilter) []Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Trade
	for _, t := range l.trades {
		if t.Fund == fund && f.accept(t) {
			out = append(out, t)
		}
	}
	return out
}

// Funds returns the sorted list of funds present in the ledger.
func (l *TradeLedger) Funds() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seen := make(map[string]struct{})
	var funds []string
	for _, t := range l.trades {
		if _, ok := seen[t.Fund]; !ok {
			seen[t.Fund] = struct{}{}
			funds = append(funds, t.Fund)
		}
	}
	sort.Strings(funds)
	return funds
}
