package fundledger

import (
	"fmt"
	"time"
)

// Action is the direction of a trade.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// ParseAction parses a trade action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionBuy:
		return ActionBuy, nil
	case ActionSell:
		return ActionSell, nil
	default:
		return "", &ValidationError{Reason: fmt.Sprintf("unknown action %q", s)}
	}
}

// ValidationError reports a malformed trade rejected at the ingestion
// boundary. A trade that fails validation never enters the ledger.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid trade: " + e.Reason }

// Trade is a single immutable trade record. Trades are never mutated
// or deleted, only appended to the ledger.
type Trade struct {
	Fund     string
	Ticker   string
	Action   Action
	Shares   Quantity
	Price    Money // unit price, carries the trade currency
	Time     time.Time
	Sequence int64 // breaks ties when timestamps collide
}

// NewBuy creates a BUY trade.
func NewBuy(fund, ticker string, shares Quantity, price Money, at time.Time, seq int64) Trade {
	return Trade{Fund: fund, Ticker: ticker, Action: ActionBuy, Shares: shares, Price: price, Time: at, Sequence: seq}
}

// NewSell creates a SELL trade.
func NewSell(fund, ticker string, shares Quantity, price Money, at time.Time, seq int64) Trade {
	return Trade{Fund: fund, Ticker: ticker, Action: ActionSell, Shares: shares, Price: price, Time: at, Sequence: seq}
}

// Currency returns the trade currency, carried by the unit price.
func (t Trade) Currency() string { return t.Price.Currency() }

// Cost returns the total value of the trade: shares times unit price.
func (t Trade) Cost() Money { return t.Price.Mul(t.Shares) }

// Date returns the trading day of the trade.
func (t Trade) Date() Date { return DateOf(t.Time) }

// Validate checks the trade for correctness at the ingestion boundary.
func (t Trade) Validate() error {
	if t.Fund == "" {
		return &ValidationError{Reason: "fund is missing"}
	}
	if t.Ticker == "" {
		return &ValidationError{Reason: "ticker is missing"}
	}
	if t.Action != ActionBuy && t.Action != ActionSell {
		return &ValidationError{Reason: fmt.Sprintf("unknown action %q", t.Action)}
	}
	if !t.Shares.IsPositive() {
		return &ValidationError{Reason: fmt.Sprintf("non-positive shares %s", t.Shares)}
	}
	if !t.Price.IsPositive() {
		return &ValidationError{Reason: fmt.Sprintf("non-positive price %s", t.Price.Amount())}
	}
	if err := ValidateCurrency(t.Currency()); err != nil {
		return err
	}
	if t.Time.IsZero() {
		return &ValidationError{Reason: "timestamp is missing"}
	}
	return nil
}

// before reports whether t is strictly ordered before o in the ledger's
// (timestamp, sequence) total order.
func (t Trade) before(o Trade) bool {
	if !t.Time.Equal(o.Time) {
		return t.Time.Before(o.Time)
	}
	return t.Sequence < o.Sequence
}

// tradeKey uniquely identifies a trade in the ledger.
type tradeKey struct {
	fund   string
	ticker string
	nanos  int64
	seq    int64
}

func (t Trade) key() tradeKey {
	return tradeKey{fund: t.Fund, ticker: t.Ticker, nanos: t.Time.UnixNano(), seq: t.Sequence}
}
