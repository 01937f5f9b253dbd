package fundledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned by oracles that have no data for the
// requested point in time.
var ErrUnavailable = errors.New("unavailable")

// StaleDataError reports an oracle that could not serve a price or
// rate. It never corrupts an in-progress replay: callers degrade the
// affected result instead of failing the rebuild.
type StaleDataError struct {
	What string
	On   Date
	Err  error
}

func (e *StaleDataError) Error() string {
	return fmt.Sprintf("stale data for %s as of %s: %v", e.What, e.On, e.Err)
}

func (e *StaleDataError) Unwrap() error { return e.Err }

// PriceQuote is a price observation returned by a price oracle.
// Effective may be earlier than the requested date when the oracle
// serves the last known close.
type PriceQuote struct {
	Price     Money
	Effective Date
}

// PriceOracle supplies security prices. It is an external
// collaborator: implementations may block on the network but must not
// touch ledger or lot state.
type PriceOracle interface {
	Price(ticker string, on Date) (PriceQuote, error)
}

// FxOracle supplies point-in-time currency exchange rates.
type FxOracle interface {
	Rate(from, to string, on Date) (decimal.Decimal, error)
}

// Convert converts an amount into another currency using the oracle
// rate for the given date, rounding to the target minor unit. The
// conversion boundary is explicit: amounts are never converted
// implicitly inside a comparison or aggregation.
func Convert(amount Money, to string, on Date, fx FxOracle) (Money, error) {
	from := amount.Currency()
	if from == to {
		return amount, nil
	}
	if err := ValidateCurrency(to); err != nil {
		return Money{}, err
	}
	rate, err := fx.Rate(from, to, on)
	if err != nil {
		return Money{}, &StaleDataError{What: from + "/" + to, On: on, Err: err}
	}
	return M(amount.Amount().Mul(rate), to).Round(), nil
}
