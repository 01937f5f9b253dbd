package fundledger

import (
	"encoding/json"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// newDecimal is a convenient factory for decimal.Decimal.
func newDecimal[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// PrecisionError reports a value that cannot be represented exactly in
// the decimal type at the required scale.
type PrecisionError struct {
	Value string
	Err   error
}

func (e *PrecisionError) Error() string {
	return fmt.Sprintf("value %q cannot be represented exactly: %v", e.Value, e.Err)
}

func (e *PrecisionError) Unwrap() error { return e.Err }

// Money represents an exact monetary value in a single currency.
//
// Arithmetic is exact; rounding to the currency minor unit happens only
// at the money boundary, through Round.
type Money struct {
	value decimal.Decimal // major unit value
	cur   string
}

// M builds a Money from any numeric value and a currency code.
func M[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T, currency string) Money {
	return Money{value: newDecimal(value), cur: currency}
}

// ParseMoney builds a Money from its exact decimal string representation.
func ParseMoney(amount, currency string) (Money, error) {
	v, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, &PrecisionError{Value: amount, Err: err}
	}
	if err := ValidateCurrency(currency); err != nil {
		return Money{}, err
	}
	return Money{value: v, cur: currency}, nil
}

// ValidateCurrency checks that the code names a known ISO currency.
func ValidateCurrency(code string) error {
	if money.GetCurrency(code) == nil {
		return &ValidationError{Reason: fmt.Sprintf("unrecognized currency %q", code)}
	}
	return nil
}

// currency returns the full currency metadata, never nil.
func (m Money) currency() money.Currency {
	return *money.New(0, m.cur).Currency()
}

// Currency returns the money's currency code.
func (m Money) Currency() string { return m.cur }

// Amount returns the exact decimal value in major units.
func (m Money) Amount() decimal.Decimal { return m.value }

func (m Money) Equal(n Money) bool              { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool                    { return m.value.IsZero() }
func (m Money) IsPositive() bool                { return m.value.IsPositive() }
func (m Money) IsNegative() bool                { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool           { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool        { return m.value.GreaterThan(n.value) }
func (m Money) GreaterThanOrEqual(n Money) bool { return m.value.GreaterThanOrEqual(n.value) }
func (m Money) Neg() Money                      { return Money{value: m.value.Neg(), cur: m.cur} }
func (m Money) Mul(q Quantity) Money            { return Money{value: m.value.Mul(q.value), cur: m.cur} }
func (m Money) Div(q Quantity) Money            { return Money{value: m.value.Div(q.value), cur: m.cur} }

// binary operators.
func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value), cur: cur(m, n)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value), cur: cur(m, n)} }

// cur makes the "" currency totally weak.
func cur(a, b Money) string {
	if a.cur == "" {
		return b.cur
	}
	if b.cur == "" {
		return a.cur
	}
	if a.cur != b.cur {
		panic("currency mismatch " + a.cur + "!=" + b.cur)
	}
	return a.cur
}

// Round rounds to the currency minor unit, ties away from zero for
// both signs: 10.255 becomes 10.26 and -10.255 becomes -10.26. This is
// the only place where a monetary value loses scale.
func (m Money) Round() Money {
	return Money{value: m.value.Round(int32(m.currency().Fraction)), cur: m.cur}
}

// String returns the formatted representation, rounded to the minor unit.
func (m Money) String() string {
	c := m.currency()
	dec := m.value.Round(int32(c.Fraction)).Shift(int32(c.Fraction))
	return c.Formatter().Format(dec.IntPart())
}

// SignedString returns the formatted value with an explicit sign, or "-" for zero.
func (m Money) SignedString() string {
	if m.value.IsZero() {
		return "-"
	}
	if m.value.IsPositive() {
		return "+" + m.String()
	}
	return m.String()
}

// moneyDoc is the persisted shape of Money: exact decimal, no rounding.
type moneyDoc struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
}

// MarshalJSON persists the exact value. Rounding is a display and
// boundary concern, never a storage one.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyDoc{Amount: m.value, Currency: m.cur})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (m *Money) UnmarshalJSON(data []byte) error {
	var doc moneyDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return &PrecisionError{Value: string(data), Err: err}
	}
	m.value = doc.Amount
	m.cur = doc.Currency
	return nil
}
