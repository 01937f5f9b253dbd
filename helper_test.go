package fundledger

import (
	"testing"
	"time"
)

// day returns a deterministic trade timestamp n days into the test era.
func day(n int) time.Time {
	return time.Date(2026, time.January, 1, 17, 30, 0, 0, time.UTC).AddDate(0, 0, n-1)
}

// usd is shorthand for an exact USD amount from a decimal string.
func usd(t *testing.T, amount string) Money {
	t.Helper()
	m, err := ParseMoney(amount, "USD")
	if err != nil {
		t.Fatalf("ParseMoney(%q) failed: %v", amount, err)
	}
	return m
}

// qty is shorthand for an exact quantity from a decimal string.
func qty(t *testing.T, s string) Quantity {
	t.Helper()
	q, err := ParseQuantity(s)
	if err != nil {
		t.Fatalf("ParseQuantity(%q) failed: %v", s, err)
	}
	return q
}

// setupFifoLedger builds the canonical ledger used across replay tests:
// BUY 100@$10, BUY 100@$12, SELL 150@$15 on the same ticker.
func setupFifoLedger(t *testing.T) *TradeLedger {
	t.Helper()
	ledger := NewTradeLedger()
	trades := []Trade{
		NewBuy("growth", "ACME", Q(100), M(10, "USD"), day(1), 1),
		NewBuy("growth", "ACME", Q(100), M(12, "USD"), day(2), 1),
		NewSell("growth", "ACME", Q(150), M(15, "USD"), day(3), 1),
	}
	for _, tr := range trades {
		if err := ledger.Append(tr); err != nil {
			t.Fatalf("Append(%v) failed: %v", tr, err)
		}
	}
	return ledger
}
