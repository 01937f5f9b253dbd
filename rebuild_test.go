package fundledger

import (
	"bytes"
	"errors"
	"testing"
)

func TestReconstructor_ReplayDeterminism(t *testing.T) {
	ledger := setupFifoLedger(t)
	rec := NewReconstructor(ledger)

	first, err := rec.Rebuild("growth")
	if err != nil {
		t.Fatalf("first Rebuild failed: %v", err)
	}
	second, err := rec.Rebuild("growth")
	if err != nil {
		t.Fatalf("second Rebuild failed: %v", err)
	}

	var a, b bytes.Buffer
	if err := EncodeSnapshot(&a, first); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if err := EncodeSnapshot(&b, second); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("two rebuilds of the same ledger encoded differently")
	}
	if !first.Equal(second) {
		t.Error("two rebuilds of the same ledger are not Equal")
	}
}

func TestReconstructor_FifoSnapshot(t *testing.T) {
	rec := NewReconstructor(setupFifoLedger(t))
	snap, err := rec.Rebuild("growth")
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	pos, ok := snap.Position("ACME")
	if !ok {
		t.Fatal("no position for ACME")
	}
	if !pos.Shares.Equal(Q(50)) {
		t.Errorf("shares = %s, want 50", pos.Shares)
	}
	if got, want := pos.CostBasis, M(600, "USD"); !got.Equal(want) {
		t.Errorf("cost basis = %s, want %s", got.Amount(), want.Amount())
	}
	if got, want := pos.Realized, M(650, "USD"); !got.Equal(want) {
		t.Errorf("realized = %s, want %s", got.Amount(), want.Amount())
	}
	if !pos.consistent() {
		t.Error("position violates its lot invariants")
	}

	// Cash: -1000 -1200 +2250 = +50.
	if got, want := snap.Cash["USD"], M(50, "USD"); !got.Equal(want) {
		t.Errorf("cash = %s, want %s", got.Amount(), want.Amount())
	}
	if !snap.AsOf.Equal(day(3)) {
		t.Errorf("asOf = %s, want %s (last trade, not wall clock)", snap.AsOf, day(3))
	}
}

func TestReconstructor_InvariantsThroughoutReplay(t *testing.T) {
	ledger := NewTradeLedger()
	trades := []Trade{
		NewBuy("growth", "ACME", Q(100), M(10, "USD"), day(1), 1),
		NewBuy("growth", "ZETA", Q(40), M(25, "USD"), day(1), 2),
		NewSell("growth", "ACME", Q(60), M(11, "USD"), day(2), 1),
		NewBuy("growth", "ACME", Q(20), M(9, "USD"), day(3), 1),
		NewSell("growth", "ZETA", Q(40), M(30, "USD"), day(4), 1),
	}
	rec := NewReconstructor(ledger)
	for _, tr := range trades {
		if err := ledger.Append(tr); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		snap, err := rec.Rebuild("growth")
		if err != nil {
			t.Fatalf("Rebuild failed: %v", err)
		}
		for _, ticker := range snap.Tickers() {
			if !snap.Positions[ticker].consistent() {
				t.Errorf("after %s %s: position %s violates invariants", tr.Action, tr.Ticker, ticker)
			}
		}
	}
}

func TestReconstructor_OversellAbortsFundRebuild(t *testing.T) {
	ledger := NewTradeLedger()
	if err := ledger.Append(NewBuy("growth", "ACME", Q(10), M(10, "USD"), day(1), 1)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	// An oversized sell sneaks into the ledger (e.g. written by another
	// ingestion path). Replay must fail cleanly for this fund only.
	if err := ledger.Append(NewSell("growth", "ACME", Q(100), M(15, "USD"), day(2), 1)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := ledger.Append(NewBuy("income", "ZETA", Q(5), M(20, "USD"), day(1), 1)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rec := NewReconstructor(ledger)
	_, err := rec.Rebuild("growth")
	var insufficient *InsufficientSharesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Rebuild = %v, want InsufficientSharesError", err)
	}

	// The broken fund must not take down others.
	if _, err := rec.Rebuild("income"); err != nil {
		t.Errorf("income rebuild failed: %v", err)
	}
}

func TestReconstructor_RebuildAt(t *testing.T) {
	rec := NewReconstructor(setupFifoLedger(t))
	snap, err := rec.RebuildAt("growth", day(2))
	if err != nil {
		t.Fatalf("RebuildAt failed: %v", err)
	}
	pos, _ := snap.Position("ACME")
	if !pos.Shares.Equal(Q(200)) {
		t.Errorf("shares at day 2 = %s, want 200", pos.Shares)
	}
}

func TestReconstructor_ApplyTradeMatchesFullRebuild(t *testing.T) {
	ledger := setupFifoLedger(t)
	rec := NewReconstructor(ledger)
	snap, err := rec.Rebuild("growth")
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	next := NewBuy("growth", "ACME", Q(25), M(14, "USD"), day(4), 1)
	fast, err := rec.ApplyTrade(snap, next)
	if err != nil {
		t.Fatalf("ApplyTrade failed: %v", err)
	}
	if err := ledger.Append(next); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	full, err := rec.Rebuild("growth")
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if !fast.Equal(full) {
		t.Error("incremental ApplyTrade differs from full rebuild")
	}

	// The input snapshot must not have been mutated.
	if pos, _ := snap.Position("ACME"); !pos.Shares.Equal(Q(50)) {
		t.Errorf("input snapshot mutated: shares = %s", pos.Shares)
	}
}

func TestReconstructor_ApplyTradeRejectsOutOfOrder(t *testing.T) {
	rec := NewReconstructor(setupFifoLedger(t))
	snap, err := rec.Rebuild("growth")
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	testCases := []struct {
		name  string
		trade Trade
	}{
		{"earlier timestamp", NewBuy("growth", "ACME", Q(1), M(10, "USD"), day(2), 9)},
		{"same timestamp same sequence", NewBuy("growth", "ACME", Q(1), M(10, "USD"), day(3), 1)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := rec.ApplyTrade(snap, tc.trade); !errors.Is(err, ErrOutOfOrder) {
				t.Errorf("ApplyTrade = %v, want ErrOutOfOrder", err)
			}
		})
	}
}

func TestReconstructor_CurrencyMismatchRejected(t *testing.T) {
	ledger := NewTradeLedger()
	if err := ledger.Append(NewBuy("growth", "ACME", Q(10), M(10, "USD"), day(1), 1)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := ledger.Append(NewBuy("growth", "ACME", Q(10), M(10, "EUR"), day(2), 1)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	_, err := NewReconstructor(ledger).Rebuild("growth")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Rebuild = %v, want ValidationError on currency mismatch", err)
	}
}
