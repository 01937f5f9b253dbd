package fundledger

import (
	"errors"
	"testing"
)

func TestLotTracker_FifoConsumption(t *testing.T) {
	// BUY 100@$10, BUY 100@$12, SELL 150@$15 must leave exactly one
	// open lot of 50 shares at unit cost $12 and realize
	// 100*(15-10) + 50*(15-12) = 650.
	tracker := NewLotTracker("growth", "ACME")
	tracker.Buy(NewDate(2026, 1, 1), Q(100), M(10, "USD"))
	tracker.Buy(NewDate(2026, 1, 2), Q(100), M(12, "USD"))

	consumed, err := tracker.Sell(NewDate(2026, 1, 3), Q(150), M(15, "USD"))
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}

	if len(consumed) != 2 {
		t.Fatalf("consumed %d lots, want 2", len(consumed))
	}
	if got, want := consumed[0].Realized, M(500, "USD"); !got.Equal(want) {
		t.Errorf("first lot realized %s, want %s", got.Amount(), want.Amount())
	}
	if got, want := consumed[1].Realized, M(150, "USD"); !got.Equal(want) {
		t.Errorf("second lot realized %s, want %s", got.Amount(), want.Amount())
	}
	if got, want := tracker.Realized(), M(650, "USD"); !got.Equal(want) {
		t.Errorf("total realized %s, want %s", got.Amount(), want.Amount())
	}

	lots := tracker.Lots()
	if len(lots) != 1 {
		t.Fatalf("open lots = %d, want 1", len(lots))
	}
	if !lots[0].Remaining.Equal(Q(50)) {
		t.Errorf("remaining = %s, want 50", lots[0].Remaining)
	}
	if !lots[0].UnitCost.Equal(M(12, "USD")) {
		t.Errorf("unit cost = %s, want 12", lots[0].UnitCost.Amount())
	}
}

func TestLotTracker_PartialSplitShrinksInPlace(t *testing.T) {
	tracker := NewLotTracker("growth", "ACME")
	opened := NewDate(2026, 1, 1)
	tracker.Buy(opened, Q(100), M(10, "USD"))

	if _, err := tracker.Sell(NewDate(2026, 1, 2), Q(30), M(11, "USD")); err != nil {
		t.Fatalf("Sell failed: %v", err)
	}

	lots := tracker.Lots()
	if len(lots) != 1 {
		t.Fatalf("open lots = %d, want 1 (split, not pop)", len(lots))
	}
	if lots[0].Opened != opened {
		t.Errorf("split lot lost its open date: %s", lots[0].Opened)
	}
	if !lots[0].Remaining.Equal(Q(70)) {
		t.Errorf("remaining = %s, want 70", lots[0].Remaining)
	}
	if !lots[0].UnitCost.Equal(M(10, "USD")) {
		t.Errorf("unit cost changed on split: %s", lots[0].UnitCost.Amount())
	}
}

func TestLotTracker_OversellLeavesStateUnchanged(t *testing.T) {
	tracker := NewLotTracker("growth", "ACME")
	tracker.Buy(NewDate(2026, 1, 1), Q(100), M(10, "USD"))
	tracker.Buy(NewDate(2026, 1, 2), Q(50), M(12, "USD"))
	before := tracker.Lots()
	realizedBefore := tracker.Realized()

	_, err := tracker.Sell(NewDate(2026, 1, 3), Q(200), M(15, "USD"))
	var insufficient *InsufficientSharesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("want InsufficientSharesError, got %v", err)
	}
	if !insufficient.Requested.Equal(Q(200)) || !insufficient.Available.Equal(Q(150)) {
		t.Errorf("error reports %s/%s, want 200/150", insufficient.Requested, insufficient.Available)
	}

	after := tracker.Lots()
	if len(after) != len(before) {
		t.Fatalf("queue length changed on failed sell: %d != %d", len(after), len(before))
	}
	for i := range after {
		if !after[i].Remaining.Equal(before[i].Remaining) || !after[i].UnitCost.Equal(before[i].UnitCost) {
			t.Errorf("lot %d mutated on failed sell", i)
		}
	}
	if !tracker.Realized().Equal(realizedBefore) {
		t.Error("realized changed on failed sell")
	}
}

func TestLotTracker_AllowNegativeBooksShortLot(t *testing.T) {
	tracker := NewLotTrackerWithPolicy("growth", "ACME", OversellAllowNegative)
	tracker.Buy(NewDate(2026, 1, 1), Q(100), M(10, "USD"))

	if _, err := tracker.Sell(NewDate(2026, 1, 2), Q(150), M(15, "USD")); err != nil {
		t.Fatalf("Sell failed under allow-negative: %v", err)
	}
	if !tracker.Shares().Equal(Q(-50)) {
		t.Errorf("shares = %s, want -50", tracker.Shares())
	}
	// Realized covers only the 100 shares actually held.
	if got, want := tracker.Realized(), M(500, "USD"); !got.Equal(want) {
		t.Errorf("realized = %s, want %s", got.Amount(), want.Amount())
	}
}

func TestLotTracker_FractionalShares(t *testing.T) {
	tracker := NewLotTracker("growth", "ACME")
	tracker.Buy(NewDate(2026, 1, 1), qty(t, "1.5"), usd(t, "100.10"))

	if _, err := tracker.Sell(NewDate(2026, 1, 2), qty(t, "0.5"), usd(t, "110.10")); err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	if got, want := tracker.Realized(), usd(t, "5.00"); !got.Equal(want) {
		t.Errorf("realized = %s, want %s", got.Amount(), want.Amount())
	}
	if got, want := tracker.CostBasis(), usd(t, "100.10"); !got.Equal(want) {
		t.Errorf("cost basis = %s, want %s", got.Amount(), want.Amount())
	}
}
