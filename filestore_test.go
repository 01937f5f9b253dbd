package fundledger

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return store
}

func TestFileStore_TradeLog(t *testing.T) {
	store := newTestFileStore(t)

	trades := []Trade{
		NewBuy("growth", "ACME", Q(100), M(10, "USD"), day(1), 1),
		NewSell("growth", "ACME", Q(40), M(12, "USD"), day(2), 1),
		NewBuy("income", "ZETA", Q(5), M(20, "USD"), day(1), 1),
	}
	for _, tr := range trades {
		if err := store.AppendTrade(tr); err != nil {
			t.Fatalf("AppendTrade failed: %v", err)
		}
	}

	loaded, err := store.LoadTrades("growth")
	if err != nil {
		t.Fatalf("LoadTrades failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d trades, want 2", len(loaded))
	}
	if !loaded[0].Shares.Equal(Q(100)) || !loaded[1].Shares.Equal(Q(40)) {
		t.Error("trade order or content lost on disk")
	}

	if empty, err := store.LoadTrades("unknown"); err != nil || len(empty) != 0 {
		t.Errorf("unknown fund: (%v, %v), want empty with no error", empty, err)
	}

	funds, err := store.Funds()
	if err != nil {
		t.Fatalf("Funds failed: %v", err)
	}
	if len(funds) != 2 || funds[0] != "growth" || funds[1] != "income" {
		t.Errorf("Funds() = %v, want [growth income]", funds)
	}
}

func TestFileStore_SnapshotSwap(t *testing.T) {
	store := newTestFileStore(t)

	if _, err := store.LoadSnapshot("growth"); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("LoadSnapshot on empty store = %v, want ErrNoSnapshot", err)
	}

	ledger := setupFifoLedger(t)
	rec := NewReconstructor(ledger)
	first, err := rec.Rebuild("growth")
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if err := store.SaveSnapshot(first); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	// Replace with a later snapshot: the swap is whole-document.
	if err := ledger.Append(NewBuy("growth", "ACME", Q(10), M(13, "USD"), day(4), 1)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	second, err := rec.Rebuild("growth")
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if err := store.SaveSnapshot(second); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, err := store.LoadSnapshot("growth")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if !loaded.Equal(second) {
		t.Error("loaded snapshot is not the last one saved")
	}
	if loaded.Equal(first) {
		t.Error("old snapshot survived the swap")
	}
}
