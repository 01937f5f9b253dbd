package fundledger

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DualWriteStore fans writes out to a primary and a secondary store.
//
// Writes to the two targets are independent: a failure on one side is
// logged and retried with backoff but never blocks or rolls back the
// other side. Trade-log durability takes precedence over the snapshot
// cache: an AppendTrade that cannot reach the primary is an error,
// while a one-sided snapshot failure only degrades the store until the
// next reconcile.
type DualWriteStore struct {
	primary   Store
	secondary Store
	log       zerolog.Logger

	attempts int
	wait     time.Duration

	degraded atomic.Bool
}

// NewDualWriteStore creates a dual-write store with 3 attempts per
// side and an initial 100ms backoff.
func NewDualWriteStore(primary, secondary Store, log zerolog.Logger) *DualWriteStore {
	return &DualWriteStore{
		primary:   primary,
		secondary: secondary,
		log:       log.With().Str("store", "dual").Logger(),
		attempts:  3,
		wait:      100 * time.Millisecond,
	}
}

// Primary returns the primary inner store.
func (d *DualWriteStore) Primary() Store { return d.primary }

// Secondary returns the secondary inner store.
func (d *DualWriteStore) Secondary() Store { return d.secondary }

// Degraded reports whether a secondary-side write has been dropped
// since the last reconcile. The consistency coordinator escalates a
// degraded store to a forced rebuild instead of letting the copies
// drift silently.
func (d *DualWriteStore) Degraded() bool { return d.degraded.Load() }

// ClearDegraded is called by the coordinator once both copies have
// been re-persisted from the ledger.
func (d *DualWriteStore) ClearDegraded() { d.degraded.Store(false) }

// withRetry runs fn up to d.attempts times with doubling backoff.
func (d *DualWriteStore) withRetry(side, op, fund string, fn func() error) error {
	wait := d.wait
	var err error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		d.log.Warn().Err(err).
			Str("side", side).Str("op", op).Str("fund", fund).
			Int("attempt", attempt).Msg("store write failed")
		if attempt < d.attempts {
			time.Sleep(wait)
			wait *= 2
		}
	}
	return err
}

// AppendTrade appends to both trade logs. The primary must succeed; a
// secondary failure is logged, flagged, and left for reconciliation.
func (d *DualWriteStore) AppendTrade(t Trade) error {
	if err := d.withRetry("primary", "append", t.Fund, func() error { return d.primary.AppendTrade(t) }); err != nil {
		return fmt.Errorf("primary trade append failed for %s: %w", t.Fund, err)
	}
	if err := d.withRetry("secondary", "append", t.Fund, func() error { return d.secondary.AppendTrade(t) }); err != nil {
		d.degraded.Store(true)
		d.log.Error().Err(err).Str("fund", t.Fund).Msg("secondary trade append dropped, store degraded")
	}
	return nil
}

// LoadTrades reads from the primary, falling back to the secondary.
func (d *DualWriteStore) LoadTrades(fund string) ([]Trade, error) {
	trades, err := d.primary.LoadTrades(fund)
	if err == nil {
		return trades, nil
	}
	d.log.Warn().Err(err).Str("fund", fund).Msg("primary trade load failed, falling back to secondary")
	return d.secondary.LoadTrades(fund)
}

// SaveSnapshot writes the snapshot to both targets independently.
func (d *DualWriteStore) SaveSnapshot(s *PortfolioSnapshot) error {
	perr := d.withRetry("primary", "snapshot", s.Fund, func() error { return d.primary.SaveSnapshot(s) })
	serr := d.withRetry("secondary", "snapshot", s.Fund, func() error { return d.secondary.SaveSnapshot(s) })
	if perr != nil && serr != nil {
		return fmt.Errorf("snapshot write failed on both targets for %s: primary: %v; secondary: %v", s.Fund, perr, serr)
	}
	if perr != nil || serr != nil {
		d.degraded.Store(true)
		d.log.Error().AnErr("primary", perr).AnErr("secondary", serr).
			Str("fund", s.Fund).Msg("one-sided snapshot write, store degraded")
	}
	return nil
}

// LoadSnapshot reads the primary copy.
func (d *DualWriteStore) LoadSnapshot(fund string) (*PortfolioSnapshot, error) {
	return d.primary.LoadSnapshot(fund)
}

// Funds lists funds from the primary, falling back to the secondary.
func (d *DualWriteStore) Funds() ([]string, error) {
	funds, err := d.primary.Funds()
	if err == nil {
		return funds, nil
	}
	d.log.Warn().Err(err).Msg("primary fund list failed, falling back to secondary")
	return d.secondary.Funds()
}
