package fundledger

import (
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ConsistencyError reports that the two persisted snapshot copies of a
// fund disagree. The only resolution is a forced rebuild from the
// ledger; copies are never merged field by field, because the ledger,
// not the snapshot, is authoritative.
type ConsistencyError struct {
	Fund            string
	PrimaryDigest   string
	SecondaryDigest string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("snapshot copies diverged for %s: primary %s, secondary %s",
		e.Fund, e.PrimaryDigest, e.SecondaryDigest)
}

// snapshotDigest computes a digest over the snapshot's canonical
// encoding: sorted keys, exact decimal strings, derived timestamps.
// Two snapshots with the same derived state share the digest.
func snapshotDigest(s *PortfolioSnapshot) string {
	if s == nil {
		return ""
	}
	data, err := json.Marshal(s)
	if err != nil {
		// Snapshot values always marshal; a failure here means a bug,
		// and an unmatchable digest forces a rebuild.
		return "unmarshalable:" + err.Error()
	}
	return fmt.Sprintf("%d:%x", len(s.Positions), sha1.Sum(data))
}

// ConsistencyCoordinator keeps the two snapshot copies of each fund in
// agreement with the trade ledger. Reconciliation is per fund and
// serialized per fund, so two concurrent reconciles never race to swap
// the same snapshot slot.
type ConsistencyCoordinator struct {
	primary   Store
	secondary Store
	rec       *Reconstructor
	front     *DualWriteStore
	log       zerolog.Logger

	mu    sync.Mutex
	funds map[string]*sync.Mutex
}

// NewConsistencyCoordinator creates a coordinator over the two
// snapshot targets and the reconstructor that rebuilds from the ledger.
func NewConsistencyCoordinator(primary, secondary Store, rec *Reconstructor, log zerolog.Logger) *ConsistencyCoordinator {
	return &ConsistencyCoordinator{
		primary:   primary,
		secondary: secondary,
		rec:       rec,
		log:       log.With().Str("component", "coordinator").Logger(),
		funds:     make(map[string]*sync.Mutex),
	}
}

// TrackDegraded registers the dual-write front the coordinator serves.
// A degraded front forces re-persisting both snapshot copies even when
// their digests match; a clean ReconcileAll pass resets the flag.
func (c *ConsistencyCoordinator) TrackDegraded(front *DualWriteStore) {
	c.front = front
}

func (c *ConsistencyCoordinator) fundLock(fund string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.funds[fund]
	if !ok {
		l = &sync.Mutex{}
		c.funds[fund] = l
	}
	return l
}

// Reconcile rebuilds the fund from the ledger and compares the result
// against both stored copies. When all three agree it writes nothing
// and reports changed=false, so back-to-back reconciles are idempotent.
// On any divergence or missing copy it discards both stored snapshots
// and re-persists the rebuilt one to both targets.
//
// A rebuild failure aborts only this fund and leaves both stored
// copies, the last known good state, untouched.
func (c *ConsistencyCoordinator) Reconcile(fund string) (*PortfolioSnapshot, bool, error) {
	lock := c.fundLock(fund)
	lock.Lock()
	defer lock.Unlock()

	want, err := c.rec.Rebuild(fund)
	if err != nil {
		c.log.Error().Err(err).Str("fund", fund).Msg("rebuild failed, keeping last known-good snapshots")
		return nil, false, fmt.Errorf("could not rebuild %s: %w", fund, err)
	}
	wantDigest := snapshotDigest(want)

	// A dropped secondary write may have truncated the secondary trade
	// log; backfill it from the primary before comparing snapshots.
	syncErr := c.syncTradeLog(fund)
	if syncErr != nil {
		c.log.Error().Err(syncErr).Str("fund", fund).Msg("trade log sync failed")
	}

	primaryDigest := c.loadDigest(c.primary, "primary", fund)
	secondaryDigest := c.loadDigest(c.secondary, "secondary", fund)

	forced := c.front != nil && c.front.Degraded()
	if primaryDigest == wantDigest && secondaryDigest == wantDigest && !forced {
		if syncErr != nil {
			return want, false, fmt.Errorf("reconcile of %s incomplete: %w", fund, syncErr)
		}
		c.log.Debug().Str("fund", fund).Msg("snapshot copies consistent, nothing to do")
		return want, false, nil
	}

	if primaryDigest != secondaryDigest {
		// Divergence between the copies themselves: surfaced, never
		// silently merged. The repair below overwrites both.
		cerr := &ConsistencyError{Fund: fund, PrimaryDigest: primaryDigest, SecondaryDigest: secondaryDigest}
		c.log.Warn().Err(cerr).Str("fund", fund).Msg("snapshot copies diverged, forcing rebuild")
	}

	errs := syncErr
	if err := c.primary.SaveSnapshot(want); err != nil {
		c.log.Error().Err(err).Str("fund", fund).Msg("primary snapshot write failed during reconcile")
		errs = errors.Join(errs, err)
	}
	if err := c.secondary.SaveSnapshot(want); err != nil {
		c.log.Error().Err(err).Str("fund", fund).Msg("secondary snapshot write failed during reconcile")
		errs = errors.Join(errs, err)
	}
	if errs != nil {
		return want, true, fmt.Errorf("reconcile of %s incomplete: %w", fund, errs)
	}
	c.log.Info().Str("fund", fund).Msg("snapshot copies rebuilt from ledger")
	return want, true, nil
}

// ReconcileAll reconciles every fund present in the ledger. A broken
// fund never takes down the others. After a pass with no failures the
// tracked front's degraded flag is reset.
func (c *ConsistencyCoordinator) ReconcileAll() error {
	var errs error
	for _, fund := range c.rec.Ledger().Funds() {
		if _, _, err := c.Reconcile(fund); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if errs == nil && c.front != nil && c.front.Degraded() {
		c.front.ClearDegraded()
		c.log.Info().Msg("degraded flag cleared after clean reconcile pass")
	}
	return errs
}

// syncTradeLog backfills trades present in the primary log but missing
// from the secondary. Trade rows are append-only, so repair is append,
// never rewrite.
func (c *ConsistencyCoordinator) syncTradeLog(fund string) error {
	if c.primary == c.secondary {
		return nil
	}
	want, err := c.primary.LoadTrades(fund)
	if err != nil {
		return fmt.Errorf("could not load primary trade log for %s: %w", fund, err)
	}
	have, err := c.secondary.LoadTrades(fund)
	if err != nil {
		return fmt.Errorf("could not load secondary trade log for %s: %w", fund, err)
	}
	seen := make(map[tradeKey]struct{}, len(have))
	for _, t := range have {
		seen[t.key()] = struct{}{}
	}
	backfilled := 0
	for _, t := range want {
		if _, ok := seen[t.key()]; ok {
			continue
		}
		if err := c.secondary.AppendTrade(t); err != nil {
			return fmt.Errorf("could not backfill trade log for %s: %w", fund, err)
		}
		backfilled++
	}
	if backfilled > 0 {
		c.log.Info().Str("fund", fund).Int("trades", backfilled).Msg("secondary trade log backfilled")
	}
	return nil
}

// loadDigest loads one stored copy and digests it. A missing or
// unreadable copy digests to "", which never matches a rebuilt
// snapshot and therefore forces a repair.
func (c *ConsistencyCoordinator) loadDigest(store Store, side, fund string) string {
	snap, err := store.LoadSnapshot(fund)
	if errors.Is(err, ErrNoSnapshot) {
		return ""
	}
	if err != nil {
		c.log.Warn().Err(err).Str("side", side).Str("fund", fund).Msg("could not load stored snapshot")
		return ""
	}
	return snapshotDigest(snap)
}
