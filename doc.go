// Package fundledger implements a FIFO lot-tracking ledger and
// position-reconstruction engine for multi-fund portfolios.
//
// The trade ledger is the single source of truth: an append-only,
// totally ordered log of immutable trades. Positions, lots, cash
// balances and snapshots are all derived values, recomputed by
// replaying the ledger through fresh lot trackers. Any persisted
// snapshot is a cache that gets discarded and rebuilt whenever it
// disagrees with a replay.
//
// All monetary arithmetic is exact decimal; binary floating point is
// never used for money.
package fundledger
