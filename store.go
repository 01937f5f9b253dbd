package fundledger

import "errors"

// ErrNoSnapshot is returned when a store holds no snapshot for a fund.
var ErrNoSnapshot = errors.New("no snapshot stored")

// ErrNotFound is returned when a fund or position does not exist.
var ErrNotFound = errors.New("not found")

// Store is the capability set every snapshot/ledger backend offers.
// Concrete variants are FileStore, RemoteStore and DualWriteStore;
// they are interchangeable, never an inheritance chain.
//
// Trade rows are durable and authoritative; snapshot rows are a
// rebuildable cache.
type Store interface {
	// AppendTrade durably appends one trade to the backing trade log.
	AppendTrade(t Trade) error
	// LoadTrades returns all stored trades of a fund, in stored order.
	LoadTrades(fund string) ([]Trade, error)
	// SaveSnapshot replaces the stored snapshot for the fund
	// atomically: a reader sees either the old or the new snapshot,
	// never a partial overwrite.
	SaveSnapshot(s *PortfolioSnapshot) error
	// LoadSnapshot returns the stored snapshot, or ErrNoSnapshot.
	LoadSnapshot(fund string) (*PortfolioSnapshot, error)
	// Funds lists the funds with stored trades.
	Funds() ([]string, error)
}
