package fundledger

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// AccountingSystem is the facade exposed to collaborators (CLI,
// dashboards, reports). It owns the in-memory trade ledger, its
// backing store, and the reconstructor, and wires the optional P&L
// engine. All dependencies are injected; there is no ambient global
// state.
type AccountingSystem struct {
	ledger *TradeLedger
	store  Store
	rec    *Reconstructor
	pnl    *PnLEngine
	log    zerolog.Logger
}

// NewAccountingSystem loads every stored trade into a fresh ledger and
// returns the system. The price and FX oracles may be nil when no P&L
// annotation is needed.
func NewAccountingSystem(store Store, prices PriceOracle, fx FxOracle, log zerolog.Logger) (*AccountingSystem, error) {
	ledger := NewTradeLedger()
	funds, err := store.Funds()
	if err != nil {
		return nil, fmt.Errorf("could not list funds: %w", err)
	}
	for _, fund := range funds {
		trades, err := store.LoadTrades(fund)
		if err != nil {
			return nil, fmt.Errorf("could not load trades for %s: %w", fund, err)
		}
		for _, t := range trades {
			if err := ledger.Append(t); err != nil {
				return nil, fmt.Errorf("stored trade rejected for %s: %w", fund, err)
			}
		}
	}

	as := &AccountingSystem{
		ledger: ledger,
		store:  store,
		rec:    NewReconstructor(ledger),
		log:    log.With().Str("component", "accounting").Logger(),
	}
	if prices != nil {
		as.pnl = NewPnLEngine(prices, fx)
	}
	return as, nil
}

// Ledger returns the in-memory trade ledger.
func (a *AccountingSystem) Ledger() *TradeLedger { return a.ledger }

// Reconstructor returns the replay engine over the ledger.
func (a *AccountingSystem) Reconstructor() *Reconstructor { return a.rec }

// RecordTrade validates and appends a trade. A SELL exceeding the
// currently held shares is rejected with InsufficientSharesError
// before anything is appended, so the ledger replays to exactly the
// pre-attempt state.
func (a *AccountingSystem) RecordTrade(t Trade) error {
	if err := t.Validate(); err != nil {
		a.log.Warn().Err(err).Str("fund", t.Fund).Str("ticker", t.Ticker).Msg("trade rejected")
		return err
	}
	if t.Action == ActionSell {
		snap, err := a.rec.Rebuild(t.Fund)
		if err != nil {
			return fmt.Errorf("could not verify available shares: %w", err)
		}
		held := Q(0)
		if pos, ok := snap.Position(t.Ticker); ok {
			held = pos.Shares
		}
		if t.Shares.GreaterThan(held) {
			err := &InsufficientSharesError{Fund: t.Fund, Ticker: t.Ticker, Requested: t.Shares, Available: held}
			a.log.Warn().Err(err).Str("fund", t.Fund).Str("ticker", t.Ticker).Msg("oversell rejected")
			return err
		}
	}
	if err := a.ledger.Append(t); err != nil {
		return err
	}
	if err := a.store.AppendTrade(t); err != nil {
		// Roll the in-memory append back so a retry is not rejected as
		// a duplicate. The durable log stays authoritative.
		a.ledger.remove(t)
		return fmt.Errorf("trade not persisted: %w", err)
	}
	return nil
}

// GetPosition returns the current position of a ticker, or ErrNotFound.
func (a *AccountingSystem) GetPosition(fund, ticker string) (Position, error) {
	snap, err := a.rec.Rebuild(fund)
	if err != nil {
		return Position{}, err
	}
	pos, ok := snap.Position(ticker)
	if !ok {
		return Position{}, fmt.Errorf("position %s/%s: %w", fund, ticker, ErrNotFound)
	}
	return pos, nil
}

// GetPortfolio returns the current snapshot of a fund, derived by
// replay.
func (a *AccountingSystem) GetPortfolio(fund string) (*PortfolioSnapshot, error) {
	return a.rec.Rebuild(fund)
}

// GetPortfolioAt returns the snapshot of a fund as of a point in time.
func (a *AccountingSystem) GetPortfolioAt(fund string, asOf time.Time) (*PortfolioSnapshot, error) {
	return a.rec.RebuildAt(fund, asOf)
}

// Rebuild forces a full replay and re-persists the snapshot cache.
// Used by reconciliation and rebuild-after-inconsistency workflows.
func (a *AccountingSystem) Rebuild(fund string) (*PortfolioSnapshot, error) {
	snap, err := a.rec.Rebuild(fund)
	if err != nil {
		return nil, err
	}
	if err := a.store.SaveSnapshot(snap); err != nil {
		return nil, fmt.Errorf("rebuilt but could not persist snapshot for %s: %w", fund, err)
	}
	return snap, nil
}

// PnL annotates the current snapshot of a fund with realized,
// unrealized and daily P&L as of the given date.
func (a *AccountingSystem) PnL(fund string, on Date) ([]PnLRecord, error) {
	if a.pnl == nil {
		return nil, fmt.Errorf("no price oracle configured")
	}
	snap, err := a.rec.Rebuild(fund)
	if err != nil {
		return nil, err
	}
	return a.pnl.Annotate(snap, on), nil
}
