package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/fundledger"
	"github.com/google/subcommands"
)

type portfolioCmd struct {
	fund string
	asOf string
	pnl  bool
	date string
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "show the full portfolio snapshot of a fund" }
func (*portfolioCmd) Usage() string {
	return `flt portfolio -f <fund> [-as-of <datetime>] [-pnl [-d <date>]]

  Replays the fund's ledger and prints every position and cash balance.
  With -pnl, annotates positions using the configured price file.
`
}

func (p *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.fund, "f", "", "Fund to inspect.")
	f.StringVar(&p.asOf, "as-of", "", "Snapshot point in time. Defaults to the full ledger.")
	f.BoolVar(&p.pnl, "pnl", false, "Annotate positions with P&L.")
	f.StringVar(&p.date, "d", "", "Valuation date for -pnl. Defaults to today.")
}

func (p *portfolioCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := newLogger()
	as, _, err := openSystem(log)
	if err != nil {
		return fail(err)
	}

	var snap *fundledger.PortfolioSnapshot
	if p.asOf != "" {
		at, err := parseWhen(p.asOf)
		if err != nil {
			return fail(err)
		}
		snap, err = as.GetPortfolioAt(p.fund, at)
		if err != nil {
			return fail(err)
		}
	} else {
		snap, err = as.GetPortfolio(p.fund)
		if err != nil {
			return fail(err)
		}
	}

	fmt.Printf("Fund %s as of %s\n", snap.Fund, snap.AsOf.UTC())
	for _, ticker := range snap.Tickers() {
		pos := snap.Positions[ticker]
		fmt.Printf("  %-8s %12s shares  cost basis %s\n", ticker, pos.Shares, pos.CostBasis)
	}
	for _, currency := range snap.Currencies() {
		fmt.Printf("  cash %s: %s\n", currency, snap.Cash[currency])
	}

	if !p.pnl {
		return subcommands.ExitSuccess
	}
	on := fundledger.Today()
	if p.date != "" {
		if on, err = fundledger.ParseDate(p.date); err != nil {
			return fail(err)
		}
	}
	records, err := as.PnL(p.fund, on)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("P&L on %s:\n", on)
	for _, r := range records {
		fmt.Printf("  %-8s unrealized %s  realized %s  daily %s  (%s)\n",
			r.Ticker, r.Unrealized.SignedString(), r.Realized.SignedString(), r.Daily.SignedString(), r.Confidence)
	}
	return subcommands.ExitSuccess
}
