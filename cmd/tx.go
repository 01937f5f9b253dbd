package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/etnz/fundledger"
	"github.com/google/subcommands"
)

type txCmd struct {
	fund   string
	ticker string
	since  string
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list the trades of a fund" }
func (*txCmd) Usage() string {
	return `flt tx -f <fund> [-t <ticker>] [-s <since>]

  Lists a fund's trades in ledger order, oldest first.
`
}

func (p *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.fund, "f", "", "Fund to list.")
	f.StringVar(&p.ticker, "t", "", "Only trades for this ticker.")
	f.StringVar(&p.since, "s", "", "Only trades on or after this date.")
}

func (p *txCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := newLogger()
	as, _, err := openSystem(log)
	if err != nil {
		return fail(err)
	}

	filter := fundledger.TradeFilter{Ticker: p.ticker}
	if p.since != "" {
		d, err := fundledger.ParseDate(p.since)
		if err != nil {
			return fail(err)
		}
		filter.Since = d.Time()
	}

	for _, t := range as.Ledger().Trades(p.fund, filter) {
		fmt.Printf("%s %4d %-4s %10s %-8s @ %s\n",
			t.Time.UTC().Format(time.RFC3339), t.Sequence, t.Action, t.Shares, t.Ticker, t.Price)
	}
	return subcommands.ExitSuccess
}
