package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type positionCmd struct {
	fund   string
	ticker string
}

func (*positionCmd) Name() string     { return "position" }
func (*positionCmd) Synopsis() string { return "show the current position of one ticker" }
func (*positionCmd) Usage() string {
	return `flt position -f <fund> -t <ticker>

  Shows the position derived by replaying the fund's ledger.
`
}

func (p *positionCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.fund, "f", "", "Fund to inspect.")
	f.StringVar(&p.ticker, "t", "", "Ticker to inspect.")
}

func (p *positionCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := newLogger()
	as, _, err := openSystem(log)
	if err != nil {
		return fail(err)
	}
	pos, err := as.GetPosition(p.fund, p.ticker)
	if err != nil {
		return fail(err)
	}

	fmt.Printf("%s: %s shares, avg %s, cost basis %s, realized %s\n",
		pos.Ticker, pos.Shares, pos.AvgPrice, pos.CostBasis, pos.Realized.SignedString())
	for _, lot := range pos.Lots {
		fmt.Printf("  lot %s: %s @ %s\n", lot.Opened, lot.Remaining, lot.UnitCost)
	}
	return subcommands.ExitSuccess
}
