package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type rebuildCmd struct {
	fund string
}

func (*rebuildCmd) Name() string     { return "rebuild" }
func (*rebuildCmd) Synopsis() string { return "force a full replay and re-persist the snapshot" }
func (*rebuildCmd) Usage() string {
	return `flt rebuild -f <fund>

  Replays the fund's entire ledger from an empty state and replaces the
  stored snapshot cache with the result.
`
}

func (p *rebuildCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.fund, "f", "", "Fund to rebuild.")
}

func (p *rebuildCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := newLogger()
	as, _, err := openSystem(log)
	if err != nil {
		return fail(err)
	}
	snap, err := as.Rebuild(p.fund)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Rebuilt %s: %d positions, as of %s\n", snap.Fund, len(snap.Positions), snap.AsOf.UTC())
	return subcommands.ExitSuccess
}
