package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type reconcileCmd struct {
	fund string
	all  bool
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "detect and repair snapshot divergence" }
func (*reconcileCmd) Usage() string {
	return `flt reconcile [-f <fund> | -all]

  Rebuilds from the ledger and compares both stored snapshot copies.
  Diverged or missing copies are overwritten with the rebuilt snapshot;
  consistent copies are left untouched.
`
}

func (p *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.fund, "f", "", "Fund to reconcile.")
	f.BoolVar(&p.all, "all", false, "Reconcile every fund in the ledger.")
}

func (p *reconcileCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := newLogger()
	coord, err := openCoordinator(log)
	if err != nil {
		return fail(err)
	}
	if p.all {
		if err := coord.ReconcileAll(); err != nil {
			return fail(err)
		}
		fmt.Println("All funds reconciled")
		return subcommands.ExitSuccess
	}
	_, changed, err := coord.Reconcile(p.fund)
	if err != nil {
		return fail(err)
	}
	if changed {
		fmt.Printf("Reconciled %s: snapshot copies rebuilt from ledger\n", p.fund)
	} else {
		fmt.Printf("Reconciled %s: copies already consistent\n", p.fund)
	}
	return subcommands.ExitSuccess
}
