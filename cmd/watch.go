package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"github.com/robfig/cron/v3"
)

type watchCmd struct {
	schedule string
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "periodically reconcile every fund" }
func (*watchCmd) Usage() string {
	return `flt watch [-every <cron spec>]

  Runs until interrupted, reconciling all funds on the given schedule.
`
}

func (p *watchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.schedule, "every", "@every 15m", "Cron schedule for the reconcile pass.")
}

func (p *watchCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := newLogger()
	coord, err := openCoordinator(log)
	if err != nil {
		return fail(err)
	}

	c := cron.New()
	_, err = c.AddFunc(p.schedule, func() {
		if err := coord.ReconcileAll(); err != nil {
			log.Error().Err(err).Msg("reconcile pass failed")
		}
	})
	if err != nil {
		return fail(fmt.Errorf("invalid schedule %q: %w", p.schedule, err))
	}
	c.Start()
	fmt.Printf("Watching, reconciling %q. Ctrl-C to stop.\n", p.schedule)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	<-c.Stop().Done()
	return subcommands.ExitSuccess
}
