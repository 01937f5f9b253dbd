// Package cmd implements the CLI application to manage a fund ledger.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/etnz/fundledger"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package calls Register() and then Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&recordCmd{}, "trades")
	c.Register(&txCmd{}, "trades")

	c.Register(&positionCmd{}, "portfolio")
	c.Register(&portfolioCmd{}, "portfolio")

	c.Register(&rebuildCmd{}, "consistency")
	c.Register(&reconcileCmd{}, "consistency")
	c.Register(&watchCmd{}, "consistency")
}

// As a CLI application the lifecycle is short-lived, so shared flags
// live in globals.

var storeDir = flag.String("store-dir", ".fundledger", "Path to the local ledger store directory")

// Remote store settings come from the environment (or a .env file):
// FUNDLEDGER_REMOTE_URL and FUNDLEDGER_REMOTE_TOKEN.
func loadEnv() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()
}

// openStores builds the local file store and, when configured, the
// remote store behind a dual-write front.
func openStores(log zerolog.Logger) (store fundledger.Store, primary, secondary fundledger.Store, err error) {
	loadEnv()
	file, err := fundledger.NewFileStore(*storeDir, log)
	if err != nil {
		return nil, nil, nil, err
	}
	remoteURL := os.Getenv("FUNDLEDGER_REMOTE_URL")
	if remoteURL == "" {
		return file, file, nil, nil
	}
	remote := fundledger.NewRemoteStore(remoteURL, os.Getenv("FUNDLEDGER_REMOTE_TOKEN"), log)
	return fundledger.NewDualWriteStore(file, remote, log), file, remote, nil
}

// openSystem wires the accounting system over the configured stores.
func openSystem(log zerolog.Logger) (*fundledger.AccountingSystem, fundledger.Store, error) {
	store, _, _, err := openStores(log)
	if err != nil {
		return nil, nil, err
	}
	as, err := fundledger.NewAccountingSystem(store, pricesOracle(), fxOracle(), log)
	if err != nil {
		return nil, nil, err
	}
	return as, store, nil
}

// openCoordinator wires the consistency coordinator over both snapshot
// targets. Without a remote store both targets are the file store,
// which degenerates into plain rebuild-and-persist.
func openCoordinator(log zerolog.Logger) (*fundledger.ConsistencyCoordinator, error) {
	store, primary, secondary, err := openStores(log)
	if err != nil {
		return nil, err
	}
	as, err := fundledger.NewAccountingSystem(store, nil, nil, log)
	if err != nil {
		return nil, err
	}
	if secondary == nil {
		secondary = primary
	}
	coord := fundledger.NewConsistencyCoordinator(primary, secondary, as.Reconstructor(), log)
	if dual, ok := store.(*fundledger.DualWriteStore); ok {
		coord.TrackDegraded(dual)
	}
	return coord, nil
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return subcommands.ExitFailure
}
