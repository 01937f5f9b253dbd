package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/etnz/fundledger"
	"github.com/google/subcommands"
)

type recordCmd struct {
	fund     string
	ticker   string
	action   string
	shares   string
	price    string
	currency string
	at       string
	sequence int64
}

func (*recordCmd) Name() string     { return "record" }
func (*recordCmd) Synopsis() string { return "record a buy or sell trade in the ledger" }
func (*recordCmd) Usage() string {
	return `flt record -f <fund> -t <ticker> -a buy|sell -q <shares> -p <price> -c <currency> [-d <datetime>] [-seq <n>]

  Validates the trade and appends it to the ledger and its backing store(s).
`
}

func (p *recordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.fund, "f", "", "Fund the trade belongs to.")
	f.StringVar(&p.ticker, "t", "", "Ticker of the security.")
	f.StringVar(&p.action, "a", "", "Trade action: buy or sell.")
	f.StringVar(&p.shares, "q", "", "Number of shares, fractional allowed.")
	f.StringVar(&p.price, "p", "", "Unit price, exact decimal.")
	f.StringVar(&p.currency, "c", "", "Trade currency (ISO code).")
	f.StringVar(&p.at, "d", "", "Trade time (RFC3339 or YYYY-MM-DD). Defaults to now.")
	f.Int64Var(&p.sequence, "seq", 0, "Sequence number to break same-timestamp ties.")
}

func (p *recordCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := newLogger()

	action, err := fundledger.ParseAction(normalizeAction(p.action))
	if err != nil {
		return fail(err)
	}
	shares, err := fundledger.ParseQuantity(p.shares)
	if err != nil {
		return fail(err)
	}
	price, err := fundledger.ParseMoney(p.price, p.currency)
	if err != nil {
		return fail(err)
	}
	at := time.Now().UTC()
	if p.at != "" {
		if at, err = parseWhen(p.at); err != nil {
			return fail(err)
		}
	}

	as, _, err := openSystem(log)
	if err != nil {
		return fail(err)
	}
	trade := fundledger.Trade{
		Fund:     p.fund,
		Ticker:   p.ticker,
		Action:   action,
		Shares:   shares,
		Price:    price,
		Time:     at,
		Sequence: p.sequence,
	}
	if err := as.RecordTrade(trade); err != nil {
		return fail(err)
	}
	fmt.Printf("Recorded %s %s %s @ %s for %s\n", action, shares, p.ticker, price, p.fund)
	return subcommands.ExitSuccess
}

func normalizeAction(s string) string {
	switch s {
	case "buy":
		return string(fundledger.ActionBuy)
	case "sell":
		return string(fundledger.ActionSell)
	default:
		return s
	}
}

// parseWhen accepts a full RFC3339 timestamp or a bare date.
func parseWhen(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := fundledger.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return d.Time(), nil
}
