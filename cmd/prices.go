package cmd

import (
	"bufio"
	"encoding/json"
	"flag"
	"os"

	"github.com/etnz/fundledger"
	"github.com/shopspring/decimal"
)

var pricesFile = flag.String("prices-file", "", "Path to a JSONL price file used as price and FX oracle")

// priceRow is one line of the price file:
// {"ticker":"AAPL","date":"2026-01-05","price":184.25,"currency":"USD"}.
// FX rates use pair tickers like "USDEUR", as quotes of one unit of the
// base currency.
type priceRow struct {
	Ticker   string          `json:"ticker"`
	Date     fundledger.Date `json:"date"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

// filePriceOracle serves prices and FX rates from a local price file.
// It only answers for exact dates; missing days are Unavailable, which
// is what exercises the engine's lookback and confidence labels.
type filePriceOracle struct {
	quotes map[string]map[fundledger.Date]priceRow
}

func loadPriceFile(path string) (*filePriceOracle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	o := &filePriceOracle{quotes: make(map[string]map[fundledger.Date]priceRow)}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var row priceRow
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			return nil, err
		}
		byDate, ok := o.quotes[row.Ticker]
		if !ok {
			byDate = make(map[fundledger.Date]priceRow)
			o.quotes[row.Ticker] = byDate
		}
		byDate[row.Date] = row
	}
	return o, scanner.Err()
}

func (o *filePriceOracle) Price(ticker string, on fundledger.Date) (fundledger.PriceQuote, error) {
	row, ok := o.quotes[ticker][on]
	if !ok {
		return fundledger.PriceQuote{}, fundledger.ErrUnavailable
	}
	return fundledger.PriceQuote{Price: fundledger.M(row.Price, row.Currency), Effective: on}, nil
}

func (o *filePriceOracle) Rate(from, to string, on fundledger.Date) (decimal.Decimal, error) {
	row, ok := o.quotes[from+to][on]
	if !ok {
		return decimal.Decimal{}, fundledger.ErrUnavailable
	}
	return row.Price, nil
}

// cached oracle shared by subcommands within one invocation.
var oracle *filePriceOracle

func loadOracle() *filePriceOracle {
	if oracle != nil || *pricesFile == "" {
		return oracle
	}
	o, err := loadPriceFile(*pricesFile)
	if err != nil {
		// The oracle is optional: commands that need it will report
		// insufficient data rather than fail outright.
		logger := newLogger()
		logger.Warn().Err(err).Str("file", *pricesFile).Msg("could not load price file")
		return nil
	}
	oracle = o
	return oracle
}

func pricesOracle() fundledger.PriceOracle {
	if o := loadOracle(); o != nil {
		return o
	}
	return nil
}

func fxOracle() fundledger.FxOracle {
	if o := loadOracle(); o != nil {
		return o
	}
	return nil
}
