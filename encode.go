package fundledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Wire commands for the JSONL trade log.
const (
	cmdBuy  = "buy"
	cmdSell = "sell"
)

// tradeDoc is the persisted shape of a trade row. Decimal values are
// written as exact decimal literals; no binary-float intermediate ever
// touches the wire.
type tradeDoc struct {
	Command  string          `json:"command"`
	Fund     string          `json:"fund"`
	Ticker   string          `json:"ticker"`
	Quantity Quantity        `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Time     time.Time       `json:"time"`
	Sequence int64           `json:"sequence"`
}

// EncodeTrade writes one trade as a single JSONL line.
func EncodeTrade(w io.Writer, t Trade) error {
	command := cmdBuy
	if t.Action == ActionSell {
		command = cmdSell
	}
	var obj jsonObjectWriter
	obj.Append("command", command)
	obj.Append("fund", t.Fund)
	obj.Append("ticker", t.Ticker)
	obj.Append("quantity", t.Shares)
	obj.Append("price", t.Price.Amount())
	obj.Append("currency", t.Currency())
	obj.Append("time", t.Time.UTC().Format(time.RFC3339Nano))
	obj.Append("sequence", t.Sequence)
	data, err := obj.MarshalJSON()
	if err != nil {
		return fmt.Errorf("could not encode trade: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("could not write trade: %w", err)
	}
	return nil
}

// DecodeTrades reads a stream of JSONL trade rows and returns them in
// file order. Callers append them to a ledger, which restores the
// total (timestamp, sequence) order.
func DecodeTrades(r io.Reader) ([]Trade, error) {
	var trades []Trade
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var doc tradeDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("could not decode trade on line %d: %w", line, err)
		}
		var action Action
		switch doc.Command {
		case cmdBuy:
			action = ActionBuy
		case cmdSell:
			action = ActionSell
		default:
			return nil, fmt.Errorf("unknown command %q on line %d", doc.Command, line)
		}
		trades = append(trades, Trade{
			Fund:     doc.Fund,
			Ticker:   doc.Ticker,
			Action:   action,
			Shares:   doc.Quantity,
			Price:    M(doc.Price, doc.Currency),
			Time:     doc.Time,
			Sequence: doc.Sequence,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read trades: %w", err)
	}
	return trades, nil
}

// EncodeSnapshot writes a snapshot as a single JSON document.
// encoding/json sorts map keys, and every decimal is exact, so the
// same snapshot always encodes to the same bytes.
func EncodeSnapshot(w io.Writer, s *PortfolioSnapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("could not encode snapshot for %s: %w", s.Fund, err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("could not write snapshot for %s: %w", s.Fund, err)
	}
	return nil
}

// DecodeSnapshot reads a snapshot document.
func DecodeSnapshot(r io.Reader) (*PortfolioSnapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read snapshot: %w", err)
	}
	var s PortfolioSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("could not decode snapshot: %w", err)
	}
	if s.Positions == nil {
		s.Positions = make(map[string]Position)
	}
	if s.Cash == nil {
		s.Cash = make(map[string]Money)
	}
	return &s, nil
}
