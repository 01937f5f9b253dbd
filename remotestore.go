package fundledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/rs/zerolog"
)

// RemoteStore persists trades and snapshots against a remote ledger
// service over HTTP. It speaks the same JSONL documents as the file
// store, so decimal values round-trip as exact strings end-to-end.
type RemoteStore struct {
	base   string
	token  string
	client *http.Client
	log    zerolog.Logger
}

// NewRemoteStore creates a client for the remote ledger service at
// base (e.g. "https://ledger.example.com/api/v1").
func NewRemoteStore(base, token string, log zerolog.Logger) *RemoteStore {
	return &RemoteStore{
		base:   base,
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log.With().Str("store", "remote").Logger(),
	}
}

func (s *RemoteStore) url(parts ...string) string {
	u := s.base
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// do sends the request with auth and returns the body on 2xx.
func (s *RemoteStore) do(method, addr string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, addr, reader)
	if err != nil {
		return nil, err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, addr, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, addr, err)
	}
	s.log.Debug().Str("method", method).Str("url", addr).Int("status", resp.StatusCode).Msg("remote call")
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: %s: %s", method, addr, resp.Status, errorMessage(data))
	}
	return data, nil
}

// errorMessage probes an error payload for a human message, falling
// back to the raw body.
func errorMessage(body []byte) string {
	var obj any
	if err := json.Unmarshal(body, &obj); err != nil {
		return string(body)
	}
	jval, err := jsonpath.Get("$.error.message", obj)
	if err != nil {
		return string(body)
	}
	// jsonpath may return a single answer or a list of one.
	switch v := jval.(type) {
	case string:
		return v
	case []any:
		if len(v) == 1 {
			if msg, ok := v[0].(string); ok {
				return msg
			}
		}
	}
	return string(body)
}

// AppendTrade posts one JSONL trade row.
func (s *RemoteStore) AppendTrade(t Trade) error {
	var buf bytes.Buffer
	if err := EncodeTrade(&buf, t); err != nil {
		return err
	}
	_, err := s.do(http.MethodPost, s.url("funds", t.Fund, "trades"), buf.Bytes())
	return err
}

// LoadTrades fetches the fund's full trade log as JSONL.
func (s *RemoteStore) LoadTrades(fund string) ([]Trade, error) {
	data, err := s.do(http.MethodGet, s.url("funds", fund, "trades"), nil)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeTrades(bytes.NewReader(data))
}

// SaveSnapshot replaces the remote snapshot document. The replacement
// is a single PUT: the remote side swaps, it never patches.
func (s *RemoteStore) SaveSnapshot(snap *PortfolioSnapshot) error {
	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, snap); err != nil {
		return err
	}
	_, err := s.do(http.MethodPut, s.url("funds", snap.Fund, "snapshot"), buf.Bytes())
	return err
}

// LoadSnapshot fetches the remote snapshot document.
func (s *RemoteStore) LoadSnapshot(fund string) (*PortfolioSnapshot, error) {
	data, err := s.do(http.MethodGet, s.url("funds", fund, "snapshot"), nil)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(bytes.NewReader(data))
}

// Funds lists the funds known to the remote service.
func (s *RemoteStore) Funds() ([]string, error) {
	data, err := s.do(http.MethodGet, s.url("funds"), nil)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Funds []string `json:"funds"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("could not decode fund list: %w", err)
	}
	sort.Strings(doc.Funds)
	return doc.Funds, nil
}
