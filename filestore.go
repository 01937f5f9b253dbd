package fundledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	tradesSuffix   = ".trades.jsonl"
	snapshotSuffix = ".snapshot.json"
)

// FileStore persists the trade log and snapshot cache on the local
// filesystem: one append-only JSONL trade file and one snapshot
// document per fund.
type FileStore struct {
	dir string
	mu  sync.Mutex
	log zerolog.Logger
}

// NewFileStore opens (creating if needed) a file store rooted at dir.
func NewFileStore(dir string, log zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create store directory %q: %w", dir, err)
	}
	return &FileStore{dir: dir, log: log.With().Str("store", "file").Logger()}, nil
}

func (s *FileStore) tradesPath(fund string) string {
	return filepath.Join(s.dir, fund+tradesSuffix)
}

func (s *FileStore) snapshotPath(fund string) string {
	return filepath.Join(s.dir, fund+snapshotSuffix)
}

// AppendTrade appends one JSONL line to the fund's trade file.
func (s *FileStore) AppendTrade(t Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.tradesPath(t.Fund), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("could not open trade log for %s: %w", t.Fund, err)
	}
	defer f.Close()
	if err := EncodeTrade(f, t); err != nil {
		return err
	}
	return f.Sync()
}

// LoadTrades reads the fund's trade file. A missing file is an empty
// fund, not an error.
func (s *FileStore) LoadTrades(fund string) ([]Trade, error) {
	f, err := os.Open(s.tradesPath(fund))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open trade log for %s: %w", fund, err)
	}
	defer f.Close()
	return DecodeTrades(f)
}

// SaveSnapshot writes the snapshot to a temporary file and renames it
// over the previous one. The swap is atomic: a concurrent reader sees
// either the old or the new snapshot, never a partial write.
func (s *FileStore) SaveSnapshot(snap *PortfolioSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.snapshotPath(snap.Fund)
	tmp, err := os.CreateTemp(s.dir, snap.Fund+".snapshot.*.tmp")
	if err != nil {
		return fmt.Errorf("could not create snapshot temp file for %s: %w", snap.Fund, err)
	}
	defer os.Remove(tmp.Name())

	if err := EncodeSnapshot(tmp, snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close snapshot temp file for %s: %w", snap.Fund, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("could not swap snapshot for %s: %w", snap.Fund, err)
	}
	s.log.Debug().Str("fund", snap.Fund).Msg("snapshot saved")
	return nil
}

// LoadSnapshot reads the fund's snapshot document.
func (s *FileStore) LoadSnapshot(fund string) (*PortfolioSnapshot, error) {
	f, err := os.Open(s.snapshotPath(fund))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("could not open snapshot for %s: %w", fund, err)
	}
	defer f.Close()
	return DecodeSnapshot(f)
}

// Funds lists funds by their trade files.
func (s *FileStore) Funds() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("could not read store directory: %w", err)
	}
	var funds []string
	for _, e := range entries {
		if name := e.Name(); strings.HasSuffix(name, tradesSuffix) {
			funds = append(funds, strings.TrimSuffix(name, tradesSuffix))
		}
	}
	sort.Strings(funds)
	return funds, nil
}
