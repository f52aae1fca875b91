package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"revenue-feature-lab/internal/domain"
)

// RatesFileName is the rate file looked up inside an input directory.
const RatesFileName = "fx_rates.csv"

// DirSource reads a directory of daily transaction files named
// YYYY-MM-DD.csv plus an optional fx_rates.csv.
type DirSource struct {
	Dir string
}

// NewDirSource creates a source over dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// DailyFiles returns the daily transaction files in ascending date order.
// Files whose name is not a valid date are ignored.
func (s *DirSource) DailyFiles() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		if _, err := time.Parse(time.DateOnly, strings.TrimSuffix(e.Name(), ".csv")); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(s.Dir, n)
	}
	return paths, nil
}

// Transactions concatenates every daily file in date order.
func (s *DirSource) Transactions(ctx context.Context) ([]*domain.RawTransaction, error) {
	paths, err := s.DailyFiles()
	if err != nil {
		return nil, err
	}
	var out []*domain.RawTransaction
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txs, err := readFile(p, ReadTransactions)
		if err != nil {
			return nil, err
		}
		out = append(out, txs...)
	}
	return out, nil
}

// Rates reads fx_rates.csv. A missing file yields no rates; runs whose
// rows are all in the base currency still succeed.
func (s *DirSource) Rates(ctx context.Context) ([]*domain.ExchangeRate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rates, err := readFile(filepath.Join(s.Dir, RatesFileName), ReadRates)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return rates, err
}

func readFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return out, nil
}

var _ Source = (*DirSource)(nil)
