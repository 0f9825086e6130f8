package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"parkpay/internal/models"
)

// Column names and status literals fixed by the entry-logger file format.
const (
	colPlate     = "Plate Number"
	colStatus    = "Payment Status"
	colTimestamp = "Timestamp"
	colAmount    = "Amount"

	statusUnpaid = "0"
	statusPaid   = "1"

	timeLayout = "2006-01-02 15:04:05"
)

// CSVStore keeps sessions in the shared comma-separated ledger file. Every
// operation re-reads the file so rows appended by the entry logger between
// calls are never lost; commits rewrite the whole file through a rename.
type CSVStore struct {
	path string

	plateIdx  int
	statusIdx int
	tsIdx     int
	amountIdx int // -1 when the header carries no Amount column
	minFields int
}

// OpenCSVStore validates the header and resolves column positions. A header
// missing a required column is fatal at startup, not per transaction.
func OpenCSVStore(path string) (*CSVStore, error) {
	header, _, err := readLedgerFile(path)
	if err != nil {
		return nil, err
	}

	s := &CSVStore{path: path}
	for _, col := range []struct {
		name string
		idx  *int
	}{
		{colPlate, &s.plateIdx},
		{colStatus, &s.statusIdx},
		{colTimestamp, &s.tsIdx},
	} {
		i := slices.Index(header, col.name)
		if i < 0 {
			return nil, fmt.Errorf("ledger: header missing column %q", col.name)
		}
		*col.idx = i
	}
	s.amountIdx = slices.Index(header, colAmount)
	s.minFields = max(s.plateIdx, s.statusIdx, s.tsIdx) + 1

	return s, nil
}

// FindLatestUnpaid scans the current file content for the plate's newest
// unpaid row.
func (s *CSVStore) FindLatestUnpaid(_ context.Context, plate string) (*models.ParkingSession, error) {
	_, rows, err := readLedgerFile(s.path)
	if err != nil {
		return nil, err
	}

	i, entryTime, err := s.latestUnpaid(rows, plate)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		return nil, ErrNoUnpaidSession
	}

	return &models.ParkingSession{
		Plate:     plate,
		EntryTime: entryTime,
		Status:    models.StatusUnpaid,
	}, nil
}

// CommitPayment re-reads the file, settles the plate's newest unpaid row and
// rewrites everything in one atomic replace. Rows it does not touch are
// written back verbatim.
func (s *CSVStore) CommitPayment(_ context.Context, plate string, amount decimal.Decimal) (bool, error) {
	header, rows, err := readLedgerFile(s.path)
	if err != nil {
		return false, err
	}

	i, _, err := s.latestUnpaid(rows, plate)
	if err != nil {
		return false, err
	}
	if i < 0 {
		return false, nil
	}

	row := rows[i]
	row[s.statusIdx] = statusPaid
	if s.amountIdx >= 0 {
		for len(row) <= s.amountIdx {
			row = append(row, "")
		}
		row[s.amountIdx] = amount.StringFixed(2)
	} else {
		row = append(row, amount.StringFixed(2))
	}
	rows[i] = row

	if err := s.writeAll(header, rows); err != nil {
		return false, err
	}
	return true, nil
}

// latestUnpaid returns the index and entry time of the plate's unpaid row
// with the greatest timestamp, or -1. Strict comparison keeps the earliest
// row on ties, so the choice is stable across re-reads.
func (s *CSVStore) latestUnpaid(rows [][]string, plate string) (int, time.Time, error) {
	best := -1
	var bestTime time.Time
	for i, row := range rows {
		if len(row) < s.minFields || row[s.plateIdx] != plate || row[s.statusIdx] != statusUnpaid {
			continue
		}
		ts, err := time.ParseInLocation(timeLayout, row[s.tsIdx], time.Local)
		if err != nil {
			return -1, time.Time{}, fmt.Errorf("ledger: row %d: parse timestamp: %w", i+2, err)
		}
		if best < 0 || ts.After(bestTime) {
			best = i
			bestTime = ts
		}
	}
	return best, bestTime, nil
}

func (s *CSVStore) writeAll(header []string, rows [][]string) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*")
	if err != nil {
		return fmt.Errorf("ledger: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	err = w.Write(header)
	if err == nil {
		err = w.WriteAll(rows)
	}
	if err != nil {
		tmp.Close()
		return fmt.Errorf("ledger: write rows: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("ledger: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ledger: close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("ledger: replace ledger file: %w", err)
	}
	return nil
}

func readLedgerFile(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // settled rows carry an extra amount field

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: read: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("ledger: %s has no header row", path)
	}
	return records[0], records[1:], nil
}
