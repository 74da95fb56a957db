package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"complaints/internal/core"
	ports "complaints/internal/sheets"
)

// SeedFile is the CSV read by NewFromFiles.
const SeedFile = "complaints.csv"

// Store keeps one snapshot in memory.
type Store struct {
	mu   sync.RWMutex
	snap *core.Snapshot
}

var (
	_ ports.SnapshotReader = (*Store)(nil)
	_ ports.SnapshotWriter = (*Store)(nil)
)

func New(snap *core.Snapshot) *Store {
	return &Store{snap: snap}
}

// NewFromRecords marks every column as present.
func NewFromRecords(records ...core.Complaint) *Store {
	present := make(map[core.Column]bool, len(core.Columns))
	for _, c := range core.Columns {
		present[c] = true
	}
	return New(core.NewSnapshot("memory", present, records))
}

// NewFromFiles loads base/complaints.csv. When the file does not exist a
// small built-in dataset is used instead.
func NewFromFiles(base string) (*Store, error) {
	path := filepath.Join(base, SeedFile)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewFromRecords(defaultSeed()...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	snap, err := ReadCSV("csv:"+path, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(snap), nil
}

// ReadCSV parses a CSV export of the complaints worksheet.
func ReadCSV(source string, r io.Reader) (*core.Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	all, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(all) == 0 {
		return nil, &core.SchemaError{Missing: []core.Column{core.ColState, core.ColCount}}
	}
	return core.ParseTable(source, all[0], all[1:])
}

// ReadSnapshot returns the current snapshot. Snapshots are never mutated
// after they are stored.
func (s *Store) ReadSnapshot(_ context.Context) (*core.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, fmt.Errorf("memory store: %w", core.ErrNoData)
	}
	return s.snap, nil
}

// ReplaceSnapshot swaps in snap.
func (s *Store) ReplaceSnapshot(_ context.Context, snap *core.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	return nil
}

func defaultSeed() []core.Complaint {
	return []core.Complaint{
		{State: "CO", Product: "Mortgage", Issue: "Trouble during payment process", SubmittedVia: "Web", CompanyResponse: "Closed with explanation", Timely: "Yes", MonthYear: "Jan 2023", Count: 3},
		{State: "CO", Product: "Credit card", Issue: "Fees or interest", SubIssue: "Problem with fees", SubmittedVia: "Phone", CompanyResponse: "In progress", Timely: "Yes", MonthYear: "Feb 2023", Count: 2},
		{State: "TX", Product: "Debt collection", Issue: "Attempts to collect debt not owed", SubIssue: "Debt was paid", SubmittedVia: "Web", CompanyResponse: "Closed with monetary relief", Timely: "No", MonthYear: "Jan 2023", Count: 4},
		{State: "TX", Product: "Mortgage", Issue: "Applying for a mortgage", SubIssue: "Credit decision", SubmittedVia: "Referral", CompanyResponse: "In progress", Timely: "Yes", MonthYear: "Mar 2023", Count: 1},
		{State: "CA", Product: "Credit reporting", Issue: "Incorrect information on your report", SubIssue: "Account status incorrect", SubmittedVia: "Web", CompanyResponse: "Closed with explanation", Timely: "Yes", MonthYear: "Feb 2023", Count: 5},
	}
}
