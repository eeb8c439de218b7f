package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
)

// Writer appends rows to a tab-delimited file, one header row then one row
// per append. Appends are flushed immediately so a killed run keeps every
// completed trial.
type Writer struct {
	mu   sync.Mutex
	f    *os.File
	w    *csv.Writer
	rows int
}

func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write(Header()); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, err
	}
	return &Writer{f: f, w: w}, nil
}

func (wr *Writer) Append(r Row) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	if err := wr.w.Write(r.Strings()); err != nil {
		return err
	}
	wr.w.Flush()
	if err := wr.w.Error(); err != nil {
		return err
	}
	wr.rows++
	return nil
}

// Rows is the number of appended rows, excluding the header.
func (wr *Writer) Rows() int {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	return wr.rows
}

func (wr *Writer) Close() error {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	wr.w.Flush()
	if err := wr.w.Error(); err != nil {
		wr.f.Close()
		return err
	}
	return wr.f.Close()
}

// ReadRows loads a results file back as raw float columns keyed by header
// name, for the plot command.
func ReadRows(path string) (map[string][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("results file %s: empty", path)
	}

	header := records[0]
	cols := make(map[string][]float64, len(header))
	for _, name := range header {
		cols[name] = make([]float64, 0, len(records)-1)
	}
	for _, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("results file %s: ragged row (%d columns, want %d)",
				path, len(rec), len(header))
		}
		for j, field := range rec {
			var v float64
			if _, err := fmt.Sscanf(field, "%g", &v); err != nil {
				return nil, fmt.Errorf("results file %s: column %s: %w", path, header[j], err)
			}
			cols[header[j]] = append(cols[header[j]], v)
		}
	}
	return cols, nil
}
