// Package tabular reads and writes datasets as CSV documents with a header
// row.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/valpere/bntran/internal/dataset"
)

var bom = []byte("\ufeff")

var (
	ErrNoHeader        = errors.New("CSV has no header row")
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// Read parses a CSV document whose first record names the columns. A
// leading UTF-8 byte order mark is dropped. Rows may be shorter than the
// header; the missing cells are left absent.
func Read(r io.Reader) (*dataset.Dataset, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		br.Discard(len(bom))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		seen[name] = true
		columns[i] = name
	}

	ds := dataset.New(columns...)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		ds.AddRow(record...)
	}
	return ds, nil
}

func ReadFile(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input CSV: %w", err)
	}
	defer f.Close()
	return Read(f)
}

type WriteOptions struct {
	// BOM prefixes the output with a UTF-8 byte order mark so spreadsheet
	// applications pick the right encoding.
	BOM bool
}

// Write renders ds with its header row. Absent cells are written empty.
func Write(w io.Writer, ds *dataset.Dataset, opts WriteOptions) error {
	if opts.BOM {
		if _, err := w.Write(bom); err != nil {
			return fmt.Errorf("failed to write output CSV: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(ds.Columns); err != nil {
		return fmt.Errorf("failed to write output CSV: %w", err)
	}

	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, col := range ds.Columns {
			record[i] = row[col]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write output CSV: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush output CSV: %w", err)
	}
	return nil
}

func WriteFile(path string, ds *dataset.Dataset, opts WriteOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output CSV: %w", err)
	}
	if err := Write(f, ds, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
