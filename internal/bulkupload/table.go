package bulkupload

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is an uploaded sheet: the header as written and one Row per record
type Table struct {
	Columns []string
	Rows    []Row
}

// Row is one input record. Values line up with Table.Columns.
type Row struct {
	Line   int
	Values []string
	fields map[string]string
}

// Get returns the trimmed value of column name, "" when absent.
// Column names are matched case-insensitively.
func (r Row) Get(name string) string {
	return r.fields[normalizeColumn(name)]
}

// Has reports whether the table carries column name, even when this row
// leaves it empty.
func (r Row) Has(name string) bool {
	_, ok := r.fields[normalizeColumn(name)]
	return ok
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func newTable(header []string) *Table {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}
	return &Table{Columns: cols}
}

func (t *Table) add(line int, record []string) {
	row := Row{
		Line:   line,
		Values: make([]string, len(t.Columns)),
		fields: make(map[string]string, len(t.Columns)),
	}
	for i, col := range t.Columns {
		if i < len(record) {
			row.Values[i] = strings.TrimSpace(record[i])
		}
		row.fields[normalizeColumn(col)] = row.Values[i]
	}
	t.Rows = append(t.Rows, row)
}

// ReadTable decodes an uploaded file. Files named *.xlsx are read as Excel
// workbooks (first sheet), anything else as UTF-8 CSV. The first row is the
// header. A file with no header yields an empty table.
func ReadTable(filename string, r io.Reader) (*Table, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return readXLSX(r)
	}
	return readCSV(r)
}

func readCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	table := newTable(header)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		line, _ := reader.FieldPos(0)
		table.add(line, record)
	}
	return table, nil
}

func readXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}

	table := newTable(rows[0])
	for i, record := range rows[1:] {
		if isBlank(record) {
			continue
		}
		table.add(i+2, record)
	}
	return table, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
