package bulkupload

import (
	"encoding/csv"
	"io"
)

const (
	reportStatus = "status"
	reportError  = "error"
)

// ReportColumns is the header of the result report: the input columns plus
// status and error. An input column already named status or error is
// reused and carries the row outcome.
func ReportColumns(table *Table) []string {
	cols := append([]string(nil), table.Columns...)
	for _, extra := range []string{reportStatus, reportError} {
		if columnIndex(cols, extra) < 0 {
			cols = append(cols, extra)
		}
	}
	return cols
}

func columnIndex(cols []string, name string) int {
	for i, c := range cols {
		if normalizeColumn(c) == name {
			return i
		}
	}
	return -1
}

// WriteReport writes results as CSV, one line per input row after a header
func WriteReport(w io.Writer, table *Table, results []Result) error {
	cols := ReportColumns(table)
	statusIdx := columnIndex(cols, reportStatus)
	errorIdx := columnIndex(cols, reportError)

	writer := csv.NewWriter(w)
	if err := writer.Write(cols); err != nil {
		return err
	}
	for _, r := range results {
		record := make([]string, len(cols))
		copy(record, r.Row.Values)
		record[statusIdx] = string(r.Status)
		record[errorIdx] = r.Error
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
