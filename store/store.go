// Package store describes the workbook the price desk reads and writes: a
// named document holding titled worksheets of header-keyed text rows.
//
// Row numbers are 1-based and count the header row, so the first data row
// is row 2. Column numbers are 1-based.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNoCredentials is returned by a Connector that has no credential to
	// authenticate with.
	ErrNoCredentials = errors.New("no store credentials available")
	// ErrNotFound is returned for a missing document, worksheet or row.
	ErrNotFound = errors.New("not found")
)

// Record maps header names to cell text for one data row.
type Record map[string]string

// Records is the content of a worksheet: its header row and its data rows in
// sheet order.
type Records struct {
	Header []string
	Rows   []Record
}

// Empty reports whether there are no data rows.
func (r *Records) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// HasColumn reports whether name appears in the header.
func (r *Records) HasColumn(name string) bool {
	if r == nil {
		return false
	}
	for _, h := range r.Header {
		if h == name {
			return true
		}
	}
	return false
}

// Connector opens an authenticated session with the backing store.
type Connector interface {
	Connect(ctx context.Context) (Client, error)
}

// Client opens documents by name.
type Client interface {
	Open(ctx context.Context, name string) (Document, error)
}

// Document is a workbook of worksheets.
type Document interface {
	// Worksheet returns the tab with the given title or ErrNotFound.
	Worksheet(ctx context.Context, title string) (Table, error)
	// First returns the first tab of the document.
	First(ctx context.Context) (Table, error)
}

// Table is a single worksheet.
type Table interface {
	// ReadAll returns all data rows keyed by the header row.
	ReadAll(ctx context.Context) (*Records, error)
	// FindRow returns the row number of the first data row whose key
	// (first) column equals key exactly, or ErrNotFound.
	FindRow(ctx context.Context, key string) (int, error)
	// UpdateCell overwrites a single cell.
	UpdateCell(ctx context.Context, row, col int, value string) error
	// AppendRow adds a row after the last non-empty row.
	AppendRow(ctx context.Context, values []string) error
}

// RecordsFromRows turns raw rows into Records using the first row as the
// header. Blank header cells are dropped, short rows are padded with empty
// text and cells beyond the header are ignored. Fully blank rows are kept so
// that row numbers stay aligned with the sheet.
func RecordsFromRows(rows [][]string) *Records {
	out := &Records{}
	if len(rows) == 0 {
		return out
	}
	out.Header = make([]string, 0, len(rows[0]))
	cols := make([]int, 0, len(rows[0]))
	for i, h := range rows[0] {
		if h == "" {
			continue
		}
		out.Header = append(out.Header, h)
		cols = append(cols, i)
	}
	out.Rows = make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(cols))
		for j, col := range cols {
			if col < len(row) {
				rec[out.Header[j]] = row[col]
			} else {
				rec[out.Header[j]] = ""
			}
		}
		out.Rows = append(out.Rows, rec)
	}
	return out
}

// FindKeyRow returns the sheet row number of the first data row whose first
// cell equals key, or ErrNotFound.
func FindKeyRow(rows [][]string, key string) (int, error) {
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) > 0 && rows[i][0] == key {
			return i + 1, nil
		}
	}
	return 0, ErrNotFound
}
