// Package entity defines the view structures handed from the services to the
// page templates.
package entity

// Align is the horizontal alignment of a table column.
type Align string

const (
	AlignLeft   Align = "left"
	AlignRight  Align = "right"
	AlignCenter Align = "center"
)

// Msg is a one-line notice shown above a form. Text is a translation key.
type Msg struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
}

// Column describes one displayed price column.
type Column struct {
	Title string `json:"title"`
	Align Align  `json:"align"`
}

// PriceView is the rendered form of the price sheet: columns in display order
// and the formatted text of each row.
type PriceView struct {
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Count returns the number of rows.
func (v *PriceView) Count() int {
	if v == nil {
		return 0
	}
	return len(v.Rows)
}
