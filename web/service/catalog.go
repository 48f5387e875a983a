package service

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/juju/clock"
	"golang.org/x/text/cases"

	"github.com/pricedesk/pricedesk/caching"
	"github.com/pricedesk/pricedesk/database/model"
	"github.com/pricedesk/pricedesk/logger"
	"github.com/pricedesk/pricedesk/store"
	"github.com/pricedesk/pricedesk/util/common"
	"github.com/pricedesk/pricedesk/web/entity"
)

// SearchColumns are matched by Search.
var SearchColumns = []string{model.PriceNo, model.PriceSpec, model.PriceDescription}

// DisplayColumns are shown, in this order, when present in the sheet.
var DisplayColumns = []string{model.PriceSpec, model.PriceList, model.PriceDealer, model.PriceDescription, model.PriceOrderOnly}

var currencyColumns = map[string]bool{model.PriceList: true, model.PriceDealer: true}

// CatalogService serves the price sheet from a time-limited cache.
type CatalogService struct {
	workbook *Workbook
	cache    *caching.Cache[*store.Records]
}

func NewCatalogService(workbook *Workbook, ttl time.Duration, clk clock.Clock) *CatalogService {
	return &CatalogService{
		workbook: workbook,
		cache:    caching.New[*store.Records](ttl, clk),
	}
}

// Load returns the price sheet. Any failure yields an empty table and is
// not cached, so the next call tries the store again.
func (s *CatalogService) Load(ctx context.Context) *store.Records {
	records, err := s.cache.Get(ctx, s.read)
	if err != nil {
		logger.Warning("load price sheet:", err)
		return &store.Records{}
	}
	return records
}

func (s *CatalogService) read(ctx context.Context) (*store.Records, error) {
	doc, err := s.workbook.Open(ctx)
	if err != nil {
		return nil, err
	}
	sheet, err := doc.First(ctx)
	if err != nil {
		return nil, err
	}
	return sheet.ReadAll(ctx)
}

// Invalidate forces the next Load to read the store.
func (s *CatalogService) Invalidate() {
	s.cache.Invalidate()
}

// Search keeps the rows where any search column contains term, ignoring
// case. An empty term returns table unchanged.
func (s *CatalogService) Search(table *store.Records, term string) *store.Records {
	if term == "" || table == nil {
		return table
	}
	cols := make([]string, 0, len(SearchColumns))
	for _, c := range SearchColumns {
		if table.HasColumn(c) {
			cols = append(cols, c)
		}
	}
	// A Caser keeps state, so each search gets its own.
	fold := cases.Fold()
	needle := fold.String(term)
	out := &store.Records{Header: table.Header, Rows: make([]store.Record, 0)}
	for _, row := range table.Rows {
		for _, c := range cols {
			if strings.Contains(fold.String(row[c]), needle) {
				out.Rows = append(out.Rows, row)
				break
			}
		}
	}
	return out
}

// CleanCurrency strips everything but digits and dots from value and parses
// the rest. Digits of any script, full-width ones included, count. ok is
// false when nothing parseable remains.
func CleanCurrency(value string) (float64, bool) {
	digits := strings.Map(func(r rune) rune {
		if r == '.' {
			return r
		}
		if unicode.IsDigit(r) {
			return asciiDigit(r)
		}
		return -1
	}, value)
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// asciiDigit maps a decimal digit of any script to '0'..'9'. Decimal digits
// are laid out in contiguous runs of whole zero-to-nine blocks, so the
// offset from the start of the run gives the value.
func asciiDigit(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	start := r
	for unicode.IsDigit(start - 1) {
		start--
	}
	return '0' + (r-start)%10
}

// BuildView formats table for display. Columns missing from the sheet are
// left out; prices are rounded, comma-grouped and right-aligned, and blank
// when they cannot be parsed.
func BuildView(table *store.Records) *entity.PriceView {
	view := &entity.PriceView{}
	if table == nil {
		return view
	}
	cols := make([]string, 0, len(DisplayColumns))
	for _, c := range DisplayColumns {
		if !table.HasColumn(c) {
			continue
		}
		cols = append(cols, c)
		align := entity.AlignLeft
		if currencyColumns[c] {
			align = entity.AlignRight
		} else if c == model.PriceOrderOnly {
			align = entity.AlignCenter
		}
		view.Columns = append(view.Columns, entity.Column{Title: c, Align: align})
	}
	if len(cols) == 0 {
		return view
	}
	view.Rows = make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			if currencyColumns[c] {
				cells[i] = common.FormatAmount(CleanCurrency(row[c]))
			} else {
				cells[i] = row[c]
			}
		}
		view.Rows = append(view.Rows, cells)
	}
	return view
}
