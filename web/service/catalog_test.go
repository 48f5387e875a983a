package service

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricedesk/pricedesk/database/model"
	"github.com/pricedesk/pricedesk/store"
	"github.com/pricedesk/pricedesk/web/entity"
)

func priceTable() *store.Records {
	return store.RecordsFromRows([][]string{
		model.PriceHeader,
		{"A-001", "FX5U-32MR", "$12,345.50", "9,800", "PLC main unit", ""},
		{"fx5u-b", "Cable", "120", "N/A", "for fx5u units", "V"},
		{"S-100", "SDC motor", "", "1,000", "servo 馬達", ""},
	})
}

func TestCleanCurrency(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"$1,234.50", 1234.5, true},
		{"NT$ 980", 980, true},
		{"", 0, false},
		{"N/A", 0, false},
		{"nan", 0, false},
		{"1.2.3", 0, false},
		{".", 0, false},
		{"１２３４", 1234, true},
		{"NT$ 1,２３４", 1234, true},
		{"＄９８０.５", 980.5, true},
		{"٣٤٥", 345, true},
		{"𝟏𝟐", 12, true},
	}
	for _, tt := range tests {
		got, ok := CleanCurrency(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		if tt.wantOK {
			assert.InDelta(t, tt.want, got, 1e-9, tt.in)
		}
	}
}

func TestBuildViewFullWidthPrice(t *testing.T) {
	view := BuildView(store.RecordsFromRows([][]string{
		{model.PriceSpec, model.PriceList},
		{"FX5U-32MR", "NT$ 1,２３４"},
	}))
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "1,234", view.Rows[0][1])
}

func TestSearch(t *testing.T) {
	s := &CatalogService{}
	table := priceTable()

	assert.Same(t, table, s.Search(table, ""))

	found := s.Search(table, "FX5U")
	require.Len(t, found.Rows, 2)
	assert.Equal(t, "A-001", found.Rows[0][model.PriceNo])
	assert.Equal(t, "fx5u-b", found.Rows[1][model.PriceNo])
	assert.Equal(t, table.Header, found.Header)

	assert.Len(t, s.Search(table, "馬達").Rows, 1)
	assert.Len(t, s.Search(table, "s-100").Rows, 1)
	// list price is not a search column
	assert.Empty(t, s.Search(table, "12,345").Rows)
	assert.Empty(t, s.Search(table, "(").Rows)

	noSearchCols := store.RecordsFromRows([][]string{{"牌價"}, {"FX5U"}})
	assert.Empty(t, s.Search(noSearchCols, "FX5U").Rows)
}

func TestBuildView(t *testing.T) {
	view := BuildView(priceTable())

	require.Len(t, view.Columns, 5)
	assert.Equal(t, entity.Column{Title: model.PriceSpec, Align: entity.AlignLeft}, view.Columns[0])
	assert.Equal(t, entity.AlignRight, view.Columns[1].Align)
	assert.Equal(t, entity.AlignRight, view.Columns[2].Align)
	assert.Equal(t, entity.AlignCenter, view.Columns[4].Align)

	require.Equal(t, 3, view.Count())
	assert.Equal(t, []string{"FX5U-32MR", "12,346", "9,800", "PLC main unit", ""}, view.Rows[0])
	assert.Equal(t, []string{"Cable", "120", "", "for fx5u units", "V"}, view.Rows[1])
	assert.Equal(t, "", view.Rows[2][1])
}

func TestBuildViewMissingColumns(t *testing.T) {
	view := BuildView(store.RecordsFromRows([][]string{{"NO.", "說明"}, {"1", "x"}}))
	require.Len(t, view.Columns, 1)
	assert.Equal(t, model.PriceDescription, view.Columns[0].Title)
	assert.Equal(t, [][]string{{"x"}}, view.Rows)

	empty := BuildView(store.RecordsFromRows([][]string{{"NO."}, {"1"}}))
	assert.Empty(t, empty.Columns)
	assert.Zero(t, empty.Count())
}

func TestLoadIsCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sheet, err := f.doc.First(ctx)
	require.NoError(t, err)
	require.NoError(t, sheet.AppendRow(ctx, []string{"A-001", "FX5U", "100", "90", "", ""}))

	clk := testclock.NewClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	catalog := NewCatalogService(f.workbook, 10*time.Minute, clk)

	first := catalog.Load(ctx)
	require.Len(t, first.Rows, 1)
	calls := f.connector.Calls()

	require.NoError(t, sheet.AppendRow(ctx, []string{"A-002", "FX3U", "100", "90", "", ""}))
	clk.Advance(5 * time.Minute)
	second := catalog.Load(ctx)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, f.connector.Calls())

	clk.Advance(5 * time.Minute)
	third := catalog.Load(ctx)
	assert.Len(t, third.Rows, 2)
	assert.Equal(t, calls+1, f.connector.Calls())

	require.NoError(t, sheet.AppendRow(ctx, []string{"A-003", "FX2N", "100", "90", "", ""}))
	catalog.Invalidate()
	assert.Len(t, catalog.Load(ctx).Rows, 3)
}

func TestLoadFailsSoft(t *testing.T) {
	f := newFixture(t)
	f.connector.err = errOffline
	catalog := NewCatalogService(f.workbook, time.Minute, testclock.NewClock(time.Now()))

	records := catalog.Load(context.Background())
	require.NotNil(t, records)
	assert.True(t, records.Empty())

	f.connector.err = nil
	catalog.Load(context.Background())
	assert.Equal(t, 3, f.connector.Calls())
}
