// Package local serves workbooks from the sqlite database so the desk can
// run without a Google account.
package local

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/pricedesk/pricedesk/database"
	"github.com/pricedesk/pricedesk/database/model"
	"github.com/pricedesk/pricedesk/store"
)

// Connector hands out clients over an open gorm connection.
type Connector struct {
	db *gorm.DB
}

// NewConnector wraps conn. A nil conn makes every Connect fail.
func NewConnector(conn *gorm.DB) *Connector {
	return &Connector{db: conn}
}

func (c *Connector) Connect(ctx context.Context) (store.Client, error) {
	if c.db == nil {
		return nil, errors.New("local database is not open")
	}
	return &client{db: c.db}, nil
}

type client struct {
	db *gorm.DB
}

func (c *client) Open(ctx context.Context, name string) (store.Document, error) {
	var count int64
	err := c.db.WithContext(ctx).Model(&model.Worksheet{}).Where("workbook = ?", name).Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", name, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("workbook %q: %w", name, store.ErrNotFound)
	}
	return &document{db: c.db, name: name}, nil
}

type document struct {
	db   *gorm.DB
	name string
}

func (d *document) Worksheet(ctx context.Context, title string) (store.Table, error) {
	ws := &model.Worksheet{}
	err := d.db.WithContext(ctx).Where("workbook = ? AND title = ?", d.name, title).First(ws).Error
	if database.IsNotFound(err) {
		return nil, fmt.Errorf("worksheet %q: %w", title, store.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("worksheet %q: %w", title, err)
	}
	return &table{db: d.db, id: ws.Id}, nil
}

func (d *document) First(ctx context.Context) (store.Table, error) {
	ws := &model.Worksheet{}
	err := d.db.WithContext(ctx).Where("workbook = ?", d.name).Order("sort_order, id").First(ws).Error
	if database.IsNotFound(err) {
		return nil, fmt.Errorf("first worksheet: %w", store.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("first worksheet: %w", err)
	}
	return &table{db: d.db, id: ws.Id}, nil
}

type table struct {
	db *gorm.DB
	id int
}

// rows loads the worksheet as a dense grid; positions with no stored row
// come back empty.
func (t *table) rows(ctx context.Context) ([][]string, error) {
	var stored []model.SheetRow
	err := t.db.WithContext(ctx).Where("worksheet_id = ?", t.id).Order("position").Find(&stored).Error
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, nil
	}
	grid := make([][]string, stored[len(stored)-1].Position)
	for _, r := range stored {
		cells, err := decodeCells(r.Cells)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r.Position, err)
		}
		grid[r.Position-1] = cells
	}
	return grid, nil
}

func (t *table) ReadAll(ctx context.Context) (*store.Records, error) {
	grid, err := t.rows(ctx)
	if err != nil {
		return nil, err
	}
	return store.RecordsFromRows(grid), nil
}

func (t *table) FindRow(ctx context.Context, key string) (int, error) {
	grid, err := t.rows(ctx)
	if err != nil {
		return 0, err
	}
	return store.FindKeyRow(grid, key)
}

func (t *table) UpdateCell(ctx context.Context, row, col int, value string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("invalid cell R%dC%d", row, col)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := &model.SheetRow{}
		err := tx.Where("worksheet_id = ? AND position = ?", t.id, row).First(r).Error
		if database.IsNotFound(err) {
			r = &model.SheetRow{WorksheetId: t.id, Position: row, Cells: "[]"}
		} else if err != nil {
			return err
		}
		cells, err := decodeCells(r.Cells)
		if err != nil {
			return err
		}
		for len(cells) < col {
			cells = append(cells, "")
		}
		cells[col-1] = value
		encoded, err := json.Marshal(cells)
		if err != nil {
			return err
		}
		r.Cells = string(encoded)
		return tx.Save(r).Error
	})
}

func (t *table) AppendRow(ctx context.Context, values []string) error {
	encoded, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int
		err := tx.Model(&model.SheetRow{}).
			Where("worksheet_id = ?", t.id).
			Select("COALESCE(MAX(position), 0)").
			Row().
			Scan(&last)
		if err != nil {
			return err
		}
		return tx.Create(&model.SheetRow{WorksheetId: t.id, Position: last + 1, Cells: string(encoded)}).Error
	})
}

func decodeCells(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, err
	}
	return cells, nil
}
