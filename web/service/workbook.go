package service

import (
	"context"
	"fmt"

	"github.com/pricedesk/pricedesk/store"
)

// Workbook opens the configured document through a store connector. Every
// call reconnects through the connector, which may reuse its client.
type Workbook struct {
	connector store.Connector
	name      string
}

func NewWorkbook(connector store.Connector, name string) *Workbook {
	return &Workbook{connector: connector, name: name}
}

func (w *Workbook) Open(ctx context.Context) (store.Document, error) {
	client, err := w.connector.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	doc, err := client.Open(ctx, w.name)
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", w.name, err)
	}
	return doc, nil
}

// Worksheet opens the workbook and returns the named tab.
func (w *Workbook) Worksheet(ctx context.Context, title string) (store.Table, error) {
	doc, err := w.Open(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Worksheet(ctx, title)
}
