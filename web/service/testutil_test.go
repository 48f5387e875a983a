package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pricedesk/pricedesk/database"
	"github.com/pricedesk/pricedesk/database/model"
	"github.com/pricedesk/pricedesk/store"
	"github.com/pricedesk/pricedesk/store/local"
	"github.com/pricedesk/pricedesk/util/crypto"
)

const testWorkbook = "prices"

// countingConnector counts connects and can be switched to fail.
type countingConnector struct {
	inner store.Connector

	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingConnector) Connect(ctx context.Context) (store.Client, error) {
	c.mu.Lock()
	c.calls++
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.inner.Connect(ctx)
}

func (c *countingConnector) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeSender records sent passwords or fails with err.
type fakeSender struct {
	err  error
	sent map[string]string
}

func (f *fakeSender) SendPasswordReset(ctx context.Context, to, newPassword string) error {
	if f.err != nil {
		return f.err
	}
	if f.sent == nil {
		f.sent = make(map[string]string)
	}
	f.sent[to] = newPassword
	return nil
}

type fixture struct {
	conn      *gorm.DB
	connector *countingConnector
	workbook  *Workbook
	doc       store.Document
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.SeedWorkbook(conn, testWorkbook))

	connector := &countingConnector{inner: local.NewConnector(conn)}
	wb := NewWorkbook(connector, testWorkbook)
	doc, err := wb.Open(context.Background())
	require.NoError(t, err)
	return &fixture{conn: conn, connector: connector, workbook: wb, doc: doc}
}

func (f *fixture) table(t *testing.T, title string) store.Table {
	t.Helper()
	tbl, err := f.doc.Worksheet(context.Background(), title)
	require.NoError(t, err)
	return tbl
}

func (f *fixture) addUser(t *testing.T, email, password, name string) {
	t.Helper()
	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)
	require.NoError(t, f.table(t, model.UsersSheet).AppendRow(context.Background(), []string{email, hash, name}))
}

func (f *fixture) storedHash(t *testing.T, email string) string {
	t.Helper()
	records, err := f.table(t, model.UsersSheet).ReadAll(context.Background())
	require.NoError(t, err)
	for _, r := range records.Rows {
		if r[model.UserEmail] == email {
			return r[model.UserPassword]
		}
	}
	t.Fatalf("user %s not found", email)
	return ""
}

func (f *fixture) logs(t *testing.T) []store.Record {
	t.Helper()
	records, err := f.table(t, model.LogsSheet).ReadAll(context.Background())
	require.NoError(t, err)
	return records.Rows
}

var errOffline = errors.New("store offline")
