// Package sheets reads and writes the workbook through the Google Sheets
// API, authenticating as a service account.
package sheets

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/juju/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/pricedesk/pricedesk/config"
	"github.com/pricedesk/pricedesk/logger"
	"github.com/pricedesk/pricedesk/store"
)

// Scopes requested for the service account.
var Scopes = []string{
	gsheets.SpreadsheetsScope,
	drive.DriveReadonlyScope,
}

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// Connector authenticates lazily and reuses the client once it is built.
type Connector struct {
	cfg config.SheetsConfig

	mu     sync.Mutex
	client *Client
}

// NewConnector returns a connector for the given configuration.
func NewConnector(cfg *config.SheetsConfig) *Connector {
	return &Connector{cfg: *cfg}
}

// Connect resolves credentials and builds the API client. It fails closed
// with store.ErrNoCredentials when no key is available.
func (c *Connector) Connect(ctx context.Context) (store.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}

	key, source, err := ResolveCredentials(c.cfg)
	if err != nil {
		return nil, errors.Trace(err)
	}
	jwtCfg, err := google.JWTConfigFromJSON(key, Scopes...)
	if err != nil {
		return nil, errors.Annotate(err, "parsing service account key")
	}
	// The token source outlives the request that triggered the connect.
	tokenSource := jwtCfg.TokenSource(context.Background())

	client, err := NewClient(context.Background(), c.cfg.SpreadsheetID, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, errors.Trace(err)
	}
	logger.Infof("connected to Google Sheets as %s (credentials from %s)", jwtCfg.Email, source)
	c.client = client
	return client, nil
}

// Client opens spreadsheets by title. Title lookups are memoized.
type Client struct {
	sheets        *gsheets.Service
	drive         *drive.Service
	spreadsheetID string

	mu  sync.Mutex
	ids map[string]string
}

// NewClient builds the Sheets and Drive services with the given options.
// When spreadsheetID is set every Open resolves to it and Drive is never
// queried.
func NewClient(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	sheetsService, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Annotate(err, "creating sheets service")
	}
	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Annotate(err, "creating drive service")
	}
	return &Client{
		sheets:        sheetsService,
		drive:         driveService,
		spreadsheetID: spreadsheetID,
		ids:           make(map[string]string),
	}, nil
}

// Open returns the spreadsheet with the given title and its worksheet list.
func (c *Client) Open(ctx context.Context, name string) (store.Document, error) {
	id, err := c.lookup(ctx, name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ss, err := c.sheets.Spreadsheets.Get(id).
		Fields(googleapi.Field("sheets.properties(title,index)")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Annotatef(err, "reading spreadsheet %q", name)
	}
	props := make([]*gsheets.SheetProperties, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			props = append(props, s.Properties)
		}
	}
	sort.SliceStable(props, func(i, j int) bool { return props[i].Index < props[j].Index })
	titles := make([]string, len(props))
	for i, p := range props {
		titles[i] = p.Title
	}
	return &document{service: c.sheets, id: id, titles: titles}, nil
}

func (c *Client) lookup(ctx context.Context, name string) (string, error) {
	if c.spreadsheetID != "" {
		return c.spreadsheetID, nil
	}
	c.mu.Lock()
	id, ok := c.ids[name]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), spreadsheetMimeType)
	list, err := c.drive.Files.List().
		Q(q).
		Fields(googleapi.Field("files(id,name)")).
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", errors.Annotatef(err, "searching spreadsheet %q", name)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("spreadsheet %q: %w", name, store.ErrNotFound)
	}
	id = list.Files[0].Id

	c.mu.Lock()
	c.ids[name] = id
	c.mu.Unlock()
	return id, nil
}

type document struct {
	service *gsheets.Service
	id      string
	titles  []string
}

func (d *document) Worksheet(ctx context.Context, title string) (store.Table, error) {
	for _, t := range d.titles {
		if t == title {
			return &table{service: d.service, id: d.id, title: t}, nil
		}
	}
	return nil, fmt.Errorf("worksheet %q: %w", title, store.ErrNotFound)
}

func (d *document) First(ctx context.Context) (store.Table, error) {
	if len(d.titles) == 0 {
		return nil, fmt.Errorf("first worksheet: %w", store.ErrNotFound)
	}
	return &table{service: d.service, id: d.id, title: d.titles[0]}, nil
}

type table struct {
	service *gsheets.Service
	id      string
	title   string
}

func (t *table) grid(ctx context.Context) ([][]string, error) {
	resp, err := t.service.Spreadsheets.Values.Get(t.id, quoteTitle(t.title)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Annotatef(err, "reading worksheet %q", t.title)
	}
	return toGrid(resp.Values), nil
}

func (t *table) ReadAll(ctx context.Context) (*store.Records, error) {
	grid, err := t.grid(ctx)
	if err != nil {
		return nil, err
	}
	return store.RecordsFromRows(grid), nil
}

func (t *table) FindRow(ctx context.Context, key string) (int, error) {
	grid, err := t.grid(ctx)
	if err != nil {
		return 0, err
	}
	return store.FindKeyRow(grid, key)
}

func (t *table) UpdateCell(ctx context.Context, row, col int, value string) error {
	if row < 1 || col < 1 {
		return errors.NotValidf("cell R%dC%d", row, col)
	}
	rng := cellRange(t.title, row, col)
	vr := &gsheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := t.service.Spreadsheets.Values.Update(t.id, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return errors.Annotatef(err, "updating %s", rng)
}

func (t *table) AppendRow(ctx context.Context, values []string) error {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	vr := &gsheets.ValueRange{Values: [][]interface{}{row}}
	_, err := t.service.Spreadsheets.Values.Append(t.id, quoteTitle(t.title), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return errors.Annotatef(err, "appending to worksheet %q", t.title)
}

func toGrid(values [][]interface{}) [][]string {
	grid := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		grid[i] = cells
	}
	return grid
}

// quoteTitle quotes a worksheet title for use in A1 notation.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// cellRange returns the A1 range of a single cell, e.g. 'Users'!B7.
func cellRange(title string, row, col int) string {
	return quoteTitle(title) + "!" + columnName(col) + strconv.Itoa(row)
}

// columnName converts a 1-based column number to letters: 1 → A, 27 → AA.
func columnName(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
