package sheets

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/pricedesk/pricedesk/config"
	"github.com/pricedesk/pricedesk/store"
)

const testKey = `{"type":"service_account","client_email":"desk@project.iam.gserviceaccount.com"}`

func TestColumnName(t *testing.T) {
	tests := map[int]string{1: "A", 2: "B", 26: "Z", 27: "AA", 52: "AZ", 53: "BA", 702: "ZZ", 703: "AAA"}
	for col, expected := range tests {
		assert.Equal(t, expected, columnName(col), "column %d", col)
	}
}

func TestCellRange(t *testing.T) {
	assert.Equal(t, "'Users'!B7", cellRange("Users", 7, 2))
	assert.Equal(t, "'Dealer''s'!A1", cellRange("Dealer's", 1, 1))
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `it\'s a \\ test`, escapeQuery(`it's a \ test`))
}

func TestToGrid(t *testing.T) {
	grid := toGrid([][]interface{}{{"a", 1.5, nil}, {}})
	assert.Equal(t, [][]string{{"a", "1.5", ""}, {}}, grid)
}

func TestResolveCredentials(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "service_account.json")
	require.NoError(t, os.WriteFile(file, []byte(testKey), 0o600))

	t.Run("environment wins over file", func(t *testing.T) {
		key, source, err := ResolveCredentials(config.SheetsConfig{CredentialJSON: testKey, CredentialFile: file})
		require.NoError(t, err)
		assert.Equal(t, SourceEnv, source)
		assert.JSONEq(t, testKey, string(key))
	})

	t.Run("file fallback", func(t *testing.T) {
		_, source, err := ResolveCredentials(config.SheetsConfig{CredentialFile: file})
		require.NoError(t, err)
		assert.Equal(t, SourceFile, source)
	})

	t.Run("nothing configured fails closed", func(t *testing.T) {
		_, _, err := ResolveCredentials(config.SheetsConfig{CredentialFile: filepath.Join(dir, "missing.json")})
		assert.ErrorIs(t, err, store.ErrNoCredentials)

		_, _, err = ResolveCredentials(config.SheetsConfig{})
		assert.ErrorIs(t, err, store.ErrNoCredentials)
	})

	t.Run("malformed environment key", func(t *testing.T) {
		_, _, err := ResolveCredentials(config.SheetsConfig{CredentialJSON: `{"type":"service_account"}`})
		require.Error(t, err)
		assert.NotErrorIs(t, err, store.ErrNoCredentials)
	})
}

func TestConnectWithoutCredentials(t *testing.T) {
	c := NewConnector(&config.SheetsConfig{CredentialFile: filepath.Join(t.TempDir(), "none.json")})
	client, err := c.Connect(context.Background())
	assert.Nil(t, client)
	assert.ErrorIs(t, err, store.ErrNoCredentials)
}

// fakeSheets serves the handful of Sheets API calls the table makes.
type fakeSheets struct {
	mu       sync.Mutex
	updates  []string
	appends  []string
	lastBody string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, _ := io.ReadAll(r.Body)
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && path == "/v4/spreadsheets/sheet-id":
		io.WriteString(w, `{"sheets":[{"properties":{"title":"Users","index":1}},{"properties":{"title":"sheet1","index":0}}]}`)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/v4/spreadsheets/sheet-id/values/"):
		io.WriteString(w, `{"range":"Users!A1:C3","majorDimension":"ROWS","values":[["email","password","name"],["a@x.com","h1","Alice"],["b@x.com","h2"]]}`)
	case r.Method == http.MethodPut:
		f.updates = append(f.updates, strings.TrimPrefix(path, "/v4/spreadsheets/sheet-id/values/"))
		f.lastBody = string(body)
		io.WriteString(w, `{}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		f.appends = append(f.appends, strings.TrimPrefix(path, "/v4/spreadsheets/sheet-id/values/"))
		f.lastBody = string(body)
		io.WriteString(w, `{}`)
	default:
		http.NotFound(w, r)
	}
}

func TestTableAgainstFakeAPI(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSheets{}
	ts := httptest.NewServer(fake)
	defer ts.Close()

	client, err := NewClient(ctx, "sheet-id",
		option.WithEndpoint(ts.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(ts.Client()),
	)
	require.NoError(t, err)

	doc, err := client.Open(ctx, "ignored when id is fixed")
	require.NoError(t, err)

	first, err := doc.First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sheet1", first.(*table).title)

	_, err = doc.Worksheet(ctx, "Logs")
	assert.ErrorIs(t, err, store.ErrNotFound)

	users, err := doc.Worksheet(ctx, "Users")
	require.NoError(t, err)

	records, err := users.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records.Rows, 2)
	assert.Equal(t, "Alice", records.Rows[0]["name"])
	assert.Equal(t, "", records.Rows[1]["name"])

	row, err := users.FindRow(ctx, "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, 3, row)

	require.NoError(t, users.UpdateCell(ctx, row, 2, "new-hash"))
	require.NoError(t, users.AppendRow(ctx, []string{"c@x.com", "h3", "Carol"}))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"'Users'!B3"}, fake.updates)
	assert.Equal(t, []string{"'Users':append"}, fake.appends)
	assert.Contains(t, fake.lastBody, "Carol")
}
