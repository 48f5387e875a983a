package web

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricedesk/pricedesk/database"
	"github.com/pricedesk/pricedesk/database/model"
	"github.com/pricedesk/pricedesk/store"
	"github.com/pricedesk/pricedesk/store/local"
	"github.com/pricedesk/pricedesk/util/crypto"
	"github.com/pricedesk/pricedesk/web/service"
	"github.com/pricedesk/pricedesk/web/session"
)

const workbook = "prices"

type countingConnector struct {
	inner store.Connector

	mu    sync.Mutex
	calls int
}

func (c *countingConnector) Connect(ctx context.Context) (store.Client, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Connect(ctx)
}

func (c *countingConnector) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type okSender struct {
	sent map[string]string
}

func (s *okSender) SendPasswordReset(ctx context.Context, to, newPassword string) error {
	s.sent[to] = newPassword
	return nil
}

type harness struct {
	engine    *gin.Engine
	connector *countingConnector
	sender    *okSender
	users     store.Table
	cookies   map[string]*http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("PRICEDESK_SESSION_SECRET", "test-secret")
	ctx := context.Background()

	conn, err := database.Open(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	require.NoError(t, database.SeedWorkbook(conn, workbook))
	connector := &countingConnector{inner: local.NewConnector(conn)}

	client, err := connector.inner.Connect(ctx)
	require.NoError(t, err)
	doc, err := client.Open(ctx, workbook)
	require.NoError(t, err)
	users, err := doc.Worksheet(ctx, model.UsersSheet)
	require.NoError(t, err)
	hash, err := crypto.HashPassword("s3cret!")
	require.NoError(t, err)
	require.NoError(t, users.AppendRow(ctx, []string{"alice@example.com", hash, "Alice"}))
	prices, err := doc.First(ctx)
	require.NoError(t, err)
	require.NoError(t, prices.AppendRow(ctx, []string{"A-001", "FX5U-32MR", "$12,345", "9,800", "PLC", ""}))
	require.NoError(t, prices.AppendRow(ctx, []string{"B-002", "SDC-10", "500", "450", "motor", "V"}))

	wb := service.NewWorkbook(connector, workbook)
	sender := &okSender{sent: make(map[string]string)}
	auth := service.NewAuthService(wb, sender, service.NewAuditLogService(wb, nil))
	catalog := service.NewCatalogService(wb, time.Minute, nil)

	engine, err := NewServer(auth, catalog).initRouter()
	require.NoError(t, err)
	engine.GET("/boom", func(c *gin.Context) {
		panic("kaboom: secret backend detail")
	})

	return &harness{
		engine:    engine,
		connector: connector,
		sender:    sender,
		users:     users,
		cookies:   make(map[string]*http.Cookie),
	}
}

func (h *harness) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range h.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		h.cookies[c.Name] = c
	}
	return w
}

func (h *harness) login(password string) *httptest.ResponseRecorder {
	return h.do(http.MethodPost, "/login", url.Values{"email": {"alice@example.com"}, "password": {password}})
}

func TestAnonymousIsRedirected(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/prices", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = h.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/login"`)

	w = h.do(http.MethodGet, "/?tab=forgot", nil)
	assert.Contains(t, w.Body.String(), `action="/forgot"`)
}

func TestLoginAndSearch(t *testing.T) {
	h := newHarness(t)

	w := h.login("s3cret!")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/prices", w.Header().Get("Location"))

	w = h.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	w = h.do(http.MethodGet, "/prices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Alice")
	assert.Contains(t, body, "搜尋結果：共 2 筆")
	assert.Contains(t, body, `<td class="right">12,345</td>`)
	assert.NotContains(t, body, "A-001")
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = h.do(http.MethodGet, "/prices?q=fx5u", nil)
	body = w.Body.String()
	assert.Contains(t, body, "搜尋結果：共 1 筆")
	assert.Contains(t, body, "FX5U-32MR")
	assert.NotContains(t, body, "SDC-10")

	w = h.do(http.MethodGet, "/prices?q=nothing-here", nil)
	assert.Contains(t, w.Body.String(), "查無資料")

	w = h.do(http.MethodGet, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	w = h.do(http.MethodGet, "/prices", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/login", url.Values{"email": {""}, "password": {"x"}})
	assert.Contains(t, w.Body.String(), "請輸入 Email 與密碼")

	w = h.do(http.MethodPost, "/login", url.Values{"email": {"nobody@example.com"}, "password": {"x"}})
	assert.Contains(t, w.Body.String(), "此 Email 尚未註冊")

	w = h.login("wrong")
	assert.Contains(t, w.Body.String(), "密碼錯誤")
}

func TestLockoutAfterThreeFailures(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 2; i++ {
		w := h.login("wrong")
		assert.NotContains(t, w.Body.String(), `id="locked"`)
	}
	w := h.login("wrong")
	assert.Contains(t, w.Body.String(), `id="locked"`)
	assert.NotContains(t, w.Body.String(), `action="/login"`)

	before := h.connector.Calls()
	w = h.login("s3cret!")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="locked"`)
	assert.Equal(t, before, h.connector.Calls())

	w = h.do(http.MethodGet, "/", nil)
	assert.Contains(t, w.Body.String(), `id="locked"`)
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusSeeOther, h.login("s3cret!").Code)

	w := h.do(http.MethodPost, "/prices/password", url.Values{"newPassword": {""}})
	assert.Contains(t, w.Body.String(), "密碼不能為空")

	w = h.do(http.MethodPost, "/prices/password", url.Values{"newPassword": {strings.Repeat("p", 73)}})
	assert.Contains(t, w.Body.String(), "密碼過長，最多 72 個位元組")

	w = h.do(http.MethodPost, "/prices/password", url.Values{"newPassword": {"n3w-pass"}, "q": {"SDC"}})
	body := w.Body.String()
	assert.Contains(t, body, "密碼已更新！")
	assert.Contains(t, body, "搜尋結果：共 1 筆")

	records, err := h.users.ReadAll(context.Background())
	require.NoError(t, err)
	assert.True(t, crypto.CheckPassword(records.Rows[0][model.UserPassword], "n3w-pass"))
}

func TestForgotPassword(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/forgot", url.Values{"email": {" "}})
	assert.Contains(t, w.Body.String(), "請輸入 Email")

	w = h.do(http.MethodPost, "/forgot", url.Values{"email": {"ghost@example.com"}})
	assert.Contains(t, w.Body.String(), "此 Email 尚未註冊")

	w = h.do(http.MethodPost, "/forgot", url.Values{"email": {"alice@example.com"}})
	assert.Contains(t, w.Body.String(), "重置成功！新密碼已寄送到您的信箱。")

	mailed := h.sender.sent["alice@example.com"]
	require.NotEmpty(t, mailed)
	assert.Equal(t, http.StatusSeeOther, h.login(mailed).Code)
}

func TestRecoveryHidesDetail(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "系統暫時忙碌中，請重新整理或聯繫管理員。")
	assert.Contains(t, body, "事件編號：")
	assert.NotContains(t, body, "kaboom")
}

func TestEnglishPages(t *testing.T) {
	h := newHarness(t)
	h.cookies["lang"] = &http.Cookie{Name: "lang", Value: "en-US"}

	w := h.login("wrong")
	assert.Contains(t, w.Body.String(), "Wrong password")
	assert.Contains(t, w.Body.String(), `lang="en-US"`)
}

func TestSessionCookieSecureUnderTLS(t *testing.T) {
	t.Setenv("PRICEDESK_SESSION_SECRET", "test-secret")
	s := NewServer(nil, nil)
	s.tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	engine, err := s.initRouter()
	require.NoError(t, err)
	engine.GET("/touch", func(c *gin.Context) {
		state := session.Get(c)
		state.RecordFailure()
		require.NoError(t, session.Save(c, state))
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/touch", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			found = true
			assert.True(t, c.Secure)
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, found)
}

func TestSessionCookieNotSecureOverHTTP(t *testing.T) {
	h := newHarness(t)

	w := h.login("s3cret!")
	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			found = true
			assert.False(t, c.Secure)
		}
	}
	assert.True(t, found)
}

func TestFallbackSecretIsStable(t *testing.T) {
	t.Setenv("PRICEDESK_SESSION_SECRET", "")
	first := sessionSecret()
	assert.Len(t, first, 32)
	assert.Equal(t, first, sessionSecret())

	t.Setenv("PRICEDESK_SESSION_SECRET", "configured")
	assert.Equal(t, []byte("configured"), sessionSecret())
}
