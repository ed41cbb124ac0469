package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/wishlist/internal/host"
	"github.com/Kerhoff/wishlist/internal/miniapp"
	"github.com/Kerhoff/wishlist/internal/render"
	"github.com/Kerhoff/wishlist/internal/storage"
	"github.com/Kerhoff/wishlist/pkg/logger"
)

type testServer struct {
	handler http.Handler
	cookie  *http.Cookie
}

func newTestServer(t *testing.T, cfg miniapp.Config) *testServer {
	t.Helper()
	log := logger.Discard()
	ls, err := storage.NewFile(filepath.Join(t.TempDir(), "ls.yaml"))
	require.NoError(t, err)
	renderer, err := render.New()
	require.NoError(t, err)

	manager := miniapp.NewManager(cfg, host.NewAdapter(nil, ls, 123456, log), ls, log)
	t.Cleanup(manager.Close)
	return &testServer{handler: NewServer(manager, renderer, log).Handler()}
}

// do sends a request carrying the session cookie and keeps any cookie the
// server hands back.
func (ts *testServer) do(t *testing.T, method, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if ts.cookie != nil {
		req.AddCookie(ts.cookie)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			ts.cookie = c
		}
	}
	return rec
}

func (ts *testServer) state(t *testing.T) appStateResponse {
	t.Helper()
	rec := ts.do(t, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st appStateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, miniapp.Config{Demo: true})
	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestIndex_StartsDemoSession(t *testing.T) {
	ts := newTestServer(t, miniapp.Config{Demo: true})

	rec := ts.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ts.cookie)
	assert.True(t, ts.cookie.HttpOnly)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	assert.Contains(t, body, "Demo Mode")
	assert.Equal(t, 3, strings.Count(body, `class="wish-card`))
	assert.Equal(t, 1, strings.Count(body, `class="tab-content`))

	first := ts.cookie.Value
	ts.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, first, ts.cookie.Value)
}

func TestTab_SwitchMakesNoBackendCall(t *testing.T) {
	var calls atomic.Int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer backend.Close()

	ts := newTestServer(t, miniapp.Config{BackendURL: backend.URL, APIPath: "/api", Timeout: time.Second})
	ts.do(t, http.MethodGet, "/", nil)
	before := calls.Load()
	require.Positive(t, before)

	rec := ts.do(t, http.MethodGet, "/tabs/social?fragment=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, before, calls.Load())

	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, `class="tab-content`))
	assert.Contains(t, body, `data-tab="social"`)
	assert.NotContains(t, body, "<html")

	assert.Equal(t, "social", string(ts.state(t).Tab))

	rec = ts.do(t, http.MethodGet, "/tabs/admin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestState_ListsNeverNull(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	ts := newTestServer(t, miniapp.Config{BackendURL: backend.URL, APIPath: "/api", Timeout: time.Second})
	ts.do(t, http.MethodGet, "/", nil)
	rec := ts.do(t, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, field := range []string{"wishes", "friends", "requests", "notifications"} {
		assert.Contains(t, body, `"`+field+`":[]`)
	}
	assert.NotContains(t, body, "null")
}

func TestWithoutSession_OnlyIndexStartsOne(t *testing.T) {
	var calls atomic.Int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer backend.Close()

	ts := newTestServer(t, miniapp.Config{BackendURL: backend.URL, APIPath: "/api", Timeout: time.Second})

	requests := []struct {
		method string
		path   string
		form   url.Values
	}{
		{http.MethodPost, "/wishes", url.Values{"title": {"Bike"}}},
		{http.MethodPost, "/refresh", url.Values{}},
		{http.MethodGet, "/tabs/social", nil},
		{http.MethodGet, "/api/state", nil},
	}
	for _, req := range requests {
		rec := ts.do(t, req.method, req.path, req.form)
		assert.Equal(t, http.StatusSeeOther, rec.Code, req.path)
		assert.Equal(t, "/", rec.Header().Get("Location"), req.path)
	}
	assert.Nil(t, ts.cookie)
	assert.Zero(t, calls.Load())

	rec := ts.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, ts.cookie)
	assert.Positive(t, calls.Load())
}

func TestAddWish_PostRedirectGet(t *testing.T) {
	ts := newTestServer(t, miniapp.Config{Demo: true})
	ts.do(t, http.MethodGet, "/", nil)

	rec := ts.do(t, http.MethodPost, "/wishes", url.Values{"title": {"Bike"}, "price": {"1 200"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	st := ts.state(t)
	require.Len(t, st.Wishes, 4)
	assert.Equal(t, "Bike", st.Wishes[3].Title)
	require.NotNil(t, st.Notice)
	assert.Equal(t, "info", string(st.Notice.Kind))

	rec = ts.do(t, http.MethodPost, "/wishes", url.Values{"title": {"   "}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	st = ts.state(t)
	assert.Len(t, st.Wishes, 4)
	require.NotNil(t, st.Notice)
	assert.Equal(t, "error", string(st.Notice.Kind))
}

func TestDeleteWish_RequiresConfirmation(t *testing.T) {
	ts := newTestServer(t, miniapp.Config{Demo: true})
	ts.do(t, http.MethodGet, "/", nil)

	rec := ts.do(t, http.MethodPost, "/wishes/1/delete", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Len(t, ts.state(t).Wishes, 3)

	rec = ts.do(t, http.MethodPost, "/wishes/abc/delete", url.Values{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartSession_FromLaunchData(t *testing.T) {
	ts := newTestServer(t, miniapp.Config{Demo: true})
	ts.do(t, http.MethodGet, "/", nil)
	anonymous := ts.cookie.Value

	initData := url.Values{"user": {`{"id":42,"first_name":"Kate"}`}, "hash": {"x"}}.Encode()
	rec := ts.do(t, http.MethodPost, "/session", url.Values{"init_data": {initData}})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEqual(t, anonymous, ts.cookie.Value)

	st := ts.state(t)
	assert.Equal(t, int64(42), st.UserID)
	assert.True(t, st.Demo)
}

func TestFriendWishes(t *testing.T) {
	ts := newTestServer(t, miniapp.Config{Demo: true})
	ts.do(t, http.MethodGet, "/", nil)

	rec := ts.do(t, http.MethodGet, "/friends/999/wishes", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/friends/200001/wishes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := ts.state(t)
	require.NotNil(t, st.Viewing)
	assert.Equal(t, int64(200001), st.Viewing.Friend.ID)
	assert.Equal(t, "social", string(st.Tab))

	ts.do(t, http.MethodGet, "/friends/back", nil)
	assert.Nil(t, ts.state(t).Viewing)
}

func TestSetting_Persists(t *testing.T) {
	ts := newTestServer(t, miniapp.Config{Demo: true})
	ts.do(t, http.MethodGet, "/", nil)

	rec := ts.do(t, http.MethodPost, "/settings", url.Values{"key": {"birthdayNotifications"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	st := ts.state(t)
	assert.False(t, st.Settings.BirthdayNotifications)
	assert.True(t, st.Settings.NotificationsEnabled)
}

func TestStatic(t *testing.T) {
	ts := newTestServer(t, miniapp.Config{Demo: true})
	rec := ts.do(t, http.MethodGet, "/static/app.js", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	js := rec.Body.String()
	assert.Contains(t, js, "Telegram")

	// The bootstrap is only marked done once the server accepted it.
	ok := strings.Index(js, "resp.ok")
	mark := strings.Index(js, "sessionStorage.setItem")
	require.Positive(t, ok)
	assert.Greater(t, mark, ok)
}
