package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/golang-chatmsg-core/config"
	"github.com/golang-chatmsg-core/internal/dispatcher"
	"github.com/golang-chatmsg-core/internal/host"
	"github.com/golang-chatmsg-core/internal/model"
	"github.com/golang-chatmsg-core/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memStore) Get(pluginID string, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.data[pluginID]; ok {
		return json.Unmarshal(b, out)
	}
	return nil
}

func (m *memStore) Set(pluginID string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[pluginID] = b
	m.mu.Unlock()
	return nil
}

type fakeSites struct{ sites []model.Site }

func (f *fakeSites) ActiveSites() ([]model.Site, error) { return f.sites, nil }

func setupServer(t *testing.T) *Server {
	t.Helper()
	config.Cfg = &config.Config{}
	config.Cfg.App.Name = "chatmsg-test"
	config.Cfg.App.Version = "test"
	config.Cfg.App.Mode = "test"
	config.Cfg.App.Port = 0

	sched := scheduler.New()
	t.Cleanup(sched.Stop)

	users := host.NewUserCache(nil)
	disp := dispatcher.New(dispatcher.Deps{
		Sites: &fakeSites{sites: []model.Site{{ID: "s1", Name: "普通站", URL: "https://a.example.com"}}},
		Store: &memStore{data: make(map[string][]byte)},
		Users: users,
		Sink:  host.LogSink{},
		Sched: sched,
	})
	return NewServer(disp, users)
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := doJSON(t, setupServer(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "chatmsg-test")
}

func TestStatus(t *testing.T) {
	w := doJSON(t, setupServer(t), http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int               `json:"code"`
		Data dispatcher.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Code)
	assert.Contains(t, resp.Data.Adapters, "zm")
	assert.Contains(t, resp.Data.Adapters, "qingwa")
}

// TestConfigRoundTrip 配置写入后读回，未注册的站点被清洗掉
func TestConfigRoundTrip(t *testing.T) {
	srv := setupServer(t)

	w := doJSON(t, srv, http.MethodPut, "/api/v1/config",
		`{"enabled":false,"notify":true,"retry_count":2,"chat_sites":["s1","ghost"],"sites_messages":"普通站|你好"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/config", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data model.Options `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"s1"}, resp.Data.ChatSites)
	assert.Equal(t, 2, resp.Data.RetryCount)
	assert.Equal(t, "普通站|你好", resp.Data.SitesMessages)
}

func TestPutConfig_BadJSON(t *testing.T) {
	w := doJSON(t, setupServer(t), http.MethodPut, "/api/v1/config", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutUsername(t *testing.T) {
	srv := setupServer(t)
	w := doJSON(t, srv, http.MethodPut, "/api/v1/username",
		`{"site_url":"https://a.example.com","username":"alice"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPut, "/api/v1/username", `{"site_url":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
