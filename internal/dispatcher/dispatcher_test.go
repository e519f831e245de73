package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-chatmsg-core/internal/host"
	"github.com/golang-chatmsg-core/internal/model"
	"github.com/golang-chatmsg-core/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore 进程内的插件配置存储
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

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

// fakeSites 固定站点列表
type fakeSites struct{ sites []model.Site }

func (f *fakeSites) ActiveSites() ([]model.Site, error) { return f.sites, nil }

// recordSink 记录通知
type recordSink struct {
	mu    sync.Mutex
	posts []string
}

func (s *recordSink) Post(_, title, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, title+"\n"+text)
	return nil
}

func (s *recordSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.posts...)
}

// shoutboxSite 回显式的假NexusPHP站点，记录收到的喊话
type shoutboxSite struct {
	mu    sync.Mutex
	seen  []string
	block chan struct{} // 非nil时请求阻塞到通道关闭
}

func (f *shoutboxSite) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.block != nil {
			<-f.block
		}
		body := r.URL.Query().Get("shbox_text")
		if body != "" {
			f.mu.Lock()
			f.seen = append(f.seen, body)
			f.mu.Unlock()
		}
		fmt.Fprintf(w, "<table><tr><td>%s</td></tr></table>", body)
	})
}

func (f *shoutboxSite) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

func newTestDispatcher(t *testing.T, sites []model.Site, opts model.Options) (*Dispatcher, *memStore, *recordSink, *scheduler.Scheduler) {
	t.Helper()
	store := newMemStore()
	require.NoError(t, store.Set(PluginID, &opts))
	sink := &recordSink{}
	sched := scheduler.New()
	t.Cleanup(sched.Stop)

	d := New(Deps{
		Sites: &fakeSites{sites: sites},
		Store: store,
		Users: host.NewUserCache(nil),
		Sink:  sink,
		Sched: sched,
	})
	return d, store, sink, sched
}

func baseOptions() model.Options {
	opts := model.DefaultOptions()
	opts.Enabled = false
	opts.GetFeedback = false
	opts.RetryCount = 0
	opts.IntervalCnt = 1
	return opts
}

// TestRunGeneral_EndToEnd 通用池端到端：解析、发送、汇总、通知
func TestRunGeneral_EndToEnd(t *testing.T) {
	site := &shoutboxSite{}
	srv := httptest.NewServer(site.handler())
	defer srv.Close()

	opts := baseOptions()
	opts.ChatSites = []string{"s1"}
	opts.SitesMessages = "普通站|你好|大家好"

	d, _, sink, _ := newTestDispatcher(t, []model.Site{
		{ID: "s1", Name: "普通站", URL: srv.URL},
	}, opts)

	d.RunGeneral(context.Background())

	assert.Equal(t, []string{"你好", "大家好"}, site.sent())

	posts := sink.all()
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0], "【群聊区喊话结果】")
	assert.Contains(t, posts[0], "共 1 个站点，成功 1 个，失败 0 个")
	assert.Contains(t, posts[0], "✅ 普通站")

	st := d.Status()
	require.Contains(t, st.LastRuns, PoolGeneral)
	assert.Equal(t, 2, st.LastRuns[PoolGeneral].Outcomes[0].Success)
	assert.False(t, st.Running[PoolGeneral])
}

// TestRunGeneral_ZmExcluded 织梦独立调度时通用池不碰织梦站点
func TestRunGeneral_ZmExcluded(t *testing.T) {
	normal := &shoutboxSite{}
	zm := &shoutboxSite{}
	normalSrv := httptest.NewServer(normal.handler())
	defer normalSrv.Close()
	zmSrv := httptest.NewServer(zm.handler())
	defer zmSrv.Close()

	opts := baseOptions()
	opts.ZmIndependent = true
	opts.ChatSites = []string{"s1", "zm1"}
	opts.SitesMessages = "普通站|你好\n织梦|求电力"

	d, _, _, _ := newTestDispatcher(t, []model.Site{
		{ID: "s1", Name: "普通站", URL: normalSrv.URL},
		{ID: "zm1", Name: "织梦", URL: zmSrv.URL},
	}, opts)

	d.RunGeneral(context.Background())

	assert.Equal(t, []string{"你好"}, normal.sent())
	assert.Empty(t, zm.sent())
}

// TestRunGeneral_Contended 同池并发触发时后到者直接放弃
func TestRunGeneral_Contended(t *testing.T) {
	site := &shoutboxSite{block: make(chan struct{})}
	srv := httptest.NewServer(site.handler())
	defer srv.Close()

	opts := baseOptions()
	opts.ChatSites = []string{"s1"}
	opts.SitesMessages = "普通站|你好"

	d, _, sink, _ := newTestDispatcher(t, []model.Site{
		{ID: "s1", Name: "普通站", URL: srv.URL},
	}, opts)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.RunGeneral(context.Background())
	}()

	// 等首个运行持锁后再次触发
	assert.Eventually(t, func() bool { return d.Status().Running[PoolGeneral] },
		time.Second, 5*time.Millisecond)
	d.RunGeneral(context.Background())

	close(site.block)
	wg.Wait()

	assert.Equal(t, []string{"你好"}, site.sent())
	assert.Len(t, sink.all(), 1)
}

// TestRunZ_AdvancesClock 织梦池运行后推进邮件时钟并重建任务
func TestRunZ_AdvancesClock(t *testing.T) {
	var mu sync.Mutex
	var sent []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/messages.php":
			fmt.Fprint(w, `<table>
<tr><td>收到来自织梦管理员赠送的电力礼物</td><td><span title="2026-08-29 10:00:00">昨天</span></td></tr>
</table>`)
		default:
			body := r.URL.Query().Get("shbox_text")
			if body != "" {
				mu.Lock()
				sent = append(sent, body)
				mu.Unlock()
			}
			fmt.Fprintf(w, "<table><tr><td>%s</td></tr></table>", body)
		}
	}))
	defer srv.Close()

	opts := baseOptions()
	opts.ZmIndependent = true
	opts.ChatSites = []string{"zm1"}
	opts.SitesMessages = "织梦|求电力"
	opts.ZmMailTime = "2026-08-28 10:00:00"

	d, store, _, _ := newTestDispatcher(t, []model.Site{
		{ID: "zm1", Name: "织梦", URL: srv.URL},
	}, opts)

	d.RunZ(context.Background())

	mu.Lock()
	assert.Equal(t, []string{"求电力"}, sent)
	mu.Unlock()

	var saved model.Options
	require.NoError(t, store.Get(PluginID, &saved))
	assert.Equal(t, "2026-08-29 10:00:00", saved.ZmMailTime)
}

// TestRunZ_EtaInReport 运行报告带出下次电力礼物的预计时间
func TestRunZ_EtaInReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/messages.php" {
			fmt.Fprint(w, `<table>
<tr><td>收到来自织梦管理员赠送的电力礼物</td><td><span title="2026-08-29 10:00:00">昨天</span></td></tr>
</table>`)
			return
		}
		fmt.Fprintf(w, "<table><tr><td>%s</td></tr></table>", r.URL.Query().Get("shbox_text"))
	}))
	defer srv.Close()

	opts := baseOptions()
	opts.ZmIndependent = true
	opts.ChatSites = []string{"zm1"}
	opts.SitesMessages = "织梦|求电力"

	d, store, sink, _ := newTestDispatcher(t, []model.Site{
		{ID: "zm1", Name: "织梦", URL: srv.URL},
	}, opts)

	d.RunZ(context.Background())

	posts := sink.all()
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0], "织梦下次电力礼物约在 2026-08-30 10:00:00")

	var saved model.Options
	require.NoError(t, store.Get(PluginID, &saved))
	assert.Equal(t, "2026-08-29 10:00:00", saved.ZmMailTime)
}

// TestRunZ_ClockMonotonic 邮件时间只前进不后退
func TestRunZ_ClockMonotonic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/messages.php" {
			fmt.Fprint(w, `<table>
<tr><td>收到来自织梦管理员赠送的电力礼物</td><td><span title="2026-08-20 10:00:00">早就</span></td></tr>
</table>`)
			return
		}
		fmt.Fprintf(w, "<table><tr><td>%s</td></tr></table>", r.URL.Query().Get("shbox_text"))
	}))
	defer srv.Close()

	opts := baseOptions()
	opts.ZmIndependent = true
	opts.ChatSites = []string{"zm1"}
	opts.SitesMessages = "织梦|求电力"
	opts.ZmMailTime = "2026-08-28 10:00:00"

	d, store, _, _ := newTestDispatcher(t, []model.Site{
		{ID: "zm1", Name: "织梦", URL: srv.URL},
	}, opts)

	d.RunZ(context.Background())

	var saved model.Options
	require.NoError(t, store.Get(PluginID, &saved))
	assert.Equal(t, "2026-08-28 10:00:00", saved.ZmMailTime)
}

// TestSaveOptions_Hygiene 选中站点与注册表求交，托管字段不被外部覆盖
func TestSaveOptions_Hygiene(t *testing.T) {
	opts := baseOptions()
	opts.ZmMailTime = "2026-08-29 10:00:00"

	d, store, _, _ := newTestDispatcher(t, []model.Site{
		{ID: "s1", Name: "普通站", URL: "https://a.example.com"},
	}, opts)

	incoming := baseOptions()
	incoming.ChatSites = []string{"s1", "ghost"}
	incoming.ZmMailTime = "1999-01-01 00:00:00"
	require.NoError(t, d.SaveOptions(incoming))

	var saved model.Options
	require.NoError(t, store.Get(PluginID, &saved))
	assert.Equal(t, []string{"s1"}, saved.ChatSites)
	assert.Equal(t, "2026-08-29 10:00:00", saved.ZmMailTime)
}

// TestRegisterJobs_OnlyOnce 单次运行标志消费后复位
func TestRegisterJobs_OnlyOnce(t *testing.T) {
	opts := baseOptions()
	opts.OnlyOnce = true

	d, store, _, _ := newTestDispatcher(t, nil, opts)
	require.NoError(t, d.RegisterJobs())

	var saved model.Options
	require.NoError(t, store.Get(PluginID, &saved))
	assert.False(t, saved.OnlyOnce)
}
