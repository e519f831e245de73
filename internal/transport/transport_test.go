package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGet_PassesHeadersAndQuery Cookie、UA与查询参数原样透传
func TestGet_PassesHeadersAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "uid=1; pass=abc", r.Header.Get("Cookie"))
		assert.Equal(t, "TestUA/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "shoutbox", r.URL.Query().Get("type"))
		fmt.Fprint(w, "pong")
	}))
	defer srv.Close()

	c := NewClient(Options{})
	query := url.Values{}
	query.Set("type", "shoutbox")
	resp, err := c.Get(context.Background(), Request{
		URL:       srv.URL,
		Cookie:    "uid=1; pass=abc",
		UserAgent: "TestUA/1.0",
		Query:     query,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", resp.Text())
}

// TestPost_Form 表单按 x-www-form-urlencoded 提交
func TestPost_Form(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "求电力", r.PostForm.Get("shbox_text"))
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	form := url.Values{}
	form.Set("shbox_text", "求电力")
	resp, err := NewClient(Options{}).Post(context.Background(), Request{
		URL:  srv.URL,
		Form: form,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
}

// TestWantOK 非200且要求200时报非预期状态
func TestWantOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient(Options{}).Get(context.Background(), Request{URL: srv.URL, WantOK: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)

	// 不要求200时照常返回响应
	resp, err := NewClient(Options{}).Get(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// TestTimeout 自定义超时生效并归一化为超时错误
func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	start := time.Now()
	_, err := NewClient(Options{}).Get(context.Background(), Request{
		URL:     srv.URL,
		Timeout: 50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	// 有限次重试，整体耗时有界
	assert.Less(t, time.Since(start), 5*time.Second)
}

// fakeRenderer 渲染器桩
type fakeRenderer struct {
	source string
	err    error
}

func (f *fakeRenderer) PageSource(context.Context, string, string, string, time.Duration) (string, error) {
	return f.source, f.err
}

// TestRender_Used 渲染成功时不走直连
func TestRender_Used(t *testing.T) {
	c := NewClient(Options{Renderer: &fakeRenderer{source: "<html>rendered</html>"}})
	resp, err := c.Get(context.Background(), Request{URL: "http://127.0.0.1:1", Render: true})
	require.NoError(t, err)
	assert.Equal(t, "<html>rendered</html>", resp.Text())
}

// TestRender_Fallback 渲染失败时静默降级为直连
func TestRender_Fallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "direct")
	}))
	defer srv.Close()

	c := NewClient(Options{Renderer: &fakeRenderer{err: ErrBrowserUnavailable}})
	resp, err := c.Get(context.Background(), Request{URL: srv.URL, Render: true})
	require.NoError(t, err)
	assert.Equal(t, "direct", resp.Text())
}

// TestRender_NoRenderer 未配置渲染器时直接走直连
func TestRender_NoRenderer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "direct")
	}))
	defer srv.Close()

	resp, err := NewClient(Options{}).Get(context.Background(), Request{URL: srv.URL, Render: true})
	require.NoError(t, err)
	assert.Equal(t, "direct", resp.Text())
}
