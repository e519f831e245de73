package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-chatmsg-core/internal/logger"
	"go.uber.org/zap"
)

// 传输层错误类型
var (
	ErrTimeout            = errors.New("transport: 请求超时")
	ErrRefused            = errors.New("transport: 连接被拒绝")
	ErrUnexpectedStatus   = errors.New("transport: 非预期的HTTP状态")
	ErrBrowserUnavailable = errors.New("transport: 浏览器渲染不可用")
)

const (
	defaultTimeout = 30 * time.Second
	defaultUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// 仅对网络类错误做有限次重试，HTTP状态由调用方裁决
	netRetries = 2
)

// Renderer 无头浏览器渲染器，返回渲染后的页面源码
type Renderer interface {
	PageSource(ctx context.Context, pageURL, cookie, ua string, timeout time.Duration) (string, error)
}

// Request 单次请求参数
type Request struct {
	Method    string
	URL       string
	Cookie    string
	UserAgent string
	Query     url.Values
	Form      url.Values
	Timeout   time.Duration
	Render    bool // 需要浏览器渲染，失败时静默降级为直连
	WantOK    bool // 仅接受 200
}

// Response 响应对象
type Response struct {
	StatusCode int
	FinalURL   string
	Header     http.Header
	Body       []byte
}

// Text 响应正文字符串
func (r *Response) Text() string {
	return string(r.Body)
}

// Client 站点HTTP客户端
// 代理与渲染器在调度器入口处快照，单次运行内只读
type Client struct {
	http     *http.Client
	renderer Renderer
}

// Options 客户端构造参数
type Options struct {
	ProxyURL string // 为空表示直连
	UseProxy bool
	Renderer Renderer
}

// NewClient 创建客户端
func NewClient(opts Options) *Client {
	tr := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: defaultTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.UseProxy && opts.ProxyURL != "" {
		if pu, err := url.Parse(opts.ProxyURL); err == nil {
			tr.Proxy = http.ProxyURL(pu)
		} else {
			logger.Logger.Warn("代理地址无法解析，忽略", zap.String("proxy", opts.ProxyURL), zap.Error(err))
		}
	}
	return &Client{
		http:     &http.Client{Transport: tr, Timeout: defaultTimeout},
		renderer: opts.Renderer,
	}
}

// Do 发起请求
// 渲染失败或内容为空时静默降级为直连请求
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Render {
		if src, err := c.render(ctx, req); err == nil && strings.TrimSpace(src) != "" {
			return &Response{
				StatusCode: http.StatusOK,
				FinalURL:   req.URL,
				Header:     http.Header{},
				Body:       []byte(src),
			}, nil
		} else if err != nil {
			logger.Logger.Debug("浏览器渲染失败，降级为直连",
				zap.String("url", req.URL), zap.Error(err))
		}
	}
	return c.direct(ctx, req)
}

// Get GET 请求
func (c *Client) Get(ctx context.Context, req Request) (*Response, error) {
	req.Method = http.MethodGet
	return c.Do(ctx, req)
}

// Post POST 请求（表单）
func (c *Client) Post(ctx context.Context, req Request) (*Response, error) {
	req.Method = http.MethodPost
	return c.Do(ctx, req)
}

func (c *Client) render(ctx context.Context, req Request) (string, error) {
	if c.renderer == nil {
		return "", ErrBrowserUnavailable
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	fullURL := req.URL
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(fullURL, "?") {
			sep = "&"
		}
		fullURL += sep + req.Query.Encode()
	}
	return c.renderer.PageSource(ctx, fullURL, req.Cookie, req.UserAgent, timeout)
}

func (c *Client) direct(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	fullURL := req.URL
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(fullURL, "?") {
			sep = "&"
		}
		fullURL += sep + req.Query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= netRetries; attempt++ {
		var body io.Reader
		if len(req.Form) > 0 {
			body = strings.NewReader(req.Form.Encode())
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, body)
		if err != nil {
			return nil, fmt.Errorf("构造请求失败: %w", err)
		}
		if len(req.Form) > 0 {
			httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		if req.Cookie != "" {
			httpReq.Header.Set("Cookie", req.Cookie)
		}
		ua := req.UserAgent
		if ua == "" {
			ua = defaultUA
		}
		httpReq.Header.Set("User-Agent", ua)

		resp, err := c.httpDo(httpReq, req.Timeout)
		if err != nil {
			lastErr = classifyNetErr(err)
			// 仅超时/拒绝类错误重试
			if !errors.Is(lastErr, ErrTimeout) && !errors.Is(lastErr, ErrRefused) {
				return nil, lastErr
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
			}
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("读取响应失败: %w", readErr)
			continue
		}

		out := &Response{
			StatusCode: resp.StatusCode,
			FinalURL:   resp.Request.URL.String(),
			Header:     resp.Header,
			Body:       data,
		}
		if req.WantOK && resp.StatusCode != http.StatusOK {
			return out, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}
		return out, nil
	}
	return nil, lastErr
}

// httpDo 带可选单次超时的请求执行
func (c *Client) httpDo(req *http.Request, timeout time.Duration) (*http.Response, error) {
	if timeout > 0 && timeout != c.http.Timeout {
		cl := *c.http
		cl.Timeout = timeout
		return cl.Do(req)
	}
	return c.http.Do(req)
}

// classifyNetErr 将网络错误归类为传输层错误类型
func classifyNetErr(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") {
		return fmt.Errorf("%w: %v", ErrRefused, err)
	}
	return err
}
