package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ChromeRenderer 基于 chromedp 的无头浏览器渲染器
// 用于直连被站点防火墙拦截（needs-render）的场景
type ChromeRenderer struct {
	execPath string
}

// NewChromeRenderer 创建渲染器，execPath 为空时使用 chromedp 默认查找
func NewChromeRenderer(execPath string) *ChromeRenderer {
	return &ChromeRenderer{execPath: execPath}
}

// PageSource 渲染页面并返回源码
func (r *ChromeRenderer) PageSource(ctx context.Context, pageURL, cookie, ua string, timeout time.Duration) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}
	if ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancelRun := context.WithTimeout(browserCtx, timeout)
	defer cancelRun()

	tasks := chromedp.Tasks{}
	if cookie != "" {
		domain, err := cookieDomain(pageURL)
		if err != nil {
			return "", err
		}
		tasks = append(tasks, setCookies(cookie, domain))
	}
	var source string
	tasks = append(tasks,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &source),
	)

	if err := chromedp.Run(runCtx, tasks); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
	}
	return source, nil
}

// setCookies 将 "k1=v1; k2=v2" 形式的 Cookie 写入浏览器
func setCookies(cookie, domain string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, pair := range strings.Split(cookie, ";") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			name, value, found := strings.Cut(pair, "=")
			if !found {
				continue
			}
			err := network.SetCookie(strings.TrimSpace(name), strings.TrimSpace(value)).
				WithDomain(domain).
				WithPath("/").
				Do(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func cookieDomain(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("解析URL失败: %w", err)
	}
	return u.Hostname(), nil
}
