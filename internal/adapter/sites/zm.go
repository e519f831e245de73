// Package sites 实现各站点家族的专属适配器，导入即完成注册。
// 注册顺序固定写在 register.go 中，保证分发结果可复现。
package sites

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/golang-chatmsg-core/internal/adapter"
	"github.com/golang-chatmsg-core/internal/classify"
	"github.com/golang-chatmsg-core/internal/logger"
	"github.com/golang-chatmsg-core/internal/model"
	"github.com/golang-chatmsg-core/internal/transport"
	"go.uber.org/zap"
)

const (
	// 织梦站回复以管理组账号发出
	zmAdminHandle = "织梦"
	// 发送后站点回复的最短静默期
	zmQuietPeriod = 5 * time.Second
	// 电力礼物邮件正文的固定子串
	zmGiftToken = "收到来自织梦管理员赠送的"
)

// ZM 织梦站适配器
// 反馈不走群聊区原文扫描，而是静默期后按相对时间排序挑选管理组回复；
// 另提供站内信时间戳读取，驱动织梦池的自调度时钟
type ZM struct {
	*adapter.Generic
	lastMailTime time.Time
}

// NewZM 创建织梦适配器
func NewZM(env *adapter.Env) *ZM {
	return &ZM{Generic: adapter.NewGeneric(env)}
}

// MatchZM 织梦站匹配谓词
func MatchZM(site model.Site) bool {
	return strings.Contains(site.Name, "织梦") || strings.Contains(site.URL, "zmpt")
}

// Name 适配器名称
func (z *ZM) Name() string { return "zm" }

// ReadFeedback 静默期后抓取群聊区，按"N分钟前"前缀排序挑选回复
func (z *ZM) ReadFeedback(ctx context.Context, body string) *model.FeedbackRecord {
	env := z.Env()
	if env.Username == "" {
		return nil
	}
	if wait := zmQuietPeriod - env.FeedbackWait; wait > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}

	doc, err := z.FetchShoutbox(ctx)
	if err != nil {
		logger.Logger.Debug("织梦群聊区抓取失败", zap.Error(err))
		return nil
	}

	tag := classify.ExpectedKind(body)
	var bestText string
	bestAge := -1
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		text := strings.TrimSpace(row.Text())
		if text == "" {
			return
		}
		if !strings.Contains(text, "@"+env.Username) {
			return
		}
		if !strings.Contains(text, zmAdminHandle) {
			return
		}
		// 求电力的回复里应当出现电力；其余情况站点以"没有回复"搪塞
		if tag == model.KindPower {
			if !strings.Contains(text, "电力") {
				return
			}
		} else if !strings.Contains(text, "没有回复") && !strings.Contains(text, "电力") {
			return
		}
		age := adapter.RelativeMinutes(text)
		if age < 0 {
			return
		}
		if bestAge < 0 || age < bestAge {
			bestAge = age
			bestText = text
		}
	})

	if bestText == "" {
		return nil
	}
	return classify.Classify(env.Site.Name, body, bestText)
}

// ReadLatestMailboxTime 读取消息中心最近一封电力礼物邮件的时间戳
// 未读优先，否则取最新的已读；返回行上的精确时间属性
func (z *ZM) ReadLatestMailboxTime(ctx context.Context) (time.Time, bool) {
	env := z.Env()
	resp, err := env.Client.Get(ctx, transport.Request{
		URL:       adapter.JoinURL(env.Site.URL, "messages.php"),
		Cookie:    env.Site.Cookie,
		UserAgent: env.Site.UserAgent,
		Render:    env.Site.RenderByBrowser,
		WantOK:    true,
	})
	if err != nil {
		logger.Logger.Warn("织梦消息中心抓取失败", zap.Error(err))
		return time.Time{}, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Text()))
	if err != nil {
		return time.Time{}, false
	}

	var unreadStamp, readStamp string
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		text := row.Text()
		if !strings.Contains(text, zmGiftToken) {
			return
		}
		stamp := rowTimestamp(row)
		if stamp == "" {
			return
		}
		if isUnreadRow(row) {
			if unreadStamp == "" {
				unreadStamp = stamp
			}
		} else if readStamp == "" {
			readStamp = stamp
		}
	})

	stamp := unreadStamp
	if stamp == "" {
		stamp = readStamp
	}
	if stamp == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(model.MailTimeLayout, stamp, time.Local)
	if err != nil {
		logger.Logger.Warn("织梦邮件时间戳无法解析", zap.String("stamp", stamp), zap.Error(err))
		return time.Time{}, false
	}
	z.lastMailTime = t
	return t, true
}

// NotifyExtra 通知附加行：下一次电力礼物的预计时间
func (z *ZM) NotifyExtra() []string {
	if z.lastMailTime.IsZero() {
		return nil
	}
	next := z.lastMailTime.Add(24 * time.Hour)
	return []string{"织梦下次电力礼物约在 " + next.Format(model.MailTimeLayout)}
}

// rowTimestamp 行内相对时间的 title 属性保存精确时间
func rowTimestamp(row *goquery.Selection) string {
	if title, ok := row.Find("span[title]").First().Attr("title"); ok {
		if stamp := adapter.ExtractDatetime(title); stamp != "" {
			return stamp
		}
	}
	return adapter.ExtractDatetime(row.Text())
}

func isUnreadRow(row *goquery.Selection) bool {
	unread := false
	row.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		alt, _ := img.Attr("alt")
		src, _ := img.Attr("src")
		if strings.Contains(strings.ToLower(alt), "unread") ||
			strings.Contains(strings.ToLower(src), "unread") {
			unread = true
			return false
		}
		return true
	})
	return unread
}
