package sites

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/golang-chatmsg-core/internal/adapter"
	"github.com/golang-chatmsg-core/internal/model"
	"github.com/golang-chatmsg-core/internal/transport"
)

// Qingwa 青蛙站适配器
// 喊话走通用流程；额外提供每日福利购买，需在当日喊话之前执行
type Qingwa struct {
	*adapter.Generic
}

// NewQingwa 创建青蛙适配器
func NewQingwa(env *adapter.Env) *Qingwa {
	return &Qingwa{Generic: adapter.NewGeneric(env)}
}

// MatchQingwa 青蛙站匹配谓词
func MatchQingwa(site model.Site) bool {
	return strings.Contains(site.Name, "青蛙") || strings.Contains(site.URL, "qingwapt")
}

// Name 适配器名称
func (q *Qingwa) Name() string { return "qingwa" }

// BuyDailyBonus 购买每日免费福利
// 已购买与购买成功都视为成功，消息原样带回通知
func (q *Qingwa) BuyDailyBonus(ctx context.Context) (bool, string) {
	env := q.Env()
	query := url.Values{}
	query.Set("option", "daily")
	resp, err := env.Client.Get(ctx, transport.Request{
		URL:       adapter.JoinURL(env.Site.URL, "mybonus.php"),
		Cookie:    env.Site.Cookie,
		UserAgent: env.Site.UserAgent,
		Query:     query,
		Render:    env.Site.RenderByBrowser,
		WantOK:    true,
	})
	if err != nil {
		return false, "每日福利购买失败: " + err.Error()
	}

	text := resp.Text()
	if msg := adapter.AlertMessage(text); msg != "" {
		ok := strings.Contains(msg, "成功") || strings.Contains(msg, "已领取") || strings.Contains(msg, "已购买")
		return ok, msg
	}
	switch {
	case strings.Contains(text, "购买成功"), strings.Contains(text, "领取成功"):
		return true, "每日福利购买成功"
	case strings.Contains(text, "已购买"), strings.Contains(text, "已领取"):
		return true, "今日福利已领取过"
	case strings.Contains(text, "魔力不足"):
		return false, "魔力不足，无法购买每日福利"
	}
	if summary := pageSummary(text); summary != "" {
		return false, "每日福利结果未知: " + summary
	}
	return false, "每日福利结果未知"
}

// pageSummary 提取页面主体的一小段文本用于兜底提示
func pageSummary(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(doc.Find("h2, .text, td.embedded").First().Text())
	if runes := []rune(text); len(runes) > 60 {
		text = string(runes[:60])
	}
	return text
}
