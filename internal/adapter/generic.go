package adapter

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/golang-chatmsg-core/internal/classify"
	"github.com/golang-chatmsg-core/internal/logger"
	"github.com/golang-chatmsg-core/internal/model"
	"github.com/golang-chatmsg-core/internal/transport"
	"go.uber.org/zap"
)

// 反馈扫描最多检查最新的10行
const feedbackScanRows = 10

// Generic 通用NexusPHP群聊区适配器
// 走 shoutbox.php 的页内表单发送，发送后重抓列表扫描对当前用户的回复
type Generic struct {
	env *Env
}

// NewGeneric 创建通用适配器
func NewGeneric(env *Env) *Generic {
	return &Generic{env: env}
}

func init() {
	RegisterGeneric(func(env *Env) Adapter { return NewGeneric(env) })
}

// Name 适配器名称
func (g *Generic) Name() string { return "generic" }

// Env 运行环境（供嵌入该类型的专属适配器使用）
func (g *Generic) Env() *Env { return g.env }

// Send 发送喊话
// 与站点页内表单字段保持一致：shbox_text + shout + sent + type
func (g *Generic) Send(ctx context.Context, body string) (bool, string) {
	query := url.Values{}
	query.Set("shbox_text", body)
	query.Set("shout", "我喊")
	query.Set("sent", "yes")
	query.Set("type", "shoutbox")

	resp, err := g.env.Client.Get(ctx, transport.Request{
		URL:       JoinURL(g.env.Site.URL, "shoutbox.php"),
		Cookie:    g.env.Site.Cookie,
		UserAgent: g.env.Site.UserAgent,
		Query:     query,
		Render:    g.env.Site.RenderByBrowser,
		WantOK:    true,
	})
	if err != nil {
		return false, "群聊区不可达: " + err.Error()
	}

	text := resp.Text()
	if notAuthenticated(resp.FinalURL, text) {
		return false, "未登录或Cookie已过期"
	}
	if quotaExceeded(text) {
		return false, "站点限制发送频率"
	}
	// 发送成功后返回的列表应当包含本条消息
	if !strings.Contains(text, body) {
		return false, "页面中未见发送回执"
	}
	return true, "已发送"
}

// ReadFeedback 重抓群聊区列表并扫描回复
// 取最新若干行中第一条发送者非本人、内容提及本人的消息，且奖励类型需与请求一致
func (g *Generic) ReadFeedback(ctx context.Context, body string) *model.FeedbackRecord {
	if g.env.Username == "" {
		logger.Logger.Debug("未知用户名，跳过反馈扫描", zap.String("site", g.env.Site.Name))
		return nil
	}
	doc, err := g.FetchShoutbox(ctx)
	if err != nil {
		logger.Logger.Debug("反馈列表抓取失败",
			zap.String("site", g.env.Site.Name), zap.Error(err))
		return nil
	}
	return g.ScanRows(doc.Find("tr"), body)
}

// ScanRows 按自顶向下的顺序扫描候选行，类型不符则落到下一候选
// 用户名未知时宁可报"没有回复"，不拿别人的回复充数
func (g *Generic) ScanRows(rows *goquery.Selection, body string) *model.FeedbackRecord {
	if g.env.Username == "" {
		logger.Logger.Debug("未知用户名，跳过反馈扫描", zap.String("site", g.env.Site.Name))
		return nil
	}
	expected := classify.ExpectedKind(body)
	var record *model.FeedbackRecord
	count := 0
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if count >= feedbackScanRows {
			return false
		}
		text := strings.TrimSpace(row.Text())
		if text == "" {
			return true
		}
		count++
		sender := strings.TrimSpace(row.Find(`a[href*="userdetails"] b`).First().Text())
		if sender == "" {
			sender = strings.TrimSpace(row.Find(`a[href*="userdetails"]`).First().Text())
		}
		if sender == g.env.Username || !strings.Contains(text, g.env.Username) {
			return true
		}
		fb := classify.Classify(g.env.Site.Name, body, text)
		if fb == nil {
			return true
		}
		if !classify.KindMatches(fb, expected) {
			// 回复存在但类型与请求不符，继续找下一候选
			return true
		}
		record = fb
		return false
	})
	return record
}

// ReadUserPrivileges 从控制面板读取等级与VIP/彩虹ID到期时间
func (g *Generic) ReadUserPrivileges(ctx context.Context) *model.PrivilegeSnapshot {
	resp, err := g.env.Client.Get(ctx, transport.Request{
		URL:       JoinURL(g.env.Site.URL, "usercp.php"),
		Cookie:    g.env.Site.Cookie,
		UserAgent: g.env.Site.UserAgent,
		Render:    g.env.Site.RenderByBrowser,
		WantOK:    true,
	})
	if err != nil {
		logger.Logger.Debug("权益页抓取失败",
			zap.String("site", g.env.Site.Name), zap.Error(err))
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Text()))
	if err != nil {
		return nil
	}

	snap := &model.PrivilegeSnapshot{}
	if v := RowValue(doc, "等级"); v != nil {
		if alt, ok := v.Find("img").First().Attr("alt"); ok && alt != "" {
			snap.LevelName = strings.TrimSpace(alt)
		} else {
			snap.LevelName = strings.TrimSpace(v.Text())
		}
	}
	if v := RowValue(doc, "VIP"); v != nil {
		snap.VIPExpiry = ExtractDatetime(v.Text())
	}
	if v := RowValue(doc, "彩虹ID"); v != nil {
		snap.RainbowExpiry = ExtractDatetime(v.Text())
	}
	if snap.LevelName == "" && snap.VIPExpiry == "" && snap.RainbowExpiry == "" {
		return nil
	}
	return snap
}

// ReadUserStats 读取首页计数器快照（上传量、魔力值）
func (g *Generic) ReadUserStats(ctx context.Context) map[string]string {
	resp, err := g.env.Client.Get(ctx, transport.Request{
		URL:       JoinURL(g.env.Site.URL, "index.php"),
		Cookie:    g.env.Site.Cookie,
		UserAgent: g.env.Site.UserAgent,
		Render:    g.env.Site.RenderByBrowser,
	})
	if err != nil {
		return nil
	}
	stats := make(map[string]string)
	text := resp.Text()
	if m := uploadStatRe.FindStringSubmatch(text); m != nil {
		stats["upload"] = m[1]
	}
	if m := bonusStatRe.FindStringSubmatch(text); m != nil {
		stats["bonus"] = m[1]
	}
	if len(stats) == 0 {
		return nil
	}
	return stats
}

func (g *Generic) FetchShoutbox(ctx context.Context) (*goquery.Document, error) {
	query := url.Values{}
	query.Set("type", "shoutbox")
	resp, err := g.env.Client.Get(ctx, transport.Request{
		URL:       JoinURL(g.env.Site.URL, "shoutbox.php"),
		Cookie:    g.env.Site.Cookie,
		UserAgent: g.env.Site.UserAgent,
		Query:     query,
		Render:    g.env.Site.RenderByBrowser,
		WantOK:    true,
	})
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(resp.Text()))
}

var (
	uploadStatRe = regexp.MustCompile(`上[传傳]量?[:：]?\s*([\d.]+\s*[TGM]i?B)`)
	bonusStatRe  = regexp.MustCompile(`魔力值?[^\d]{0,8}([\d,.]+)`)
)

func notAuthenticated(finalURL, text string) bool {
	return strings.Contains(finalURL, "login.php") ||
		strings.Contains(text, "请先登录") ||
		strings.Contains(text, "takelogin")
}

func quotaExceeded(text string) bool {
	return strings.Contains(text, "请勿灌水") ||
		strings.Contains(text, "发送过于频繁") ||
		strings.Contains(text, "休息一下")
}
