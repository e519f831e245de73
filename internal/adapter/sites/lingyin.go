package sites

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/golang-chatmsg-core/internal/adapter"
	"github.com/golang-chatmsg-core/internal/classify"
	"github.com/golang-chatmsg-core/internal/logger"
	"github.com/golang-chatmsg-core/internal/model"
	"go.uber.org/zap"
)

// Lingyin 聆音站适配器
// 系统消息在右侧独立列中，且紧挨在用户自己那条消息的上方；
// 先按右侧系统列找，找不到再按"系统行在前、本人消息在后"的相邻关系找
type Lingyin struct {
	*adapter.Generic
}

// NewLingyin 创建聆音适配器
func NewLingyin(env *adapter.Env) *Lingyin {
	return &Lingyin{Generic: adapter.NewGeneric(env)}
}

// MatchLingyin 聆音匹配谓词
func MatchLingyin(site model.Site) bool {
	return strings.Contains(site.Name, "聆音") || strings.Contains(site.URL, "soulvoice")
}

// Name 适配器名称
func (l *Lingyin) Name() string { return "lingyin" }

// ReadFeedback 右侧系统列优先，相邻关系兜底
func (l *Lingyin) ReadFeedback(ctx context.Context, body string) *model.FeedbackRecord {
	doc, err := l.FetchShoutbox(ctx)
	if err != nil {
		logger.Logger.Debug("聆音群聊区抓取失败", zap.Error(err))
		return nil
	}

	if rows := doc.Find(`div[class*="system"], td.system-msg`); rows.Length() > 0 {
		if fb := l.ScanRows(rows, body); fb != nil {
			return fb
		}
	}
	return l.scanPreceding(doc, body)
}

// scanPreceding 找到本人发出的那条消息，检查其上一行是否为系统回复
func (l *Lingyin) scanPreceding(doc *goquery.Document, body string) *model.FeedbackRecord {
	env := l.Env()
	if env.Username == "" {
		return nil
	}
	rows := doc.Find("tr")
	texts := make([]string, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(row.Text()))
	})

	expected := classify.ExpectedKind(body)
	for i, text := range texts {
		if i == 0 || !strings.Contains(text, body) || !strings.Contains(text, env.Username) {
			continue
		}
		prev := texts[i-1]
		if prev == "" || strings.Contains(prev, env.Username+"说") {
			continue
		}
		fb := classify.Classify(env.Site.Name, body, prev)
		if fb != nil && classify.KindMatches(fb, expected) {
			return fb
		}
	}
	return nil
}
