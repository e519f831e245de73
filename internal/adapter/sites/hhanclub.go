package sites

import (
	"context"
	"strings"

	"github.com/golang-chatmsg-core/internal/adapter"
	"github.com/golang-chatmsg-core/internal/logger"
	"github.com/golang-chatmsg-core/internal/model"
	"go.uber.org/zap"
)

// Hhanclub 憨憨站适配器
// 站点群聊区不是表格布局，消息是 flex 容器里的 div 列，按 div 扫描
type Hhanclub struct {
	*adapter.Generic
}

// NewHhanclub 创建憨憨适配器
func NewHhanclub(env *adapter.Env) *Hhanclub {
	return &Hhanclub{Generic: adapter.NewGeneric(env)}
}

// MatchHhanclub 憨憨站匹配谓词
func MatchHhanclub(site model.Site) bool {
	return strings.Contains(site.Name, "憨憨") || strings.Contains(site.URL, "hhanclub")
}

// Name 适配器名称
func (h *Hhanclub) Name() string { return "hhanclub" }

// ReadFeedback 按 flex 聊天列扫描
func (h *Hhanclub) ReadFeedback(ctx context.Context, body string) *model.FeedbackRecord {
	doc, err := h.FetchShoutbox(ctx)
	if err != nil {
		logger.Logger.Debug("憨憨群聊区抓取失败", zap.Error(err))
		return nil
	}
	rows := doc.Find(`div[class*="shout"]`)
	if rows.Length() == 0 {
		rows = doc.Find("div.flex div.flex-col > div")
	}
	return h.ScanRows(rows, body)
}
