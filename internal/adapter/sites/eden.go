package sites

import (
	"context"
	"strings"

	"github.com/golang-chatmsg-core/internal/adapter"
	"github.com/golang-chatmsg-core/internal/logger"
	"github.com/golang-chatmsg-core/internal/model"
	"go.uber.org/zap"
)

// Eden 伊甸园站适配器
// 回复出现在"许愿池"气泡列里，不在常规聊天行中
type Eden struct {
	*adapter.Generic
}

// NewEden 创建伊甸园适配器
func NewEden(env *adapter.Env) *Eden {
	return &Eden{Generic: adapter.NewGeneric(env)}
}

// MatchEden 伊甸园匹配谓词
func MatchEden(site model.Site) bool {
	return strings.Contains(site.Name, "伊甸园") || strings.Contains(site.URL, "ptvac")
}

// Name 适配器名称
func (e *Eden) Name() string { return "eden" }

// ReadFeedback 扫描许愿池气泡列
func (e *Eden) ReadFeedback(ctx context.Context, body string) *model.FeedbackRecord {
	doc, err := e.FetchShoutbox(ctx)
	if err != nil {
		logger.Logger.Debug("伊甸园群聊区抓取失败", zap.Error(err))
		return nil
	}
	rows := doc.Find(`div[class*="wish"] li, ul.wish-list li`)
	if rows.Length() == 0 {
		rows = doc.Find("li")
	}
	return e.ScanRows(rows, body)
}
