// Package parser 把用户的"站点消息配置"文本解析为站点到消息列表的映射。
package parser

import (
	"strings"

	"github.com/golang-chatmsg-core/internal/logger"
	"github.com/golang-chatmsg-core/internal/model"
	"go.uber.org/zap"
)

// ClassifyTag 根据消息正文的子串计算标签
// 求vip 不区分大小写；求彩虹id 同理；两者都无则为 none
func ClassifyTag(body string) model.MessageTag {
	lower := strings.ToLower(body)
	if strings.Contains(lower, "求vip") {
		return model.TagVIP
	}
	if strings.Contains(lower, "求彩虹id") {
		return model.TagRainbow
	}
	return model.TagNone
}

// Parse 解析配置文本
// 每行形如 站点名|消息1|消息2|…；同站点多行按出现顺序合并；
// 不在选中集合内的站点名丢弃并告警，不中断解析
func Parse(text string, selected map[string]bool) map[string][]model.TaggedMessage {
	result := make(map[string][]model.TaggedMessage)

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			logger.Logger.Warn("消息配置行缺少消息正文，已跳过", zap.String("line", line))
			continue
		}
		site := strings.TrimSpace(parts[0])
		if site == "" {
			continue
		}
		if !selected[site] {
			logger.Logger.Warn("消息配置中的站点不在选中列表内，已跳过",
				zap.String("site", site))
			continue
		}
		for _, part := range parts[1:] {
			body := strings.TrimSpace(part)
			if body == "" {
				continue
			}
			result[site] = append(result[site], model.TaggedMessage{
				Body: body,
				Tag:  ClassifyTag(body),
			})
		}
	}
	return result
}
