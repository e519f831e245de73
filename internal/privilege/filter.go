// Package privilege 实现喊话前的权益过滤：
// 已持有对应权益的请求不再发送，避免浪费站点配额。
package privilege

import (
	"github.com/golang-chatmsg-core/internal/model"
)

// Filter 按权益快照切分消息列表
// 返回 (保留发送的消息, 被跳过的消息及原因)；快照为 nil 时全部保留
// 对同一快照幂等
func Filter(msgs []model.TaggedMessage, snap *model.PrivilegeSnapshot) (keep []model.TaggedMessage, skipped []model.BodyReason) {
	if snap == nil {
		return msgs, nil
	}
	for _, msg := range msgs {
		if reason := skipReason(msg.Tag, snap); reason != "" {
			skipped = append(skipped, model.BodyReason{Body: msg.Body, Reason: reason})
			continue
		}
		keep = append(keep, msg)
	}
	return keep, skipped
}

func skipReason(tag model.MessageTag, snap *model.PrivilegeSnapshot) string {
	switch tag {
	case model.TagVIP:
		if snap.IsHighTier() {
			return "当前等级 " + snap.LevelName + " 已高于VIP，无需求VIP"
		}
		if snap.VIPExpiry != "" {
			return "VIP尚未到期（至 " + snap.VIPExpiry + "）"
		}
	case model.TagRainbow:
		if snap.RainbowExpiry != "" {
			return "彩虹ID尚未到期（至 " + snap.RainbowExpiry + "）"
		}
	}
	return ""
}
