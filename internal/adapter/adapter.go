// Package adapter 定义站点适配器契约与分发注册表。
// 每个适配器对应一个站点家族，按"专属优先、通用兜底"的顺序分发。
package adapter

import (
	"context"
	"time"

	"github.com/golang-chatmsg-core/internal/model"
	"github.com/golang-chatmsg-core/internal/transport"
)

// Env 适配器的单次运行环境
// 调度器每次运行、每个站点构造一份；适配器不得跨运行持有可变状态
type Env struct {
	Site         model.Site
	Username     string            // 当前用户在该站点的用户名，可为空
	Client       *transport.Client // 代理等设置已在调度器入口快照
	FeedbackWait time.Duration     // 调度器在读取反馈前已等待的时长
}

// Adapter 站点适配器核心能力
type Adapter interface {
	// Name 适配器名称
	Name() string
	// Send 发送喊话，返回 (是否成功, 回执或失败原因)
	Send(ctx context.Context, body string) (bool, string)
	// ReadFeedback 读取站点对当前用户的回复并解析，无回复返回 nil
	ReadFeedback(ctx context.Context, body string) *model.FeedbackRecord
}

// PrivilegeReader 可选能力：读取用户权益快照（前置过滤）
type PrivilegeReader interface {
	ReadUserPrivileges(ctx context.Context) *model.PrivilegeSnapshot
}

// StatsReader 可选能力：读取用户计数器快照，作为反馈改写的上下文
type StatsReader interface {
	ReadUserStats(ctx context.Context) map[string]string
}

// MailboxClock 可选能力：读取最近一封电力礼物邮件的时间戳（织梦专属）
type MailboxClock interface {
	ReadLatestMailboxTime(ctx context.Context) (time.Time, bool)
}

// BonusBuyer 可选能力：购买每日福利（青蛙专属）
type BonusBuyer interface {
	BuyDailyBonus(ctx context.Context) (bool, string)
}

// NotifyExtra 可选能力：为通知追加站点专属行
type NotifyExtra interface {
	NotifyExtra() []string
}
