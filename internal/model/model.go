package model

import (
	"strings"
	"time"
)

// MessageTag 喊话消息标签
// 根据消息正文的子串匹配得出，决定前置过滤与反馈校验的行为
type MessageTag string

const (
	TagNone    MessageTag = "none"    // 普通喊话
	TagVIP     MessageTag = "vip"     // 求VIP
	TagRainbow MessageTag = "rainbow" // 求彩虹ID
)

// TaggedMessage 带标签的喊话消息
type TaggedMessage struct {
	Body string     `json:"body"`
	Tag  MessageTag `json:"tag"`
}

// Site 站点描述（由站点注册表提供，单次运行内不可变）
type Site struct {
	ID              string `json:"id"`
	Name            string `json:"name"`              // 展示名称，如 织梦、青蛙
	URL             string `json:"url"`               // 基础URL
	Cookie          string `json:"cookie"`            // 认证Cookie
	UserAgent       string `json:"ua"`                // UA覆盖，可为空
	RenderByBrowser bool   `json:"render_by_browser"` // 需要浏览器渲染
}

// SitePlan 单站点执行计划：站点 + 按配置顺序排列的消息
type SitePlan struct {
	Site     Site
	Messages []TaggedMessage
}

// RewardKind 奖励类型
type RewardKind string

const (
	KindUpload     RewardKind = "upload"     // 上传量
	KindDownload   RewardKind = "download"   // 下载量
	KindBonus      RewardKind = "bonus"      // 魔力值
	KindWorkPoints RewardKind = "workpoints" // 工分
	KindPower      RewardKind = "power"      // 电力
	KindVicomo     RewardKind = "vicomo"     // 象草（象站）
	KindFrog       RewardKind = "frog"       // 蝌蚪（青蛙）
	KindVIP        RewardKind = "vip"        // VIP授予
	KindRainbowID  RewardKind = "rainbow"    // 彩虹ID授予
	KindRaw        RewardKind = "raw"        // 无法解析但捕获的原文
	KindOther      RewardKind = "other"      // 其余站点自定义货币
)

// Reward 单条结构化奖励
type Reward struct {
	Kind        RewardKind `json:"kind"`
	Description string     `json:"description"` // 原始句子
	Amount      float64    `json:"amount"`
	Unit        string     `json:"unit"`
	Negative    bool       `json:"negative"`
}

// FeedbackRecord 反馈记录：站点对当前用户的回复解析结果
type FeedbackRecord struct {
	Site    string   `json:"site"`
	Message string   `json:"message"` // 触发该反馈的消息正文
	Rewards []Reward `json:"rewards"`
}

// BodyReason 消息正文与原因的二元组（失败/跳过均使用）
type BodyReason struct {
	Body   string `json:"body"`
	Reason string `json:"reason"`
}

// SiteOutcome 单站点运行结果（通知聚合的输入）
type SiteOutcome struct {
	Site      string           `json:"site"`
	Success   int              `json:"success"`
	Failures  []BodyReason     `json:"failures"`
	Skipped   []BodyReason     `json:"skipped"`
	Feedbacks []FeedbackRecord `json:"feedbacks"`
	Addenda   []string         `json:"addenda,omitempty"` // 适配器附加的通知行，如织梦下次领取ETA
}

// Failed 站点是否存在最终失败
func (o *SiteOutcome) Failed() bool {
	return len(o.Failures) > 0
}

// PrivilegeSnapshot 用户权益快照（前置过滤输入）
type PrivilegeSnapshot struct {
	LevelName     string `json:"level_name"`
	VIPExpiry     string `json:"vip_expiry"`     // 为空表示VIP已过期/未持有
	RainbowExpiry string `json:"rainbow_expiry"` // 为空表示彩虹ID已过期/未持有
}

// highTierLevels 隐含VIP权益的高等级集合
var highTierLevels = map[string]struct{}{
	"维护开发员": {},
	"主管":    {},
	"总版主":   {},
	"管理员":   {},
	"贵宾":    {},
}

// IsHighTier 等级是否属于高等级集合（高于VIP）
func (p *PrivilegeSnapshot) IsHighTier() bool {
	_, ok := highTierLevels[strings.TrimSpace(p.LevelName)]
	return ok
}

// RetryStatus 站点重试状态（仅在重试循环期间存在）
type RetryStatus struct {
	Site        string    `json:"site"`
	Attempt     int       `json:"attempt"`   // 当前第几次重试
	Remaining   int       `json:"remaining"` // 剩余重试次数
	Bodies      []string  `json:"bodies"`    // 仍未确认的消息正文
	NextFire    time.Time `json:"next_fire"`
	IntervalMin int       `json:"interval_min"`
}

// MailTimeLayout 织梦站内信时间戳的持久化格式
const MailTimeLayout = "2006-01-02 15:04:05"
