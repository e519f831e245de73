package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-chatmsg-core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stamp = time.Date(2026, 8, 30, 12, 0, 0, 0, time.Local)

func TestIcon(t *testing.T) {
	assert.Equal(t, "⚡", Icon(model.KindPower))
	assert.Equal(t, "👑", Icon(model.KindVIP))
	assert.Equal(t, "📝", Icon(model.KindRaw))
	// 未知类型用图钉兜底
	assert.Equal(t, "📌", Icon(model.KindOther))
	assert.Equal(t, "📌", Icon(model.RewardKind("beer")))
}

// TestBuildReport_Empty 没有结果也没有福利时不发通知
func TestBuildReport_Empty(t *testing.T) {
	_, _, ok := BuildReport(RunReport{Stamp: stamp})
	assert.False(t, ok)
}

// TestBuildReport_BonusOnly 仅执行每日福利时退化为单行报告
func TestBuildReport_BonusOnly(t *testing.T) {
	title, text, ok := BuildReport(RunReport{
		BonusMsg: "今日福利已领取过", BonusOK: true, Stamp: stamp,
	})
	require.True(t, ok)
	assert.Equal(t, "【青蛙每日福利】", title)
	assert.Contains(t, text, "购买成功：今日福利已领取过")
	assert.Contains(t, text, "2026-08-30 12:00:00")
}

// TestBuildReport_Full 完整报告包含汇总、失败明细、奖励行与附加行
func TestBuildReport_Full(t *testing.T) {
	report := RunReport{
		Outcomes: []model.SiteOutcome{
			{
				Site:    "织梦",
				Success: 1,
				Feedbacks: []model.FeedbackRecord{{
					Site: "织梦", Message: "求电力",
					Rewards: []model.Reward{{Kind: model.KindPower, Description: "赠送 5 电力", Amount: 5, Unit: "电力"}},
				}},
				Addenda: []string{"织梦下次电力礼物约在 2026-08-31 10:00:00"},
			},
			{
				Site:     "青蛙",
				Failures: []model.BodyReason{{Body: "求上传", Reason: "站点限制发送频率"}},
				Skipped:  []model.BodyReason{{Body: "求vip", Reason: "VIP尚未到期（至 2026-12-31 00:00:00）"}},
			},
		},
		BonusMsg: "每日福利购买成功",
		BonusOK:  true,
		Stamp:    stamp,
	}

	title, text, ok := BuildReport(report)
	require.True(t, ok)
	assert.Equal(t, "【群聊区喊话结果】", title)
	assert.Contains(t, text, "共 2 个站点，成功 1 个，失败 1 个")
	assert.Contains(t, text, "✅ 织梦")
	assert.Contains(t, text, "❌ 青蛙")
	assert.Contains(t, text, "⚡ 5电力（赠送 5 电力）")
	assert.Contains(t, text, "❌ 求上传：站点限制发送频率")
	assert.Contains(t, text, "⏭ 求vip")
	assert.Contains(t, text, "ℹ 织梦下次电力礼物约在")
	assert.Contains(t, text, "🐸 每日福利购买成功")
	assert.True(t, strings.HasSuffix(text, "⏱ 2026-08-30 12:00:00"))
}

// TestRewardLine 数值格式化：整数去掉小数位，负向带负号
func TestRewardLine(t *testing.T) {
	assert.Equal(t, "100魔力（赠送魔力）",
		rewardLine(model.Reward{Kind: model.KindBonus, Amount: 100, Unit: "魔力", Description: "赠送魔力"}))
	assert.Equal(t, "3.50G（奖励上传）",
		rewardLine(model.Reward{Kind: model.KindUpload, Amount: 3.5, Unit: "G", Description: "奖励上传"}))
	assert.Equal(t, "-100魔力（扣除魔力）",
		rewardLine(model.Reward{Kind: model.KindBonus, Amount: 100, Unit: "魔力", Negative: true, Description: "扣除魔力"}))
	// 无数值时只展示原文
	assert.Equal(t, "已开通VIP", rewardLine(model.Reward{Kind: model.KindVIP, Description: "已开通VIP"}))
}

func TestBuildRetryPending(t *testing.T) {
	_, _, ok := BuildRetryPending(nil)
	assert.False(t, ok)

	next := time.Date(2026, 8, 30, 12, 10, 0, 0, time.Local)
	title, text, ok := BuildRetryPending([]model.RetryStatus{
		{Site: "织梦", Attempt: 1, Remaining: 3, Bodies: []string{"求电力"}, NextFire: next, IntervalMin: 10},
		{Site: "青蛙", Attempt: 1, Remaining: 3, Bodies: []string{"求上传", "求魔力"}, NextFire: next, IntervalMin: 10},
	})
	require.True(t, ok)
	assert.Equal(t, "【群聊区喊话待重试】", title)
	assert.Contains(t, text, "12:10:00")
	assert.Contains(t, text, "间隔 10 分钟")
	assert.Contains(t, text, "▶ 织梦（第 1 次重试，剩余 3 次）")
	assert.Contains(t, text, "· 求上传")
	assert.Contains(t, text, "· 求魔力")
}
