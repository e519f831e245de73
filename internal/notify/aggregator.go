// Package notify 把一次运行的各站点结果合并为至多两条通知：
// 一条运行报告，一条重试等待提示。
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-chatmsg-core/internal/model"
)

// kindIcons 奖励类型到图标的固定映射
var kindIcons = map[model.RewardKind]string{
	model.KindUpload:     "⬆",
	model.KindDownload:   "⬇",
	model.KindBonus:      "✨",
	model.KindWorkPoints: "🔧",
	model.KindPower:      "⚡",
	model.KindVicomo:     "🐘",
	model.KindFrog:       "🐸",
	model.KindVIP:        "👑",
	model.KindRainbowID:  "🌈",
	model.KindRaw:        "📝",
}

const otherIcon = "📌"

// Icon 奖励类型对应的图标
func Icon(kind model.RewardKind) string {
	if icon, ok := kindIcons[kind]; ok {
		return icon
	}
	return otherIcon
}

// RunReport 一次调度运行的汇总输入
type RunReport struct {
	Outcomes []model.SiteOutcome
	Statuses []model.RetryStatus
	BonusMsg string // 青蛙每日福利结果行，空表示未执行
	BonusOK  bool
	Stamp    time.Time
}

// BuildReport 生成运行报告
// 没有任何喊话结果、仅执行了每日福利时退化为单行报告；
// 两者都没有时返回 ok=false，不发通知
func BuildReport(r RunReport) (title, text string, ok bool) {
	if len(r.Outcomes) == 0 {
		if r.BonusMsg == "" {
			return "", "", false
		}
		state := "成功"
		if !r.BonusOK {
			state = "失败"
		}
		return "【青蛙每日福利】",
			fmt.Sprintf("购买%s：%s\n⏱ %s", state, r.BonusMsg, r.Stamp.Format(model.MailTimeLayout)),
			true
	}

	var okSites, failSites []string
	for _, o := range r.Outcomes {
		if o.Failed() {
			failSites = append(failSites, o.Site)
		} else {
			okSites = append(okSites, o.Site)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "共 %d 个站点，成功 %d 个，失败 %d 个\n",
		len(r.Outcomes), len(okSites), len(failSites))
	if len(okSites) > 0 {
		fmt.Fprintf(&b, "✅ %s\n", strings.Join(okSites, "、"))
	}
	if len(failSites) > 0 {
		fmt.Fprintf(&b, "❌ %s\n", strings.Join(failSites, "、"))
	}

	for _, o := range r.Outcomes {
		b.WriteString("\n▶ " + o.Site + "\n")
		for _, f := range o.Failures {
			fmt.Fprintf(&b, "  ❌ %s：%s\n", f.Body, f.Reason)
		}
		for _, fb := range o.Feedbacks {
			for _, reward := range fb.Rewards {
				b.WriteString("  " + Icon(reward.Kind) + " " + rewardLine(reward) + "\n")
			}
		}
		for _, s := range o.Skipped {
			fmt.Fprintf(&b, "  ⏭ %s：%s\n", s.Body, s.Reason)
		}
		for _, extra := range o.Addenda {
			b.WriteString("  ℹ " + extra + "\n")
		}
	}

	if r.BonusMsg != "" {
		state := "成功"
		if !r.BonusOK {
			state = "失败"
		}
		fmt.Fprintf(&b, "\n🐸 每日福利购买%s：%s\n", state, r.BonusMsg)
	}
	fmt.Fprintf(&b, "\n⏱ %s", r.Stamp.Format(model.MailTimeLayout))
	return "【群聊区喊话结果】", b.String(), true
}

// rewardLine 单条奖励的展示行
func rewardLine(r model.Reward) string {
	if r.Amount == 0 {
		return r.Description
	}
	sign := ""
	if r.Negative {
		sign = "-"
	}
	amount := strings.TrimSuffix(fmt.Sprintf("%.2f", r.Amount), ".00")
	return fmt.Sprintf("%s%s%s（%s）", sign, amount, r.Unit, r.Description)
}

// BuildRetryPending 生成重试等待通知
// 各站点状态共享同一轮间隔；下次触发时间取首个状态的值
func BuildRetryPending(statuses []model.RetryStatus) (title, text string, ok bool) {
	if len(statuses) == 0 {
		return "", "", false
	}

	first := statuses[0]
	var b strings.Builder
	fmt.Fprintf(&b, "以下消息将在 %s 后重试（间隔 %d 分钟）\n",
		first.NextFire.Format("15:04:05"), first.IntervalMin)
	for _, s := range statuses {
		fmt.Fprintf(&b, "\n▶ %s（第 %d 次重试，剩余 %d 次）\n", s.Site, s.Attempt, s.Remaining)
		for _, body := range s.Bodies {
			b.WriteString("  · " + body + "\n")
		}
	}
	return "【群聊区喊话待重试】", b.String(), true
}
