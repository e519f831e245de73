package scheduler

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-chatmsg-core/internal/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// 三种周期语法：
//   1. 标准5段cron：      "0 9 * * *"
//   2. 区间形式：          "H/HStart-HEnd"，如 "2/9-23" 表示 9~23 点每 2 小时
//   3. 纯小时数：          "6" 或 "1.5"
// 小于1小时的周期一律替换为 [9,23] 点内的随机每日时刻，替换不提示到界面、仅记日志

var intervalFormRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)/(\d{1,2})-(\d{1,2})$`)

// ParseTrigger 解析用户的周期配置
// 永不报错：非法输入与过短周期都落到随机每日触发
func ParseTrigger(raw string) Trigger {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RandomDaily()
	}

	// 区间形式 H/HStart-HEnd
	if m := intervalFormRe.FindStringSubmatch(raw); m != nil {
		hours, _ := strconv.ParseFloat(m[1], 64)
		start, _ := strconv.Atoi(m[2])
		end, _ := strconv.Atoi(m[3])
		if hours < 1 {
			logger.Logger.Warn("周期小于1小时，已替换为随机时刻", zap.String("cron", raw))
			return RandomDaily()
		}
		if start < 0 || start > 23 || end < start || end > 23 {
			logger.Logger.Warn("区间形式非法，已替换为随机时刻", zap.String("cron", raw))
			return RandomDaily()
		}
		expr := fmt.Sprintf("0 %d-%d/%d * * *", start, end, int(hours))
		return Trigger{CronExpr: expr}
	}

	// 标准5段cron
	if len(strings.Fields(raw)) == 5 {
		if _, err := cron.ParseStandard(raw); err != nil {
			logger.Logger.Warn("cron表达式非法，已替换为随机时刻",
				zap.String("cron", raw), zap.Error(err))
			return RandomDaily()
		}
		return Trigger{CronExpr: raw}
	}

	// 纯小时数
	if hours, err := strconv.ParseFloat(raw, 64); err == nil {
		if hours < 1 {
			logger.Logger.Warn("周期小于1小时，已替换为随机时刻", zap.String("cron", raw))
			return RandomDaily()
		}
		return Trigger{CronExpr: fmt.Sprintf("@every %s", time.Duration(hours*float64(time.Hour)).String())}
	}

	logger.Logger.Warn("无法识别的周期配置，已替换为随机时刻", zap.String("cron", raw))
	return RandomDaily()
}

// RandomDaily 随机每日触发：[9,23] 点内的随机时刻
func RandomDaily() Trigger {
	hour := 9 + rand.Intn(15)
	minute := rand.Intn(60)
	return Trigger{CronExpr: fmt.Sprintf("%d %d * * *", minute, hour)}
}
