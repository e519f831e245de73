package dispatcher

import (
	"time"

	"github.com/golang-chatmsg-core/internal/model"
)

// 织梦电力礼物的发放周期
const zCycle = 24 * time.Hour

// ParseMailTime 解析持久化的邮件时间戳，空串或非法返回零值
func ParseMailTime(stored string) time.Time {
	if stored == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(model.MailTimeLayout, stored, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// NextZFire 计算织梦池的下次触发时间
// 未初始化或已超过一个周期时立即触发，否则在上次邮件时间 + 24h 触发
func NextZFire(stored string, now time.Time) time.Time {
	t := ParseMailTime(stored)
	if t.IsZero() {
		return now
	}
	next := t.Add(zCycle)
	if !next.After(now) {
		return now
	}
	return next
}
