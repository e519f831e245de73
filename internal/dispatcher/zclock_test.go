package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseMailTime(t *testing.T) {
	got := ParseMailTime("2026-08-29 10:30:00")
	assert.Equal(t, time.Date(2026, 8, 29, 10, 30, 0, 0, time.Local), got)

	assert.True(t, ParseMailTime("").IsZero())
	assert.True(t, ParseMailTime("昨天").IsZero())
	assert.True(t, ParseMailTime("2026-08-29").IsZero())
}

// TestNextZFire 下次触发 = 邮件时间 + 24h，已过期或未初始化时立即触发
func TestNextZFire(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.Local)

	// 未初始化：立即
	assert.Equal(t, now, NextZFire("", now))
	// 非法时间戳：立即
	assert.Equal(t, now, NextZFire("不是时间", now))

	// 12小时前收到礼物：12小时后触发
	got := NextZFire("2026-08-30 00:00:00", now)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.Local), got)

	// 超过24小时未领：立即
	assert.Equal(t, now, NextZFire("2026-08-28 00:00:00", now))
	// 恰好到期：立即
	assert.Equal(t, now, NextZFire("2026-08-29 12:00:00", now))
}
