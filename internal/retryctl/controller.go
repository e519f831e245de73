// Package retryctl 实现单站点的"发送-收集失败-等待-重试"循环。
// 轮次有界、轮间统一间隔；重试等待状态交由调度器跨站点合并通知。
package retryctl

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-chatmsg-core/internal/adapter"
	"github.com/golang-chatmsg-core/internal/logger"
	"github.com/golang-chatmsg-core/internal/model"
	"go.uber.org/zap"
)

// Controller 重试控制器
// Sleep/Now 可注入，测试时替换为虚拟时钟
type Controller struct {
	MsgDelay     time.Duration // 消息间隔 D_msg
	FeedbackWait time.Duration // 反馈前等待 D_fb
	FeedbackOn   bool          // 是否读取反馈
	MaxRetry     int           // 最大重试轮数 R
	Interval     time.Duration // 轮间间隔 I

	Sleep func(ctx context.Context, d time.Duration)
	Now   func() time.Time
}

// New 创建控制器，使用真实时钟
func New(msgDelay, feedbackWait time.Duration, feedbackOn bool, maxRetry int, interval time.Duration) *Controller {
	return &Controller{
		MsgDelay:     msgDelay,
		FeedbackWait: feedbackWait,
		FeedbackOn:   feedbackOn,
		MaxRetry:     maxRetry,
		Interval:     interval,
		Sleep:        sleepCtx,
		Now:          time.Now,
	}
}

// Run 驱动单站点的重试循环
// onStatus 在每个未清空队列的轮次结束时收到一次重试等待状态；
// 同一轮内不重发，发送异常等价于 (false, 异常文本)
func (c *Controller) Run(ctx context.Context, ad adapter.Adapter, siteName string, msgs []model.TaggedMessage, onStatus func(model.RetryStatus)) *model.SiteOutcome {
	outcome := &model.SiteOutcome{Site: siteName}
	queue := msgs

	for round := 0; round <= c.MaxRetry && len(queue) > 0; round++ {
		var next []model.TaggedMessage

		for i, msg := range queue {
			ok, reason := safeSend(ctx, ad, msg.Body)
			if ok {
				outcome.Success++
				if c.FeedbackOn {
					c.Sleep(ctx, c.FeedbackWait)
					if fb := ad.ReadFeedback(ctx, msg.Body); fb != nil {
						outcome.Feedbacks = append(outcome.Feedbacks, *fb)
					}
				}
			} else {
				next = append(next, msg)
				if round == c.MaxRetry {
					outcome.Failures = append(outcome.Failures, model.BodyReason{
						Body: msg.Body, Reason: reason,
					})
				}
				logger.Logger.Debug("喊话发送失败",
					zap.String("site", siteName),
					zap.String("body", msg.Body),
					zap.Int("round", round),
					zap.String("reason", reason))
			}
			if i != len(queue)-1 {
				c.Sleep(ctx, c.MsgDelay)
			}
		}

		queue = next
		if len(queue) > 0 && round < c.MaxRetry {
			bodies := make([]string, len(queue))
			for i, m := range queue {
				bodies[i] = m.Body
			}
			if onStatus != nil {
				onStatus(model.RetryStatus{
					Site:        siteName,
					Attempt:     round + 1,
					Remaining:   c.MaxRetry - round,
					Bodies:      bodies,
					NextFire:    c.Now().Add(c.Interval),
					IntervalMin: int(c.Interval / time.Minute),
				})
			}
			c.Sleep(ctx, c.Interval)
		}
	}
	return outcome
}

// safeSend 发送一条消息，panic 归一化为失败
func safeSend(ctx context.Context, ad adapter.Adapter, body string) (ok bool, reason string) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			reason = fmt.Sprintf("发送异常: %v", r)
		}
	}()
	return ad.Send(ctx, body)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
