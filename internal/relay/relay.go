// Package relay 把每次调度运行的结果投递到消息总线，
// 供宿主侧的统计与审计链路消费。投递失败只记日志，不影响运行。
package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang-chatmsg-core/internal/logger"
	"github.com/golang-chatmsg-core/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// runEvent 外发的运行结果事件
type runEvent struct {
	Pool     string              `json:"pool"`
	RunID    string              `json:"run_id"`
	Stamp    time.Time           `json:"stamp"`
	Outcomes []model.SiteOutcome `json:"outcomes"`
}

// KafkaRelay 运行结果外发通道
type KafkaRelay struct {
	writer *kafka.Writer
}

// NewKafkaRelay 创建外发通道
func NewKafkaRelay(brokers []string, topic string) *KafkaRelay {
	return &KafkaRelay{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// PublishRun 投递一次运行的结果，失败不上抛
func (r *KafkaRelay) PublishRun(ctx context.Context, pool, runID string, outcomes []model.SiteOutcome) {
	event := runEvent{
		Pool:     pool,
		RunID:    runID,
		Stamp:    time.Now(),
		Outcomes: outcomes,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Logger.Error("运行事件序列化失败", zap.Error(err))
		return
	}
	err = r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(runID),
		Value: payload,
	})
	if err != nil {
		logger.Logger.Warn("运行事件投递失败",
			zap.String("run_id", runID), zap.Error(err))
		return
	}
	logger.Logger.Debug("运行事件已投递",
		zap.String("pool", pool), zap.String("run_id", runID))
}

// Close 关闭外发通道
func (r *KafkaRelay) Close() error {
	return r.writer.Close()
}
