package host

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-chatmsg-core/internal/logger"
	"go.uber.org/zap"
)

// Sink 通知下沉
type Sink interface {
	Post(kind, title, text string) error
}

// WebhookSink 以 JSON POST 投递到宿主的通知网关
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink 创建 Webhook 下沉
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Post 投递一条通知
func (s *WebhookSink) Post(kind, title, text string) error {
	payload, err := json.Marshal(map[string]string{
		"kind":  kind,
		"title": title,
		"text":  text,
	})
	if err != nil {
		return fmt.Errorf("序列化通知失败: %w", err)
	}
	resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("投递通知失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("通知网关返回 %d", resp.StatusCode)
	}
	return nil
}

// LogSink 未配置通知网关时写日志兜底
type LogSink struct{}

// Post 输出到日志
func (LogSink) Post(kind, title, text string) error {
	logger.Logger.Info("通知",
		zap.String("kind", kind),
		zap.String("title", title),
		zap.String("text", text))
	return nil
}
