package sites

import (
	"context"
	"net/url"
	"strings"

	"github.com/golang-chatmsg-core/internal/adapter"
	"github.com/golang-chatmsg-core/internal/classify"
	"github.com/golang-chatmsg-core/internal/model"
	"github.com/golang-chatmsg-core/internal/transport"
)

// Vicomo 象站适配器
// 站点把奖励文本放在响应体的 window.alert(…) 里返回，
// 发送时即捕获该字面量，读反馈时优先使用，不再重抓列表
type Vicomo struct {
	*adapter.Generic
	lastAlert string
}

// NewVicomo 创建象站适配器
func NewVicomo(env *adapter.Env) *Vicomo {
	return &Vicomo{Generic: adapter.NewGeneric(env)}
}

// MatchVicomo 象站匹配谓词
func MatchVicomo(site model.Site) bool {
	return strings.Contains(site.Name, "象站") || strings.Contains(site.URL, "ptvicomo")
}

// Name 适配器名称
func (v *Vicomo) Name() string { return "vicomo" }

// Send 发送喊话并截取响应中的 alert 字面量
func (v *Vicomo) Send(ctx context.Context, body string) (bool, string) {
	env := v.Env()
	form := url.Values{}
	form.Set("shbox_text", body)
	form.Set("shout", "我喊")
	form.Set("sent", "yes")
	form.Set("type", "shoutbox")

	resp, err := env.Client.Post(ctx, transport.Request{
		URL:       adapter.JoinURL(env.Site.URL, "shoutbox.php"),
		Cookie:    env.Site.Cookie,
		UserAgent: env.Site.UserAgent,
		Form:      form,
		Render:    env.Site.RenderByBrowser,
		WantOK:    true,
	})
	if err != nil {
		return false, "群聊区不可达: " + err.Error()
	}

	text := resp.Text()
	if msg := adapter.AlertMessage(text); msg != "" {
		v.lastAlert = msg
		return true, msg
	}
	if strings.Contains(text, body) {
		return true, "已发送"
	}
	return false, "页面中未见发送回执"
}

// ReadFeedback 优先解析发送时捕获的 alert 文本，退化为通用扫描
func (v *Vicomo) ReadFeedback(ctx context.Context, body string) *model.FeedbackRecord {
	if v.lastAlert != "" {
		alert := v.lastAlert
		v.lastAlert = ""
		if fb := classify.Classify(v.Env().Site.Name, body, alert); fb != nil {
			return fb
		}
	}
	return v.Generic.ReadFeedback(ctx, body)
}
