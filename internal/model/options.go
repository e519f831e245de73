package model

// Options 引擎的用户配置项
// 持久化于插件配置存储，键名与历史配置保持一致
type Options struct {
	Enabled          bool     `json:"enabled"`
	Notify           bool     `json:"notify"`
	OnlyOnce         bool     `json:"onlyonce"`
	Cron             string   `json:"cron"`               // 5段cron / H/HStart-HEnd / 纯小时数
	IntervalCnt      int      `json:"interval_cnt"`       // 消息间隔秒数 D_msg
	FeedbackTimeout  int      `json:"feedback_timeout"`   // 反馈等待秒数 D_fb
	UseProxy         bool     `json:"use_proxy"`
	GetFeedback      bool     `json:"get_feedback"`
	ZmIndependent    bool     `json:"zm_independent"`     // 织梦池独立调度
	QingwaDailyBonus bool     `json:"qingwa_daily_bonus"` // 青蛙每日福利
	RetryCount       int      `json:"retry_count"`        // R
	RetryInterval    int      `json:"retry_interval"`     // I，分钟
	ChatSites        []string `json:"chat_sites"`         // 选中的站点ID，保序
	SitesMessages    string   `json:"sites_messages"`     // 自由文本，见消息解析器
	ZmMailTime       string   `json:"zm_mail_time"`       // 织梦最近电力邮件时间，引擎托管
}

// Normalize 约束各项取值到合法范围并补默认值
func (o *Options) Normalize() {
	if o.IntervalCnt != 1 && o.IntervalCnt != 2 {
		o.IntervalCnt = 2
	}
	if o.FeedbackTimeout < 1 || o.FeedbackTimeout > 5 {
		o.FeedbackTimeout = 5
	}
	if o.RetryCount < 0 {
		o.RetryCount = 3
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 10
	}
}

// DefaultOptions 默认用户配置
func DefaultOptions() Options {
	return Options{
		Notify:          true,
		IntervalCnt:     2,
		FeedbackTimeout: 5,
		GetFeedback:     true,
		RetryCount:      3,
		RetryInterval:   10,
	}
}
