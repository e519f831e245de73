// Package dispatcher 是引擎的编排层：加载配置、解析消息、分发适配器、
// 驱动重试循环并聚合通知。通用池与织梦池互不阻塞、各自串行。
package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-chatmsg-core/internal/adapter"
	"github.com/golang-chatmsg-core/internal/adapter/sites"
	"github.com/golang-chatmsg-core/internal/host"
	"github.com/golang-chatmsg-core/internal/logger"
	"github.com/golang-chatmsg-core/internal/model"
	"github.com/golang-chatmsg-core/internal/notify"
	"github.com/golang-chatmsg-core/internal/parser"
	"github.com/golang-chatmsg-core/internal/privilege"
	"github.com/golang-chatmsg-core/internal/retryctl"
	"github.com/golang-chatmsg-core/internal/scheduler"
	"github.com/golang-chatmsg-core/internal/transport"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PluginID 配置存储中的插件作用域
const PluginID = "groupchatmsg"

// 调度任务ID
const (
	JobGeneral = "chatmsg:general"
	JobZ       = "chatmsg:zm"
	JobOnce    = "chatmsg:once"
	JobOnceZ   = "chatmsg:once:zm"
)

const (
	PoolGeneral = "general"
	PoolZ       = "zm"
)

// 手动单次运行的启动延迟
const (
	onceDelay  = 3 * time.Second
	onceDelayZ = 30 * time.Second
)

// Publisher 运行结果的外发通道（消息总线），失败不影响运行
type Publisher interface {
	PublishRun(ctx context.Context, pool, runID string, outcomes []model.SiteOutcome)
}

// Deps 编排层的外部协作件
type Deps struct {
	Sites     host.SiteRegistry
	Store     host.ConfigStore
	Users     host.UserCache
	Sink      host.Sink
	Sched     *scheduler.Scheduler
	Renderer  transport.Renderer
	ProxyURL  string
	Publisher Publisher // 可为 nil
}

// RunState 最近一次运行的快照（状态接口的输出）
type RunState struct {
	Pool     string              `json:"pool"`
	RunID    string              `json:"run_id"`
	StartAt  time.Time           `json:"start_at"`
	EndAt    time.Time           `json:"end_at"`
	Outcomes []model.SiteOutcome `json:"outcomes"`
}

// Dispatcher 两池调度器
// 每池一把锁：同池并发触发时后到者直接放弃，池间互不影响
type Dispatcher struct {
	deps Deps

	generalMu sync.Mutex
	zMu       sync.Mutex

	stateMu  sync.RWMutex
	running  map[string]bool
	lastRuns map[string]RunState
}

// New 创建调度器
func New(deps Deps) *Dispatcher {
	return &Dispatcher{
		deps:     deps,
		running:  make(map[string]bool),
		lastRuns: make(map[string]RunState),
	}
}

// Options 加载用户配置，缺省与越界值已归一化
func (d *Dispatcher) Options() (model.Options, error) {
	opts := model.DefaultOptions()
	if err := d.deps.Store.Get(PluginID, &opts); err != nil {
		return opts, err
	}
	opts.Normalize()
	return opts, nil
}

// SaveOptions 持久化用户配置并重建调度任务
// 选中站点与站点注册表求交；织梦邮件时间由引擎托管，外部写入被忽略
func (d *Dispatcher) SaveOptions(opts model.Options) error {
	stored, err := d.Options()
	if err != nil {
		return err
	}
	opts.ZmMailTime = stored.ZmMailTime
	opts.Normalize()

	if active, err := d.deps.Sites.ActiveSites(); err == nil {
		known := make(map[string]bool, len(active))
		for _, s := range active {
			known[s.ID] = true
		}
		kept := opts.ChatSites[:0]
		for _, id := range opts.ChatSites {
			if known[id] {
				kept = append(kept, id)
			}
		}
		opts.ChatSites = kept
	}

	if err := d.deps.Store.Set(PluginID, &opts); err != nil {
		return err
	}
	return d.RegisterJobs()
}

// RegisterJobs 按当前配置重建两池的调度任务
// 单次运行标志消费后立即复位
func (d *Dispatcher) RegisterJobs() error {
	opts, err := d.Options()
	if err != nil {
		return err
	}

	if opts.OnlyOnce {
		d.deps.Sched.Register(JobOnce, scheduler.Trigger{OneShot: onceDelay}, func() {
			d.RunGeneral(context.Background())
		})
		if opts.ZmIndependent {
			d.deps.Sched.Register(JobOnceZ, scheduler.Trigger{OneShot: onceDelayZ}, func() {
				d.RunZ(context.Background())
			})
		}
		opts.OnlyOnce = false
		if err := d.deps.Store.Set(PluginID, &opts); err != nil {
			logger.Logger.Error("复位单次运行标志失败", zap.Error(err))
		}
	}

	if !opts.Enabled {
		d.deps.Sched.Remove(JobGeneral)
		d.deps.Sched.Remove(JobZ)
		return nil
	}

	tr := scheduler.ParseTrigger(opts.Cron)
	if err := d.deps.Sched.Register(JobGeneral, tr, func() {
		d.RunGeneral(context.Background())
	}); err != nil {
		return err
	}

	if opts.ZmIndependent {
		at := NextZFire(opts.ZmMailTime, time.Now())
		return d.deps.Sched.Register(JobZ, scheduler.Trigger{At: at}, func() {
			d.RunZ(context.Background())
		})
	}
	d.deps.Sched.Remove(JobZ)
	return nil
}

// RunGeneral 执行通用池：织梦独立时排除织梦站点，结束后重建自身任务
func (d *Dispatcher) RunGeneral(ctx context.Context) {
	if !d.generalMu.TryLock() {
		logger.Logger.Info("通用池正在运行，本次触发跳过")
		runsTotal.WithLabelValues(PoolGeneral, "contended").Inc()
		return
	}
	defer d.generalMu.Unlock()
	defer d.recoverRun(PoolGeneral)

	opts, err := d.Options()
	if err != nil {
		logger.Logger.Error("加载配置失败", zap.Error(err))
		runsTotal.WithLabelValues(PoolGeneral, "error").Inc()
		return
	}
	pool, err := d.selectSites(opts, func(s model.Site) bool {
		return !(opts.ZmIndependent && sites.MatchZM(s))
	})
	if err != nil {
		logger.Logger.Error("读取站点列表失败", zap.Error(err))
		runsTotal.WithLabelValues(PoolGeneral, "error").Inc()
		return
	}

	res := d.runPool(ctx, PoolGeneral, opts, pool)
	d.finishRun(ctx, PoolGeneral, opts, res)

	// 随机触发的任务每轮重建，保证次日时刻重新随机
	if err := d.RegisterJobs(); err != nil {
		logger.Logger.Error("重建调度任务失败", zap.Error(err))
	}
}

// RunZ 执行织梦池：只跑织梦站点，结束后按站内信时间推进自调度时钟
func (d *Dispatcher) RunZ(ctx context.Context) {
	if !d.zMu.TryLock() {
		logger.Logger.Info("织梦池正在运行，本次触发跳过")
		runsTotal.WithLabelValues(PoolZ, "contended").Inc()
		return
	}
	defer d.zMu.Unlock()
	defer d.recoverRun(PoolZ)

	opts, err := d.Options()
	if err != nil {
		logger.Logger.Error("加载配置失败", zap.Error(err))
		runsTotal.WithLabelValues(PoolZ, "error").Inc()
		return
	}
	pool, err := d.selectSites(opts, sites.MatchZM)
	if err != nil {
		logger.Logger.Error("读取站点列表失败", zap.Error(err))
		runsTotal.WithLabelValues(PoolZ, "error").Inc()
		return
	}

	res := d.runPool(ctx, PoolZ, opts, pool)
	d.finishRun(ctx, PoolZ, opts, res)
	d.advanceZClock(ctx, res)
}

// selectSites 在激活站点中挑出选中且满足谓词的站点，保持宿主顺序
func (d *Dispatcher) selectSites(opts model.Options, pred func(model.Site) bool) ([]model.Site, error) {
	active, err := d.deps.Sites.ActiveSites()
	if err != nil {
		return nil, err
	}
	chosen := make(map[string]bool, len(opts.ChatSites))
	for _, id := range opts.ChatSites {
		chosen[id] = true
	}
	var pool []model.Site
	for _, s := range active {
		if chosen[s.ID] && pred(s) {
			pool = append(pool, s)
		}
	}
	return pool, nil
}

// runResult 单池运行的聚合产出
type runResult struct {
	runID     string
	startAt   time.Time
	outcomes  []model.SiteOutcome
	statuses  []model.RetryStatus
	bonusMsg  string
	bonusOK   bool
	mailClock adapter.MailboxClock
	mailRead  bool
	mailTime  time.Time
	mailOK    bool
}

// readMailbox 读取织梦站内信时间，一次运行只读一次
func (r *runResult) readMailbox(ctx context.Context) {
	if r.mailClock == nil || r.mailRead {
		return
	}
	r.mailRead = true
	r.mailTime, r.mailOK = r.mailClock.ReadLatestMailboxTime(ctx)
}

// runPool 串行处理池内各站点
func (d *Dispatcher) runPool(ctx context.Context, pool string, opts model.Options, list []model.Site) *runResult {
	res := &runResult{runID: uuid.NewString(), startAt: time.Now()}
	d.setRunning(pool, true)
	defer d.setRunning(pool, false)

	logger.Logger.Info("调度运行开始",
		zap.String("pool", pool),
		zap.String("run_id", res.runID),
		zap.Int("sites", len(list)))

	client := transport.NewClient(transport.Options{
		ProxyURL: d.deps.ProxyURL,
		UseProxy: opts.UseProxy,
		Renderer: d.deps.Renderer,
	})

	selectedNames := make(map[string]bool, len(list))
	for _, s := range list {
		selectedNames[s.Name] = true
	}
	plans := parser.Parse(opts.SitesMessages, selectedNames)

	feedbackWait := time.Duration(opts.FeedbackTimeout) * time.Second
	ctrl := retryctl.New(
		time.Duration(opts.IntervalCnt)*time.Second,
		feedbackWait,
		opts.GetFeedback,
		opts.RetryCount,
		time.Duration(opts.RetryInterval)*time.Minute,
	)

	selector := adapter.NewSelector()
	firstStatus := make(map[string]bool)

	if pool == PoolGeneral && opts.QingwaDailyBonus {
		res.bonusOK, res.bonusMsg = d.buyDailyBonus(ctx, client, list, feedbackWait)
	}

	for _, site := range list {
		msgs := plans[site.Name]
		env := &adapter.Env{
			Site:         site,
			Username:     d.deps.Users.Username(ctx, site.URL),
			Client:       client,
			FeedbackWait: feedbackWait,
		}
		ad := selector.ForSite(env)
		if ad == nil {
			logger.Logger.Warn("站点无可用适配器，已跳过", zap.String("site", site.Name))
			continue
		}
		if pool == PoolZ {
			if mc, ok := ad.(adapter.MailboxClock); ok {
				res.mailClock = mc
			}
		}
		if len(msgs) == 0 {
			continue
		}

		msgs, skipped := d.prefilter(ctx, ad, msgs)
		var outcome *model.SiteOutcome
		if len(msgs) == 0 {
			outcome = &model.SiteOutcome{Site: site.Name}
		} else {
			outcome = ctrl.Run(ctx, ad, site.Name, msgs, func(st model.RetryStatus) {
				if !firstStatus[st.Site] {
					firstStatus[st.Site] = true
					res.statuses = append(res.statuses, st)
				}
			})
		}
		outcome.Skipped = append(outcome.Skipped, skipped...)

		// 织梦的通知附加行依赖站内信时间戳，须在汇总前读到
		if pool == PoolZ {
			res.readMailbox(ctx)
		}
		if ne, ok := ad.(adapter.NotifyExtra); ok {
			outcome.Addenda = append(outcome.Addenda, ne.NotifyExtra()...)
		}
		if opts.GetFeedback && outcome.Success > 0 {
			if line := statsLine(ctx, ad); line != "" {
				outcome.Addenda = append(outcome.Addenda, line)
			}
		}

		sendsTotal.WithLabelValues(site.Name).Add(float64(outcome.Success))
		failuresTotal.WithLabelValues(site.Name).Add(float64(len(outcome.Failures)))
		skipsTotal.WithLabelValues(site.Name).Add(float64(len(outcome.Skipped)))

		res.outcomes = append(res.outcomes, *outcome)
	}
	return res
}

// prefilter 在带权益标签的消息存在时先读权益快照做前置过滤
func (d *Dispatcher) prefilter(ctx context.Context, ad adapter.Adapter, msgs []model.TaggedMessage) ([]model.TaggedMessage, []model.BodyReason) {
	tagged := false
	for _, m := range msgs {
		if m.Tag != model.TagNone {
			tagged = true
			break
		}
	}
	if !tagged {
		return msgs, nil
	}
	pr, ok := ad.(adapter.PrivilegeReader)
	if !ok {
		return msgs, nil
	}
	return privilege.Filter(msgs, pr.ReadUserPrivileges(ctx))
}

// buyDailyBonus 在首个青蛙站点上购买每日福利，一次运行至多执行一次
func (d *Dispatcher) buyDailyBonus(ctx context.Context, client *transport.Client, list []model.Site, feedbackWait time.Duration) (bool, string) {
	for _, site := range list {
		if !sites.MatchQingwa(site) {
			continue
		}
		qw := sites.NewQingwa(&adapter.Env{
			Site:         site,
			Username:     d.deps.Users.Username(ctx, site.URL),
			Client:       client,
			FeedbackWait: feedbackWait,
		})
		ok, msg := qw.BuyDailyBonus(ctx)
		logger.Logger.Info("青蛙每日福利",
			zap.String("site", site.Name), zap.Bool("ok", ok), zap.String("result", msg))
		return ok, msg
	}
	return false, ""
}

// statsLine 读取用户计数器快照，作为通知里的站点上下文行
func statsLine(ctx context.Context, ad adapter.Adapter) string {
	sr, ok := ad.(adapter.StatsReader)
	if !ok {
		return ""
	}
	stats := sr.ReadUserStats(ctx)
	if len(stats) == 0 {
		return ""
	}
	var parts []string
	if v := stats["upload"]; v != "" {
		parts = append(parts, "上传 "+v)
	}
	if v := stats["bonus"]; v != "" {
		parts = append(parts, "魔力 "+v)
	}
	if len(parts) == 0 {
		return ""
	}
	return "站点快照：" + strings.Join(parts, " · ")
}

// finishRun 记录运行状态、发送至多两条通知并外发结果
func (d *Dispatcher) finishRun(ctx context.Context, pool string, opts model.Options, res *runResult) {
	d.stateMu.Lock()
	d.lastRuns[pool] = RunState{
		Pool:     pool,
		RunID:    res.runID,
		StartAt:  res.startAt,
		EndAt:    time.Now(),
		Outcomes: res.outcomes,
	}
	d.stateMu.Unlock()
	runsTotal.WithLabelValues(pool, "ok").Inc()

	logger.Logger.Info("调度运行结束",
		zap.String("pool", pool),
		zap.String("run_id", res.runID),
		zap.Int("outcomes", len(res.outcomes)),
		zap.Int("pending", len(res.statuses)))

	if opts.Notify {
		report := notify.RunReport{
			Outcomes: res.outcomes,
			Statuses: res.statuses,
			BonusMsg: res.bonusMsg,
			BonusOK:  res.bonusOK,
			Stamp:    time.Now(),
		}
		if title, text, ok := notify.BuildReport(report); ok {
			if err := d.deps.Sink.Post("plugin", title, text); err != nil {
				logger.Logger.Error("运行报告投递失败", zap.Error(err))
			}
		}
		if title, text, ok := notify.BuildRetryPending(res.statuses); ok {
			if err := d.deps.Sink.Post("plugin", title, text); err != nil {
				logger.Logger.Error("重试提示投递失败", zap.Error(err))
			}
		}
	}

	if d.deps.Publisher != nil && len(res.outcomes) > 0 {
		d.deps.Publisher.PublishRun(ctx, pool, res.runID, res.outcomes)
	}
}

// advanceZClock 按运行期间读到的站内信时间推进织梦池时钟
// 持久化的时间戳只前进不后退；读取失败时一小时后重试
func (d *Dispatcher) advanceZClock(ctx context.Context, res *runResult) {
	now := time.Now()
	next := now.Add(time.Hour)

	opts, err := d.Options()
	if err != nil {
		logger.Logger.Error("加载配置失败", zap.Error(err))
		return
	}
	if !opts.ZmIndependent {
		return
	}

	if res.mailClock != nil {
		// 站点无消息可发时运行中不会读信，这里补读
		res.readMailbox(ctx)
		if res.mailOK {
			if res.mailTime.After(ParseMailTime(opts.ZmMailTime)) {
				opts.ZmMailTime = res.mailTime.Format(model.MailTimeLayout)
				if err := d.deps.Store.Set(PluginID, &opts); err != nil {
					logger.Logger.Error("持久化织梦邮件时间失败", zap.Error(err))
				}
			}
			if fire := NextZFire(opts.ZmMailTime, now); fire.After(now) {
				next = fire
			} else {
				logger.Logger.Debug("织梦邮件时间已陈旧，一小时后重试")
			}
		} else {
			logger.Logger.Warn("未读到织梦电力礼物邮件，一小时后重试")
		}
	}

	if err := d.deps.Sched.Register(JobZ, scheduler.Trigger{At: next}, func() {
		d.RunZ(context.Background())
	}); err != nil {
		logger.Logger.Error("重建织梦池任务失败", zap.Error(err))
	}
	logger.Logger.Info("织梦池下次运行时间", zap.Time("at", next))
}

func (d *Dispatcher) setRunning(pool string, v bool) {
	d.stateMu.Lock()
	d.running[pool] = v
	d.stateMu.Unlock()
}

// Status 状态快照（管理接口的输出）
type Status struct {
	Running  map[string]bool     `json:"running"`
	LastRuns map[string]RunState `json:"last_runs"`
	Adapters []string            `json:"adapters"`
}

// Status 返回两池的运行状态与最近一次运行结果
func (d *Dispatcher) Status() Status {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	st := Status{
		Running:  make(map[string]bool, len(d.running)),
		LastRuns: make(map[string]RunState, len(d.lastRuns)),
		Adapters: adapter.RegisteredNames(),
	}
	for k, v := range d.running {
		st.Running[k] = v
	}
	for k, v := range d.lastRuns {
		st.LastRuns[k] = v
	}
	return st
}

func (d *Dispatcher) recoverRun(pool string) {
	if r := recover(); r != nil {
		runsTotal.WithLabelValues(pool, "panic").Inc()
		logger.Logger.Error("调度运行异常退出",
			zap.String("pool", pool),
			zap.String("panic", fmt.Sprint(r)))
	}
}
