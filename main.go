package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-chatmsg-core/config"
	"github.com/golang-chatmsg-core/internal/api"
	_ "github.com/golang-chatmsg-core/internal/adapter/sites" // 导入以触发适配器自动注册
	"github.com/golang-chatmsg-core/internal/dispatcher"
	"github.com/golang-chatmsg-core/internal/host"
	"github.com/golang-chatmsg-core/internal/logger"
	"github.com/golang-chatmsg-core/internal/relay"
	"github.com/golang-chatmsg-core/internal/scheduler"
	"github.com/golang-chatmsg-core/internal/transport"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	// 支持通过环境变量 APP_ENV 或命令行参数指定环境
	// 环境变量优先级: 命令行参数 > 环境变量 APP_ENV > 默认 dev
	configPath := ""
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "prod" || arg == "production" {
			configPath = "config/config.prod.yaml"
		} else if arg == "test" || arg == "testing" {
			configPath = "config/config.test.yaml"
		} else if arg == "dev" || arg == "development" {
			configPath = "config/config.yaml"
		} else if len(arg) > 0 && arg[0] != '-' {
			configPath = arg
		}
	}

	if err := config.Load(configPath); err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}

	// 初始化日志
	if err := logger.InitLogger(); err != nil {
		panic(fmt.Sprintf("初始化日志失败: %v", err))
	}
	defer logger.Sync()

	// 初始化数据库（站点注册表与插件配置存储）
	db, err := host.OpenDB(config.Cfg.Database.Path)
	if err != nil {
		logger.Logger.Fatal("初始化数据库失败", zap.Error(err))
	}

	// 初始化 Redis（用户名缓存，可选）
	var rdb *redis.Client
	if config.Cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     config.Cfg.Redis.GetAddr(),
			Password: config.Cfg.Redis.Password,
			DB:       config.Cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Logger.Warn("初始化 Redis 失败，退化为内存缓存", zap.Error(err))
			rdb = nil
		}
		cancel()
	}

	// 无头浏览器渲染器（可选）
	var renderer transport.Renderer
	if config.Cfg.Browser.Enabled {
		renderer = transport.NewChromeRenderer(config.Cfg.Browser.ExecPath)
		logger.Logger.Info("浏览器渲染已启用")
	}

	// 通知下沉：优先走宿主的通知网关
	var sink host.Sink = host.LogSink{}
	if config.Cfg.Notify.WebhookURL != "" {
		sink = host.NewWebhookSink(config.Cfg.Notify.WebhookURL)
	}

	// 运行结果外发（可选）
	var publisher dispatcher.Publisher
	if len(config.Cfg.Kafka.Brokers) > 0 && config.Cfg.Kafka.Topic != "" {
		kr := relay.NewKafkaRelay(config.Cfg.Kafka.Brokers, config.Cfg.Kafka.Topic)
		defer func() {
			if err := kr.Close(); err != nil {
				logger.Logger.Error("关闭消息总线失败", zap.Error(err))
			}
		}()
		publisher = kr
		logger.Logger.Info("运行结果外发已启用", zap.String("topic", config.Cfg.Kafka.Topic))
	}

	sched := scheduler.New()
	defer sched.Stop()

	users := host.NewUserCache(rdb)
	disp := dispatcher.New(dispatcher.Deps{
		Sites:     host.NewGormSiteRegistry(db),
		Store:     host.NewGormStore(db),
		Users:     users,
		Sink:      sink,
		Sched:     sched,
		Renderer:  renderer,
		ProxyURL:  config.Cfg.Proxy.URL,
		Publisher: publisher,
	})

	// 适配器已通过 init() 自动注册（导入 sites 包时触发）
	if err := disp.RegisterJobs(); err != nil {
		logger.Logger.Error("注册调度任务失败", zap.Error(err))
	}

	// 管理接口
	srv := api.NewServer(disp, users)
	go func() {
		logger.Logger.Info("服务器启动",
			zap.Int("port", config.Cfg.App.Port),
			zap.String("mode", config.Cfg.App.Mode),
		)
		if err := srv.Run(); err != nil {
			logger.Logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("服务器强制关闭", zap.Error(err))
	}

	logger.Logger.Info("服务器已关闭")
}
