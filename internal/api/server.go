// Package api 提供插件的管理接口：手动触发、状态查询与配置读写。
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-chatmsg-core/config"
	"github.com/golang-chatmsg-core/internal/dispatcher"
	"github.com/golang-chatmsg-core/internal/host"
	"github.com/golang-chatmsg-core/internal/model"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server 管理接口服务
type Server struct {
	disp  *dispatcher.Dispatcher
	users host.UserCache
	http  *http.Server
}

// NewServer 创建管理接口服务
func NewServer(disp *dispatcher.Dispatcher, users host.UserCache) *Server {
	s := &Server{disp: disp, users: users}

	gin.SetMode(config.Cfg.App.Mode)
	r := gin.New()
	r.Use(Logger())
	r.Use(Recovery())
	r.Use(Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": config.Cfg.App.Name,
			"version": config.Cfg.App.Version,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1", Auth())
	{
		run := api.Group("/run")
		{
			run.POST("/general", s.runGeneral) // 手动触发通用池
			run.POST("/zm", s.runZ)            // 手动触发织梦池
		}
		api.GET("/status", s.status)
		api.GET("/config", s.getConfig)
		api.PUT("/config", s.putConfig)
		api.PUT("/username", s.putUsername)
	}

	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Cfg.App.Port),
		Handler: r,
	}
	return s
}

// Run 启动服务，阻塞直到关闭
func (s *Server) Run() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("管理接口启动失败: %w", err)
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// runGeneral 异步触发通用池，已在跑时由池锁内部跳过
func (s *Server) runGeneral(c *gin.Context) {
	go s.disp.RunGeneral(context.Background())
	ok(c, gin.H{"pool": dispatcher.PoolGeneral})
}

func (s *Server) runZ(c *gin.Context) {
	go s.disp.RunZ(context.Background())
	ok(c, gin.H{"pool": dispatcher.PoolZ})
}

func (s *Server) status(c *gin.Context) {
	ok(c, s.disp.Status())
}

func (s *Server) getConfig(c *gin.Context) {
	opts, err := s.disp.Options()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	ok(c, opts)
}

func (s *Server) putConfig(c *gin.Context) {
	var opts model.Options
	if err := c.ShouldBindJSON(&opts); err != nil {
		fail(c, http.StatusBadRequest, "配置格式错误: "+err.Error())
		return
	}
	if err := s.disp.SaveOptions(opts); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	saved, err := s.disp.Options()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	ok(c, saved)
}

// putUsername 记录站点域名下的用户名，反馈扫描依赖它识别@提及
func (s *Server) putUsername(c *gin.Context) {
	var req struct {
		SiteURL  string `json:"site_url" binding:"required"`
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	s.users.SetUsername(c.Request.Context(), req.SiteURL, req.Username)
	ok(c, nil)
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
		"data":    nil,
	})
}
