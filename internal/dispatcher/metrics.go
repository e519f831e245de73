package dispatcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatmsg_runs_total",
		Help: "调度运行次数",
	}, []string{"pool", "result"})

	sendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatmsg_sends_total",
		Help: "喊话发送成功数",
	}, []string{"site"})

	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatmsg_send_failures_total",
		Help: "喊话最终失败数",
	}, []string{"site"})

	skipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatmsg_skips_total",
		Help: "前置过滤跳过数",
	}, []string{"site"})
)
