package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ticks 模拟时钟触发次数
	Ticks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livescore_simulator_ticks_total",
		Help: "Number of simulator clock ticks.",
	})

	// MatchEvents 产生的比赛事件
	MatchEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livescore_match_events_total",
		Help: "Match events appended, by event type and origin.",
	}, []string{"type", "origin"})

	// Persists 快照写入结果
	Persists = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livescore_snapshot_persists_total",
		Help: "Snapshot upserts by result.",
	}, []string{"result"})

	// Broadcasts 推送通道广播次数
	Broadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livescore_broadcasts_total",
		Help: "Push broadcasts by notification name.",
	}, []string{"event"})

	// DroppedDeliveries 因连接已满/已关闭而丢弃的推送
	DroppedDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livescore_push_dropped_total",
		Help: "Push deliveries dropped because the connection was gone or full.",
	})

	// Connections 当前 WebSocket 连接数
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "livescore_ws_connections",
		Help: "Currently connected push clients.",
	})

	// PullStreams 当前 SSE 拉取流数量
	PullStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "livescore_pull_streams",
		Help: "Currently open pull streams.",
	})

	// RelayMessages 转发到外部消息系统的结果
	RelayMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livescore_relay_messages_total",
		Help: "Match updates relayed to external brokers, by broker and result.",
	}, []string{"broker", "result"})

	// RetentionDeleted 保留策略删除的比赛数量
	RetentionDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livescore_retention_deleted_total",
		Help: "Finished matches removed by the retention sweep.",
	})
)
