package services

import (
	"encoding/json"

	"livescore-service/logger"
	"livescore-service/metrics"
	"livescore-service/models"
)

// Transport 推送投递 (由 WebSocket Hub 实现)
// Send 不允许阻塞; 连接不存在或已满时返回 false
type Transport interface {
	Send(connID string, frame []byte) bool
}

// FanOut 按房间成员关系投递推送消息
type FanOut struct {
	registry  *SubscriptionRegistry
	transport Transport
	relay     *UpdateRelay
}

// NewFanOut 创建推送分发器, relay 可以为 nil
func NewFanOut(registry *SubscriptionRegistry, transport Transport, relay *UpdateRelay) *FanOut {
	return &FanOut{
		registry:  registry,
		transport: transport,
		relay:     relay,
	}
}

// Registry 返回房间注册表
func (f *FanOut) Registry() *SubscriptionRegistry {
	return f.registry
}

// Broadcast 投递给房间内所有连接, 返回成功入队的连接数
func (f *FanOut) Broadcast(matchID int64, event string, payload interface{}) int {
	return f.BroadcastExcept(matchID, "", event, payload)
}

// BroadcastExcept 投递给房间内除 except 以外的连接
func (f *FanOut) BroadcastExcept(matchID int64, except string, event string, payload interface{}) int {
	frame, err := Encode(event, payload)
	if err != nil {
		logger.Errorf("[FanOut] Failed to marshal %s for match %d: %v", event, matchID, err)
		return 0
	}

	metrics.Broadcasts.WithLabelValues(event).Inc()

	delivered := 0
	f.registry.ForEachMember(matchID, func(connID string) {
		if connID == except {
			return
		}
		if f.transport.Send(connID, frame) {
			delivered++
			return
		}
		// 尽力投递, 不重试
		metrics.DroppedDeliveries.Inc()
	})

	if event == models.MsgMatchUpdate && f.relay.Enabled() {
		f.relay.Publish(NewMatchUpdateMessage(matchID, frame))
	}
	return delivered
}

// SendTo 单播给某个连接
func (f *FanOut) SendTo(connID string, event string, payload interface{}) bool {
	frame, err := Encode(event, payload)
	if err != nil {
		logger.Errorf("[FanOut] Failed to marshal %s for %s: %v", event, connID, err)
		return false
	}
	if !f.transport.Send(connID, frame) {
		metrics.DroppedDeliveries.Inc()
		return false
	}
	return true
}

// Encode 编码为 {"type": event, "data": payload}
func Encode(event string, payload interface{}) ([]byte, error) {
	return json.Marshal(models.Envelope{Type: event, Data: payload})
}
