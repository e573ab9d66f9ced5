package services

import (
	"context"

	"livescore-service/logger"
	"livescore-service/metrics"
)

// UpdateRelay 把比赛更新异步转发到外部 Broker
// 缓冲区满时直接丢弃, 不反压给模拟器
type UpdateRelay struct {
	brokers []MessageBroker
	queue   chan BrokerMessage
	log     logger.Component
}

// NewUpdateRelay 创建转发器
func NewUpdateRelay(buffer int, brokers ...MessageBroker) *UpdateRelay {
	if buffer <= 0 {
		buffer = 1000
	}
	return &UpdateRelay{
		brokers: brokers,
		queue:   make(chan BrokerMessage, buffer),
		log:     logger.For("UpdateRelay"),
	}
}

// Enabled 是否配置了任何 Broker
func (r *UpdateRelay) Enabled() bool {
	return r != nil && len(r.brokers) > 0
}

// Publish 入队 (非阻塞)
func (r *UpdateRelay) Publish(msg BrokerMessage) bool {
	if !r.Enabled() {
		return false
	}
	select {
	case r.queue <- msg:
		return true
	default:
		metrics.RelayMessages.WithLabelValues("queue", "dropped").Inc()
		return false
	}
}

// Run 消费队列直到 ctx 取消, 退出时关闭所有 Broker
func (r *UpdateRelay) Run(ctx context.Context) {
	defer func() {
		for _, b := range r.brokers {
			if err := b.Close(); err != nil {
				r.log.Errorf("Failed to close %s broker: %v", b.Name(), err)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-r.queue:
			r.dispatch(msg)
		}
	}
}

func (r *UpdateRelay) dispatch(msg BrokerMessage) {
	for _, b := range r.brokers {
		if err := b.Produce(msg); err != nil {
			metrics.RelayMessages.WithLabelValues(b.Name(), "error").Inc()
			r.log.Errorf("⚠️ %s publish failed for %s: %v", b.Name(), msg.Topic, err)
			continue
		}
		metrics.RelayMessages.WithLabelValues(b.Name(), "ok").Inc()
	}
}
