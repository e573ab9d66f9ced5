package services

import (
	"fmt"
	"strconv"
)

// BrokerMessage 定义了在 Broker 中传输的消息结构
type BrokerMessage struct {
	Topic string
	Key   string // 比赛 ID
	Value []byte // JSON 编码的推送消息
}

// MessageBroker 定义了比赛更新转发的目标
type MessageBroker interface {
	// Name 用于日志和指标
	Name() string
	// Produce 发送消息到指定的 Topic
	Produce(msg BrokerMessage) error
	// Close 关闭 Broker 连接
	Close() error
}

// MatchUpdateTopic 比赛更新的 Topic 名称 (AMQP routing key 格式)
func MatchUpdateTopic(matchID int64) string {
	return fmt.Sprintf("match.%d.update", matchID)
}

// NewMatchUpdateMessage 构造比赛更新消息
func NewMatchUpdateMessage(matchID int64, value []byte) BrokerMessage {
	return BrokerMessage{
		Topic: MatchUpdateTopic(matchID),
		Key:   strconv.FormatInt(matchID, 10),
		Value: value,
	}
}
