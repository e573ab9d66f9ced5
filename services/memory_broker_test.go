package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livescore-service/logger"
)

// memoryBroker MessageBroker 的内存实现, 测试中替代外部 Broker
type memoryBroker struct {
	// 存储每个 Topic 对应的消费者通道列表
	consumers map[string][]chan BrokerMessage
	buffer    int
	mu        sync.RWMutex
}

// newMemoryBroker 创建 memoryBroker 实例
func newMemoryBroker(buffer int) *memoryBroker {
	if buffer <= 0 {
		buffer = 1000
	}
	return &memoryBroker{
		consumers: make(map[string][]chan BrokerMessage),
		buffer:    buffer,
	}
}

// Name 实现 MessageBroker 接口
func (b *memoryBroker) Name() string {
	return "memory"
}

// Produce 实现 MessageBroker 接口, 投递给该 Topic 的所有消费者
func (b *memoryBroker) Produce(msg BrokerMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	consumerChans := b.consumers[msg.Topic]
	if len(consumerChans) == 0 {
		return nil
	}

	for _, ch := range consumerChans {
		// 使用 select 避免阻塞，如果通道满了则丢弃
		select {
		case ch <- msg:
		default:
			logger.Printf("[MemoryBroker] ⚠️ Topic %s consumer channel full. Message dropped.", msg.Topic)
		}
	}
	return nil
}

// Consume 订阅指定的 Topic，返回一个消息通道
func (b *memoryBroker) Consume(topic string) <-chan BrokerMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	consumerChan := make(chan BrokerMessage, b.buffer)
	b.consumers[topic] = append(b.consumers[topic], consumerChan)

	logger.Printf("[MemoryBroker] Consumer subscribed to topic %s. Total consumers for topic: %d", topic, len(b.consumers[topic]))

	return consumerChan
}

// Close 实现 MessageBroker 接口
func (b *memoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// 关闭所有消费者通道
	for _, chans := range b.consumers {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.consumers = make(map[string][]chan BrokerMessage)

	logger.Println("[MemoryBroker] Closed all channels.")
	return nil
}

func TestMemoryBrokerDeliversPerTopic(t *testing.T) {
	broker := newMemoryBroker(2)
	first := broker.Consume(MatchUpdateTopic(1))
	second := broker.Consume(MatchUpdateTopic(1))
	other := broker.Consume(MatchUpdateTopic(2))

	require.NoError(t, broker.Produce(NewMatchUpdateMessage(1, []byte(`{}`))))

	assert.Equal(t, "1", (<-first).Key)
	assert.Equal(t, "1", (<-second).Key)
	assert.Len(t, other, 0)

	// 缓冲满时丢弃
	for i := 0; i < 5; i++ {
		require.NoError(t, broker.Produce(NewMatchUpdateMessage(2, nil)))
	}
	assert.Len(t, other, 2)

	require.NoError(t, broker.Close())
	_, ok := <-first
	assert.False(t, ok)
}
