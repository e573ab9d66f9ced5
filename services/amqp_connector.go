package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"livescore-service/logger"
)

// amqpConnection *amqp.Connection 中用到的部分
type amqpConnection interface {
	IsClosed() bool
	Close() error
}

// amqpChannel *amqp.Channel 中用到的部分
type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// amqpDialer 建立连接并声明 exchange
type amqpDialer func(url, exchange string) (amqpConnection, amqpChannel, error)

// AMQPConnector 负责建立 AMQP 连接, 并把比赛更新发布到 topic exchange
type AMQPConnector struct {
	url      string
	exchange string
	dial     amqpDialer

	mu      sync.Mutex
	conn    amqpConnection
	channel amqpChannel
}

// NewAMQPConnector 创建 AMQPConnector 实例
func NewAMQPConnector(url, exchange string) *AMQPConnector {
	return &AMQPConnector{
		url:      url,
		exchange: exchange,
		dial:     dialAMQP,
	}
}

// Name 实现 MessageBroker 接口
func (c *AMQPConnector) Name() string {
	return "amqp"
}

// Start 建立 AMQP 连接并声明 exchange
func (c *AMQPConnector) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connectLocked()
}

// connectLocked 先释放旧的 channel 和连接, 再重新建立
func (c *AMQPConnector) connectLocked() error {
	c.releaseLocked()
	logger.Printf("[AMQP] Connecting (exchange: %s)...", c.exchange)

	conn, channel, err := c.dial(c.url, c.exchange)
	if err != nil {
		return err
	}

	c.conn = conn
	c.channel = channel
	logger.Println("[AMQP] ✅ Connected to AMQP server")
	return nil
}

// releaseLocked 关闭当前的 channel 和连接, 返回关闭连接时的错误
func (c *AMQPConnector) releaseLocked() error {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn == nil {
		return nil
	}
	var err error
	if !c.conn.IsClosed() {
		err = c.conn.Close()
	}
	c.conn = nil
	return err
}

func dialAMQP(url, exchange string) (amqpConnection, amqpChannel, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 60 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return conn, channel, nil
}

// Produce 发布一条比赛更新, 连接断开时尝试重连一次
func (c *AMQPConnector) Produce(msg BrokerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel == nil || c.conn == nil || c.conn.IsClosed() {
		if err := c.connectLocked(); err != nil {
			return err
		}
	}

	err := c.channel.Publish(
		c.exchange,
		msg.Topic, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Transient,
			MessageId:    msg.Key,
			Timestamp:    time.Now(),
			Body:         msg.Value,
		},
	)
	if err != nil {
		// 释放后下次发布时重建连接
		c.releaseLocked()
		return fmt.Errorf("failed to publish to %s: %w", msg.Topic, err)
	}
	return nil
}

// Close 关闭连接
func (c *AMQPConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger.Println("[AMQP] Stopping AMQP connector...")
	return c.releaseLocked()
}
