package services

import (
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"livescore-service/logger"
)

const (
	// MQTT Quality of Service levels
	QoSAtMostOnce  = 0
	QoSAtLeastOnce = 1
)

// MQTTPublisher 把比赛更新发布到 MQTT, topic 为 <prefix>/<matchId>/update
type MQTTPublisher struct {
	broker      string
	topicPrefix string
	client      mqtt.Client
	timeout     time.Duration
}

// NewMQTTPublisher 创建 MQTT 发布器
func NewMQTTPublisher(broker, topicPrefix string) *MQTTPublisher {
	return &MQTTPublisher{
		broker:      broker,
		topicPrefix: strings.TrimSuffix(topicPrefix, "/"),
		timeout:     5 * time.Second,
	}
}

// Name 实现 MessageBroker 接口
func (p *MQTTPublisher) Name() string {
	return "mqtt"
}

// Connect 连接 MQTT broker (自动重连)
func (p *MQTTPublisher) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.broker)
	opts.SetClientID(fmt.Sprintf("livescore_%d", time.Now().UnixNano()))

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Printf("[MQTT] ✅ Connected to %s", p.broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Errorf("[MQTT] ❌ Connection lost: %v", err)
	})

	// Auto reconnect
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)

	// Keep alive
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)

	p.client = mqtt.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("failed to connect: timeout after %s", p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	return nil
}

// Topic 比赛更新对应的 MQTT topic
func (p *MQTTPublisher) Topic(msg BrokerMessage) string {
	return fmt.Sprintf("%s/%s/update", p.topicPrefix, msg.Key)
}

// Produce 实现 MessageBroker 接口
func (p *MQTTPublisher) Produce(msg BrokerMessage) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("not connected")
	}

	token := p.client.Publish(p.Topic(msg), QoSAtMostOnce, false, msg.Value)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish to %s timed out", p.Topic(msg))
	}
	return token.Error()
}

// Close 断开连接
func (p *MQTTPublisher) Close() error {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	return nil
}
