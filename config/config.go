package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// 服务器配置
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// 数据库配置 (postgres:// 使用 lib/pq, sqlite:// 或 file: 使用 sqlite)
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://livescore.db"`

	// 模拟器配置
	SimulationTick    time.Duration `env:"SIMULATION_TICK" envDefault:"1s"`
	GoalProbability   float64       `env:"GOAL_PROBABILITY" envDefault:"0.015"`
	YellowProbability float64       `env:"YELLOW_PROBABILITY" envDefault:"0.04"`
	RosterSize        int           `env:"ROSTER_SIZE" envDefault:"11"`
	HalfTimeMinute    int           `env:"HALF_TIME_MINUTE" envDefault:"45"`
	FullTimeMinute    int           `env:"FULL_TIME_MINUTE" envDefault:"90"`
	CheckpointEvery   int           `env:"CHECKPOINT_EVERY" envDefault:"10"`
	RecentEventsLimit int           `env:"RECENT_EVENTS_LIMIT" envDefault:"3"`
	Seed              int64         `env:"SEED"` // 0 = 使用当前时间
	MatchesFile       string        `env:"MATCHES_FILE"`
	PersistRetryDelay time.Duration `env:"PERSIST_RETRY_DELAY" envDefault:"1s"`

	// 拉取通道 (SSE) 配置
	PullInterval    time.Duration `env:"PULL_INTERVAL" envDefault:"3s"`
	PullEventsLimit int           `env:"PULL_EVENTS_LIMIT" envDefault:"5"`
	RetryMillis     int           `env:"RETRY_MS" envDefault:"5000"`

	// 聊天配置
	ChatMaxLength int `env:"CHAT_MAX_LENGTH" envDefault:"500"`

	// 数据保留配置 (0 = 不定期清理)
	RetentionInterval        time.Duration `env:"RETENTION_INTERVAL" envDefault:"0s"`
	RetentionMinuteThreshold int           `env:"RETENTION_MINUTE_THRESHOLD" envDefault:"100"`

	// 比赛更新转发 (可选)
	AMQPURL         string `env:"AMQP_URL"`
	AMQPExchange    string `env:"AMQP_EXCHANGE" envDefault:"livescore"`
	MQTTBroker      string `env:"MQTT_BROKER"`
	MQTTTopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"livescore/matches"`
	RelayBuffer     int    `env:"RELAY_BUFFER" envDefault:"1000"`

	// 链路追踪 (可选)
	OTELEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置的取值范围
func (c *Config) Validate() error {
	if c.SimulationTick <= 0 {
		return fmt.Errorf("SIMULATION_TICK must be positive, got %s", c.SimulationTick)
	}
	if c.PullInterval <= 0 {
		return fmt.Errorf("PULL_INTERVAL must be positive, got %s", c.PullInterval)
	}
	if c.GoalProbability < 0 || c.GoalProbability > 1 {
		return fmt.Errorf("GOAL_PROBABILITY must be within [0,1], got %v", c.GoalProbability)
	}
	if c.YellowProbability < 0 || c.YellowProbability > 1 {
		return fmt.Errorf("YELLOW_PROBABILITY must be within [0,1], got %v", c.YellowProbability)
	}
	if c.RosterSize <= 0 {
		return fmt.Errorf("ROSTER_SIZE must be positive, got %d", c.RosterSize)
	}
	if c.FullTimeMinute <= 0 {
		return fmt.Errorf("FULL_TIME_MINUTE must be positive, got %d", c.FullTimeMinute)
	}
	if c.ChatMaxLength <= 0 {
		return fmt.Errorf("CHAT_MAX_LENGTH must be positive, got %d", c.ChatMaxLength)
	}
	return nil
}
