package services

import (
	"fmt"
	"time"

	"livescore-service/models"
	"livescore-service/pkg/common"
)

// RandSource 随机源 (*math/rand.Rand 满足该接口, 测试中可注入固定序列)
type RandSource interface {
	Float64() float64
	Intn(n int) int
}

// EngineConfig 状态机参数
type EngineConfig struct {
	GoalProbability   float64
	YellowProbability float64
	RosterSize        int
	HalfTimeMinute    int // 0 = 不设中场
	FullTimeMinute    int
}

// DefaultEngineConfig 与模拟器默认行为一致的参数
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		GoalProbability:   0.015,
		YellowProbability: 0.04,
		RosterSize:        11,
		HalfTimeMinute:    45,
		FullTimeMinute:    90,
	}
}

// MatchEngine 单场比赛的状态机
// 不持有锁, 调用方负责同一场比赛的串行化
type MatchEngine struct {
	config EngineConfig
	rand   RandSource
}

// NewMatchEngine 创建状态机
func NewMatchEngine(cfg EngineConfig, rnd RandSource) *MatchEngine {
	if cfg.RosterSize <= 0 {
		cfg.RosterSize = 11
	}
	if cfg.FullTimeMinute <= 0 {
		cfg.FullTimeMinute = 90
	}
	return &MatchEngine{config: cfg, rand: rnd}
}

// Advance 推进一分钟, 返回本次产生的事件
func (e *MatchEngine) Advance(m *models.Match) []models.MatchEvent {
	if m.Status.IsTerminal() {
		return nil
	}

	m.Minute++

	switch {
	case m.Minute == 1:
		m.Status = models.MatchStatusFirstHalf
	case m.Status == models.MatchStatusHalfTime:
		m.Status = models.MatchStatusSecondHalf
	}

	var emitted []models.MatchEvent

	// 进球和黄牌各自独立采样
	if e.rand.Float64() < e.config.GoalProbability {
		emitted = append(emitted, models.MatchEvent{
			Type:   models.EventTypeGoal,
			Team:   e.pickTeam(m),
			Minute: m.Minute,
		})
	}

	if e.rand.Float64() < e.config.YellowProbability {
		emitted = append(emitted, models.MatchEvent{
			Type:   models.EventTypeYellowCard,
			Team:   e.pickTeam(m),
			Minute: m.Minute,
			Player: models.StringPtr(fmt.Sprintf("Player %d", e.rand.Intn(e.config.RosterSize)+1)),
		})
	}

	for _, ev := range emitted {
		appendEvent(m, ev)
	}

	switch {
	case m.Minute >= e.config.FullTimeMinute:
		m.Status = models.MatchStatusFullTime
	case e.config.HalfTimeMinute > 0 && m.Minute == e.config.HalfTimeMinute:
		m.Status = models.MatchStatusHalfTime
	}

	m.UpdatedAt = time.Now()
	return emitted
}

// ApplyEvent 直接追加事件, 校验失败时比赛保持不变
func (e *MatchEngine) ApplyEvent(m *models.Match, ev models.MatchEvent) error {
	if err := ValidateEvent(m, ev); err != nil {
		return err
	}
	appendEvent(m, ev.Clone())
	m.UpdatedAt = time.Now()
	return nil
}

// ValidateEvent 校验事件是否可以追加到比赛
func ValidateEvent(m *models.Match, ev models.MatchEvent) error {
	if m.Status.IsTerminal() {
		return common.ErrMatchFinished
	}
	if !ev.Type.Valid() {
		return common.NewValidationError("type", fmt.Sprintf("unknown event type %q", ev.Type))
	}
	if !m.HasTeam(ev.Team) {
		return common.NewValidationError("team", fmt.Sprintf("%q is neither %q nor %q", ev.Team, m.Home, m.Away))
	}
	if ev.Minute < 0 {
		return common.NewValidationError("minute", "must not be negative")
	}
	return nil
}

func (e *MatchEngine) pickTeam(m *models.Match) string {
	if e.rand.Intn(2) == 0 {
		return m.Home
	}
	return m.Away
}

// appendEvent 追加并立即折叠进比分/统计
func appendEvent(m *models.Match, ev models.MatchEvent) {
	m.Events = append(m.Events, ev)
	models.ApplyToAggregates(m.Home, &m.Score, &m.Stats, ev)
}
