package services

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"livescore-service/logger"
	"livescore-service/metrics"
	"livescore-service/models"
	"livescore-service/pkg/common"
)

var simulatorTracer = otel.Tracer("livescore-service/services/simulator")

// SnapshotSink 接收需要持久化的快照 (SnapshotWriter 实现)
type SnapshotSink interface {
	Enqueue(m *models.Match)
}

// Broadcaster 推送广播 (FanOut 实现)
type Broadcaster interface {
	Broadcast(matchID int64, event string, payload interface{}) int
}

// SimulatorConfig 时钟参数
type SimulatorConfig struct {
	Tick            time.Duration // 每个 tick 推进一分钟
	CheckpointEvery int           // 每 N 分钟保存一次检查点, 0 = 关闭
	RecentEvents    int           // 推送中携带的最近事件数
}

type matchRuntime struct {
	mu    sync.Mutex
	match *models.Match
}

// MatchSimulator 在共享时钟上驱动所有比赛
type MatchSimulator struct {
	engine *MatchEngine
	sink   SnapshotSink
	push   Broadcaster
	config SimulatorConfig
	log    logger.Component

	mu      sync.RWMutex
	matches map[int64]*matchRuntime
	order   []int64
}

// NewMatchSimulator 创建模拟器
func NewMatchSimulator(engine *MatchEngine, sink SnapshotSink, push Broadcaster, cfg SimulatorConfig) *MatchSimulator {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.RecentEvents <= 0 {
		cfg.RecentEvents = 3
	}
	return &MatchSimulator{
		engine:  engine,
		sink:    sink,
		push:    push,
		config:  cfg,
		log:     logger.For("Simulator"),
		matches: make(map[int64]*matchRuntime),
	}
}

// Track 开始跟踪一场比赛 (拷贝), 已存在的 ID 会被替换
func (s *MatchSimulator) Track(m *models.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.matches[m.ID]; !exists {
		s.order = append(s.order, m.ID)
	}
	s.matches[m.ID] = &matchRuntime{match: m.Clone()}
}

// Bootstrap 从存储恢复比赛; 存储为空时写入初始比赛
func (s *MatchSimulator) Bootstrap(ctx context.Context, store MatchStore, seeds []*models.Match) error {
	existing, err := store.GetAll(ctx)
	if err != nil {
		return err
	}

	if len(existing) > 0 {
		for _, m := range existing {
			// 以事件日志为准重算比分和统计
			score, stats := models.Fold(m.Home, m.Events)
			if score != m.Score || stats != m.Stats {
				s.log.Printf("Match %d: stored aggregates %s differ from event log %s, rebuilding", m.ID, m.Score, score)
				m.Score, m.Stats = score, stats
			}
			s.Track(m)
		}
		s.log.Printf("Resumed %d matches from store", len(existing))
		return nil
	}

	for _, m := range seeds {
		if err := store.Upsert(ctx, m); err != nil {
			s.log.Errorf("Failed to insert sample match %d: %v", m.ID, err)
		}
		s.Track(m)
	}
	s.log.Printf("Initialized %d sample matches", len(seeds))
	return nil
}

// Run 启动时钟直到 ctx 取消
func (s *MatchSimulator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.Tick)
	defer ticker.Stop()

	s.log.Printf("Started (tick=%s, matches=%d)", s.config.Tick, s.Count())

	for {
		select {
		case <-ctx.Done():
			s.log.Printf("Stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick 推进所有未结束的比赛一分钟
func (s *MatchSimulator) Tick(ctx context.Context) {
	_, span := simulatorTracer.Start(ctx, "Simulator.Tick")
	defer span.End()

	metrics.Ticks.Inc()

	s.mu.RLock()
	runtimes := make([]*matchRuntime, 0, len(s.order))
	for _, id := range s.order {
		runtimes = append(runtimes, s.matches[id])
	}
	s.mu.RUnlock()

	advanced := 0
	for _, rt := range runtimes {
		if s.step(rt) {
			advanced++
		}
	}
	span.SetAttributes(attribute.Int("matches.advanced", advanced))
}

// step 推进单场比赛; 持锁期间完成广播, 保证同一场比赛的推送顺序
func (s *MatchSimulator) step(rt *matchRuntime) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	m := rt.match
	if m.Status.IsTerminal() {
		return false
	}

	prevStatus := m.Status
	emitted := s.engine.Advance(m)

	for _, e := range emitted {
		metrics.MatchEvents.WithLabelValues(string(e.Type), "simulator").Inc()
		switch e.Type {
		case models.EventTypeGoal:
			s.log.Printf("⚽ Goal! %s at minute %d (match %d, %s)", e.Team, e.Minute, m.ID, m.Score)
		case models.EventTypeYellowCard:
			s.log.Printf("🟨 Yellow card for %s at minute %d (match %d)", e.Team, e.Minute, m.ID)
		}
	}

	statusChanged := m.Status != prevStatus
	checkpoint := s.config.CheckpointEvery > 0 && m.Minute%s.config.CheckpointEvery == 0

	if len(emitted) > 0 || statusChanged || checkpoint {
		s.sink.Enqueue(m)
	}

	for i := range emitted {
		s.push.Broadcast(m.ID, models.MsgMatchUpdate, models.NewMatchUpdate(m, s.config.RecentEvents, &emitted[i]))
	}
	if len(emitted) == 0 && (statusChanged || checkpoint) {
		s.push.Broadcast(m.ID, models.MsgMatchUpdate, models.NewMatchUpdate(m, s.config.RecentEvents, nil))
	}

	if m.Status.IsTerminal() {
		s.log.Printf("🏁 Match %d finished %s %s %s", m.ID, m.Home, m.Score, m.Away)
	}
	return true
}

// ApplyEvent 直接追加事件, 与时钟使用同一把锁
func (s *MatchSimulator) ApplyEvent(ctx context.Context, matchID int64, ev models.MatchEvent) (*models.Match, error) {
	rt, err := s.runtime(matchID)
	if err != nil {
		return nil, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	m := rt.match
	if err := s.engine.ApplyEvent(m, ev); err != nil {
		return nil, err
	}

	metrics.MatchEvents.WithLabelValues(string(ev.Type), "api").Inc()
	s.log.Printf("Event %s for %s at minute %d appended to match %d", ev.Type, ev.Team, ev.Minute, m.ID)

	s.sink.Enqueue(m)
	newEvent := m.Events[len(m.Events)-1]
	s.push.Broadcast(m.ID, models.MsgMatchUpdate, models.NewMatchUpdate(m, s.config.RecentEvents, &newEvent))

	return m.Clone(), nil
}

// Snapshot 返回比赛的内存快照副本
func (s *MatchSimulator) Snapshot(matchID int64) (*models.Match, error) {
	rt, err := s.runtime(matchID)
	if err != nil {
		return nil, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.match.Clone(), nil
}

// Snapshots 所有比赛的快照 (按加入顺序)
func (s *MatchSimulator) Snapshots() []*models.Match {
	s.mu.RLock()
	runtimes := make([]*matchRuntime, 0, len(s.order))
	for _, id := range s.order {
		runtimes = append(runtimes, s.matches[id])
	}
	s.mu.RUnlock()

	out := make([]*models.Match, 0, len(runtimes))
	for _, rt := range runtimes {
		rt.mu.Lock()
		out = append(out, rt.match.Clone())
		rt.mu.Unlock()
	}
	return out
}

// Count 跟踪的比赛数量
func (s *MatchSimulator) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}

func (s *MatchSimulator) runtime(matchID int64) (*matchRuntime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rt, ok := s.matches[matchID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return rt, nil
}
