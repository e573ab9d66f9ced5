package services

import (
	"context"
	"errors"
	"time"

	"livescore-service/logger"
	"livescore-service/models"
	"livescore-service/pkg/common"
)

// EventStreamConfig 拉取通道参数
type EventStreamConfig struct {
	Interval time.Duration
	Limit    int
}

// EventStream 拉取通道: 按固定间隔重新查询最近事件
// 不记录已发送内容, 重复帧是预期行为
type EventStream struct {
	store  MatchStore
	config EventStreamConfig
	log    logger.Component
}

// NewEventStream 创建拉取通道
func NewEventStream(store MatchStore, cfg EventStreamConfig) *EventStream {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	return &EventStream{
		store:  store,
		config: cfg,
		log:    logger.For("EventStream"),
	}
}

// Exists 订阅前检查比赛是否存在
func (s *EventStream) Exists(ctx context.Context, matchID int64) error {
	_, err := s.store.Get(ctx, matchID)
	return err
}

// Stream 立即发送一次, 之后每个间隔发送一次, 直到 ctx 取消或 emit 失败
// 返回时定时器已释放, 进行中的查询随 ctx 一起取消
func (s *EventStream) Stream(ctx context.Context, matchID int64, emit func([]models.MatchEvent) error) error {
	if err := s.poll(ctx, matchID, emit); err != nil {
		return err
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.poll(ctx, matchID, emit); err != nil {
				return err
			}
		}
	}
}

func (s *EventStream) poll(ctx context.Context, matchID int64, emit func([]models.MatchEvent) error) error {
	if ctx.Err() != nil {
		return nil
	}

	events, err := s.store.RecentEvents(ctx, matchID, s.config.Limit)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, common.ErrNotFound) {
			s.log.Errorf("Error fetching recent events for %d: %v", matchID, err)
		}
		return nil
	}
	if len(events) == 0 || ctx.Err() != nil {
		return nil
	}
	return emit(events)
}
