package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"livescore-service/logger"
	"livescore-service/metrics"
	"livescore-service/models"
)

// SnapshotWriter 异步快照写入器
// 同一场比赛只保留最新的待写快照, 写入失败或变慢都不会阻塞时钟
type SnapshotWriter struct {
	store      MatchStore
	log        logger.Component
	retryDelay time.Duration
	timeout    time.Duration

	mu      sync.Mutex
	pending map[int64]*models.Match
	order   []int64

	// 串行化实际写入, 保证同一场比赛不会并发写
	writeMu sync.Mutex
	wake    chan struct{}
}

// NewSnapshotWriter 创建快照写入器
func NewSnapshotWriter(store MatchStore, retryDelay time.Duration) *SnapshotWriter {
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &SnapshotWriter{
		store:      store,
		log:        logger.For("SnapshotWriter"),
		retryDelay: retryDelay,
		timeout:    5 * time.Second,
		pending:    make(map[int64]*models.Match),
		wake:       make(chan struct{}, 1),
	}
}

// Enqueue 提交快照 (会拷贝), 覆盖同一场比赛尚未写入的旧快照
func (w *SnapshotWriter) Enqueue(m *models.Match) {
	snapshot := m.Clone()

	w.mu.Lock()
	if _, ok := w.pending[snapshot.ID]; !ok {
		w.order = append(w.order, snapshot.ID)
	}
	w.pending[snapshot.ID] = snapshot
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Pending 待写快照数量
func (w *SnapshotWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Run 后台写入循环, ctx 取消时退出
func (w *SnapshotWriter) Run(ctx context.Context) {
	w.log.Printf("Started")
	defer w.log.Printf("Stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
		}

		for ctx.Err() == nil {
			w.writeMu.Lock()
			m, ok := w.take()
			if !ok {
				w.writeMu.Unlock()
				break
			}
			err := w.write(ctx, m)
			if err != nil {
				w.requeue(m)
			}
			w.writeMu.Unlock()

			if err != nil {
				select {
				case <-ctx.Done():
					return
				case <-time.After(w.retryDelay):
				}
			}
		}
	}
}

// Flush 同步写完所有待写快照 (关闭服务前调用), 每个快照只尝试一次
func (w *SnapshotWriter) Flush(ctx context.Context) error {
	var errs []error
	for {
		w.writeMu.Lock()
		m, ok := w.take()
		if !ok {
			w.writeMu.Unlock()
			return errors.Join(errs...)
		}
		if err := w.write(ctx, m); err != nil {
			errs = append(errs, err)
		}
		w.writeMu.Unlock()
	}
}

func (w *SnapshotWriter) take() (*models.Match, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for len(w.order) > 0 {
		id := w.order[0]
		w.order = w.order[1:]
		if m, ok := w.pending[id]; ok {
			delete(w.pending, id)
			return m, true
		}
	}
	return nil, false
}

// requeue 写入失败后放回, 若期间已有更新的快照则丢弃旧的
func (w *SnapshotWriter) requeue(m *models.Match) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.pending[m.ID]; ok {
		return
	}
	w.pending[m.ID] = m
	w.order = append(w.order, m.ID)
}

func (w *SnapshotWriter) write(ctx context.Context, m *models.Match) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.store.Upsert(ctx, m); err != nil {
		metrics.Persists.WithLabelValues("error").Inc()
		w.log.Errorf("❌ Failed to persist match %d (minute %d): %v", m.ID, m.Minute, err)
		return fmt.Errorf("persist match %d: %w", m.ID, err)
	}
	metrics.Persists.WithLabelValues("ok").Inc()
	return nil
}
