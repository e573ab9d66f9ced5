package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"livescore-service/database"
	"livescore-service/models"
	"livescore-service/pkg/common"
)

var storeTracer = otel.Tracer("livescore-service/services/store")

// SQLMatchStore 基于 database/sql 的比赛存储 (postgres / sqlite)
type SQLMatchStore struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLMatchStore 创建 SQL 存储
func NewSQLMatchStore(db *sql.DB, dialect database.Dialect) *SQLMatchStore {
	return &SQLMatchStore{db: db, dialect: dialect}
}

const selectMatchColumns = `SELECT id, home, away, score_home, score_away, minute, status, events, stats, updated_at FROM matches`

func (s *SQLMatchStore) q(query string) string {
	return database.Rebind(s.dialect, query)
}

func (s *SQLMatchStore) startSpan(ctx context.Context, name string, id int64) (context.Context, trace.Span) {
	ctx, span := storeTracer.Start(ctx, name)
	if id != 0 {
		span.SetAttributes(attribute.Int64("match.id", id))
	}
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// GetAll 获取所有比赛
func (s *SQLMatchStore) GetAll(ctx context.Context) (matches []*models.Match, err error) {
	ctx, span := s.startSpan(ctx, "MatchStore.GetAll", 0)
	defer func() { endSpan(span, err) }()

	rows, err := s.db.QueryContext(ctx, selectMatchColumns+` ORDER BY id ASC`)
	if err != nil {
		return nil, common.StorageError("query matches", err)
	}
	defer rows.Close()

	matches = []*models.Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, common.StorageError("scan match", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StorageError("iterate matches", err)
	}
	return matches, nil
}

// Get 获取单场比赛
func (s *SQLMatchStore) Get(ctx context.Context, id int64) (m *models.Match, err error) {
	ctx, span := s.startSpan(ctx, "MatchStore.Get", id)
	defer func() { endSpan(span, err) }()

	row := s.db.QueryRowContext(ctx, s.q(selectMatchColumns+` WHERE id = ?`), id)
	m, err = scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.StorageError("get match", err)
	}
	return m, nil
}

// Upsert 写入完整快照
func (s *SQLMatchStore) Upsert(ctx context.Context, m *models.Match) (err error) {
	ctx, span := s.startSpan(ctx, "MatchStore.Upsert", m.ID)
	defer func() { endSpan(span, err) }()

	events := m.Events
	if events == nil {
		events = []models.MatchEvent{}
	}
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return common.StorageError("encode events", err)
	}
	statsJSON, err := json.Marshal(m.Stats)
	if err != nil {
		return common.StorageError("encode stats", err)
	}

	updatedAt := m.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
		INSERT INTO matches (id, home, away, score_home, score_away, minute, status, events, stats, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id)
		DO UPDATE SET
			home = excluded.home,
			away = excluded.away,
			score_home = excluded.score_home,
			score_away = excluded.score_away,
			minute = excluded.minute,
			status = excluded.status,
			events = excluded.events,
			stats = excluded.stats,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, s.q(query),
		m.ID, m.Home, m.Away, m.Score.Home, m.Score.Away, m.Minute, string(m.Status),
		string(eventsJSON), string(statsJSON), updatedAt.UnixMilli(),
	)
	if err != nil {
		return common.StorageError("upsert match", err)
	}
	return nil
}

// RecentEvents 获取最近的事件
func (s *SQLMatchStore) RecentEvents(ctx context.Context, id int64, limit int) (events []models.MatchEvent, err error) {
	ctx, span := s.startSpan(ctx, "MatchStore.RecentEvents", id)
	defer func() { endSpan(span, err) }()

	var raw string
	err = s.db.QueryRowContext(ctx, s.q(`SELECT events FROM matches WHERE id = ?`), id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.StorageError("query events", err)
	}

	var all []models.MatchEvent
	if err := json.Unmarshal([]byte(raw), &all); err != nil {
		return nil, common.StorageError("decode events", err)
	}
	return models.RecentEvents(all, limit), nil
}

// DeleteFinished 清理已结束的比赛
func (s *SQLMatchStore) DeleteFinished(ctx context.Context, minuteThreshold int) (deleted int64, err error) {
	ctx, span := s.startSpan(ctx, "MatchStore.DeleteFinished", 0)
	defer func() { endSpan(span, err) }()

	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM matches WHERE status = ? AND minute > ?`),
		string(models.MatchStatusFullTime), minuteThreshold)
	if err != nil {
		return 0, common.StorageError("delete finished matches", err)
	}

	deleted, err = res.RowsAffected()
	if err != nil {
		return 0, common.StorageError("rows affected", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m          models.Match
		status     string
		eventsJSON string
		statsJSON  string
		updatedAt  int64
	)

	if err := row.Scan(&m.ID, &m.Home, &m.Away, &m.Score.Home, &m.Score.Away, &m.Minute, &status, &eventsJSON, &statsJSON, &updatedAt); err != nil {
		return nil, err
	}

	m.Status = models.MatchStatus(status)
	if !m.Status.Valid() {
		return nil, fmt.Errorf("match %d has unknown status %q", m.ID, status)
	}
	if err := json.Unmarshal([]byte(eventsJSON), &m.Events); err != nil {
		return nil, err
	}
	if m.Events == nil {
		m.Events = []models.MatchEvent{}
	}
	if err := json.Unmarshal([]byte(statsJSON), &m.Stats); err != nil {
		return nil, err
	}
	if updatedAt > 0 {
		m.UpdatedAt = time.UnixMilli(updatedAt)
	}
	return &m, nil
}
