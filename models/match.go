package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MatchStatus 比赛状态
type MatchStatus string

const (
	MatchStatusNotStarted MatchStatus = "NOT_STARTED"
	MatchStatusFirstHalf  MatchStatus = "FIRST_HALF"
	MatchStatusHalfTime   MatchStatus = "HALF_TIME"
	MatchStatusSecondHalf MatchStatus = "SECOND_HALF"
	MatchStatusFullTime   MatchStatus = "FULL_TIME"
)

// IsTerminal FULL_TIME 之后不再推进
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusFullTime
}

// Valid 是否为已知状态
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusNotStarted, MatchStatusFirstHalf, MatchStatusHalfTime,
		MatchStatusSecondHalf, MatchStatusFullTime:
		return true
	}
	return false
}

// Score 比分 (内部为两个整数, 对外渲染为 "H-A")
type Score struct {
	Home int
	Away int
}

func (s Score) String() string {
	return fmt.Sprintf("%d-%d", s.Home, s.Away)
}

// ParseScore 解析 "H-A" 格式的比分
func ParseScore(raw string) (Score, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 {
		return Score{}, fmt.Errorf("invalid score %q", raw)
	}
	home, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || home < 0 {
		return Score{}, fmt.Errorf("invalid home score %q", raw)
	}
	away, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || away < 0 {
		return Score{}, fmt.Errorf("invalid away score %q", raw)
	}
	return Score{Home: home, Away: away}, nil
}

func (s Score) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseScore(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MatchStats 比赛统计 (由事件序列推导)
type MatchStats struct {
	PossessionHome int `json:"possessionHome"`
	ShotsHome      int `json:"shotsHome"`
	ShotsAway      int `json:"shotsAway"`
	FoulsHome      int `json:"foulsHome"`
	FoulsAway      int `json:"foulsAway"`
}

// DefaultStats 新比赛的初始统计
func DefaultStats() MatchStats {
	return MatchStats{PossessionHome: 50}
}

// Match 比赛快照
type Match struct {
	ID        int64        `json:"id"`
	Home      string       `json:"home"`
	Away      string       `json:"away"`
	Score     Score        `json:"score"`
	Minute    int          `json:"minute"`
	Status    MatchStatus  `json:"status"`
	Events    []MatchEvent `json:"events"`
	Stats     MatchStats   `json:"stats"`
	UpdatedAt time.Time    `json:"updatedAt,omitzero"`
}

// NewMatch 创建未开始的比赛
func NewMatch(id int64, home, away string) *Match {
	return &Match{
		ID:     id,
		Home:   home,
		Away:   away,
		Status: MatchStatusNotStarted,
		Events: []MatchEvent{},
		Stats:  DefaultStats(),
	}
}

// Clone 深拷贝, 对外只暴露副本
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	c.Events = make([]MatchEvent, len(m.Events))
	for i, e := range m.Events {
		c.Events[i] = e.Clone()
	}
	return &c
}

// HasTeam team 是否为本场两队之一
func (m *Match) HasTeam(team string) bool {
	return team != "" && (team == m.Home || team == m.Away)
}

// RecentEvents 返回最近 n 个事件 (原顺序的后缀)
func (m *Match) RecentEvents(n int) []MatchEvent {
	return RecentEvents(m.Events, n)
}

// RecentEvents 返回 events 的最后 n 个元素副本
func RecentEvents(events []MatchEvent, n int) []MatchEvent {
	if n <= 0 || len(events) == 0 {
		return []MatchEvent{}
	}
	if n > len(events) {
		n = len(events)
	}
	tail := events[len(events)-n:]
	out := make([]MatchEvent, len(tail))
	for i, e := range tail {
		out[i] = e.Clone()
	}
	return out
}

// Fold 从事件序列重新计算比分和统计
func Fold(home string, events []MatchEvent) (Score, MatchStats) {
	score := Score{}
	stats := DefaultStats()
	for _, e := range events {
		ApplyToAggregates(home, &score, &stats, e)
	}
	return score, stats
}

// ApplyToAggregates 把单个事件折叠进比分/统计
// 只有 goal 和 foul 会影响聚合值, 其它类型只进日志
func ApplyToAggregates(home string, score *Score, stats *MatchStats, e MatchEvent) {
	isHome := e.Team == home
	switch e.Type {
	case EventTypeGoal:
		if isHome {
			score.Home++
		} else {
			score.Away++
		}
	case EventTypeFoul:
		if isHome {
			stats.FoulsHome++
		} else {
			stats.FoulsAway++
		}
	}
}
