package models

// EventType 比赛事件类型
type EventType string

const (
	EventTypeGoal         EventType = "goal"
	EventTypeYellowCard   EventType = "yellow_card"
	EventTypeRedCard      EventType = "red_card"
	EventTypeSubstitution EventType = "substitution"
	EventTypeFoul         EventType = "foul"
	EventTypeShot         EventType = "shot"
)

// Valid 是否为已知事件类型
func (t EventType) Valid() bool {
	switch t {
	case EventTypeGoal, EventTypeYellowCard, EventTypeRedCard,
		EventTypeSubstitution, EventTypeFoul, EventTypeShot:
		return true
	}
	return false
}

// MatchEvent 比赛事件, 创建后不可变
type MatchEvent struct {
	Type    EventType `json:"type"`
	Team    string    `json:"team"`
	Minute  int       `json:"minute"`
	Player  *string   `json:"player,omitempty"`
	Details *string   `json:"details,omitempty"`
}

// Clone 拷贝指针字段, 避免别名共享
func (e MatchEvent) Clone() MatchEvent {
	c := e
	if e.Player != nil {
		p := *e.Player
		c.Player = &p
	}
	if e.Details != nil {
		d := *e.Details
		c.Details = &d
	}
	return c
}

// StringPtr 辅助函数
func StringPtr(s string) *string {
	return &s
}
