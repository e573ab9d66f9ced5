package models

import "time"

// 推送通道消息类型
const (
	// 客户端 -> 服务端
	MsgJoinMatch   = "joinMatch"
	MsgLeaveMatch  = "leaveMatch"
	MsgChatMessage = "chatMessage"
	MsgTyping      = "typing"

	// 服务端 -> 客户端
	MsgConnected   = "connected"
	MsgJoinedMatch = "joinedMatch"
	MsgUserJoined  = "userJoined"
	MsgUserLeft    = "userLeft"
	MsgMatchUpdate = "matchUpdate"
	MsgError       = "error"
)

// Envelope WebSocket 消息信封 {"type": ..., "data": ...}
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// MatchUpdate 比赛更新推送内容
type MatchUpdate struct {
	MatchID  int64        `json:"matchId"`
	Score    Score        `json:"score"`
	Minute   int          `json:"minute"`
	Status   MatchStatus  `json:"status"`
	Events   []MatchEvent `json:"events"`
	NewEvent *MatchEvent  `json:"newEvent,omitempty"`
}

// NewMatchUpdate 由快照生成推送内容, events 为最近 recent 个事件
func NewMatchUpdate(m *Match, recent int, newEvent *MatchEvent) MatchUpdate {
	update := MatchUpdate{
		MatchID: m.ID,
		Score:   m.Score,
		Minute:  m.Minute,
		Status:  m.Status,
		Events:  m.RecentEvents(recent),
	}
	if newEvent != nil {
		e := newEvent.Clone()
		update.NewEvent = &e
	}
	return update
}

// UserPresence userJoined / userLeft
type UserPresence struct {
	UserID string `json:"userId"`
}

// JoinedMatch 加入房间确认
type JoinedMatch struct {
	MatchID int64 `json:"matchId"`
}

// ChatMessage 聊天消息 (服务端广播)
type ChatMessage struct {
	Text      string    `json:"text"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// TypingNotice 正在输入
type TypingNotice struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// ErrorMessage 错误通知
type ErrorMessage struct {
	Message string `json:"message"`
}
