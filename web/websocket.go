package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"livescore-service/logger"
	"livescore-service/metrics"
	"livescore-service/models"
	"livescore-service/services"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8 * 1024

	// 每个连接的发送缓冲
	sendBufferSize = 256
)

// InboundMessage 客户端发送的消息 {"type": ..., "data": ...}
type InboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type roomRequest struct {
	MatchID int64 `json:"matchId"`
}

type chatRequest struct {
	MatchID int64  `json:"matchId"`
	Text    string `json:"text"`
	User    string `json:"user,omitempty"`
}

type typingRequest struct {
	MatchID  int64 `json:"matchId"`
	IsTyping bool  `json:"isTyping"`
}

// Client WebSocket客户端
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// ID 连接标识
func (c *Client) ID() string {
	return c.id
}

// Hub WebSocket Hub, 同时作为 FanOut 的 Transport
type Hub struct {
	clients  map[string]*Client
	mu       sync.RWMutex
	registry *services.SubscriptionRegistry
	fanout   *services.FanOut
	upgrader websocket.Upgrader

	chatMaxLength int
	log           logger.Component
}

// NewHub 创建新的Hub, relay 可以为 nil
func NewHub(registry *services.SubscriptionRegistry, relay *services.UpdateRelay, chatMaxLength int) *Hub {
	h := &Hub{
		clients:       make(map[string]*Client),
		registry:      registry,
		chatMaxLength: chatMaxLength,
		log:           logger.For("MatchGateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有来源(生产环境需要限制)
			},
		},
	}
	h.fanout = services.NewFanOut(registry, h, relay)
	return h
}

// FanOut 推送分发器 (模拟器使用)
func (h *Hub) FanOut() *services.FanOut {
	return h.fanout
}

// Send 实现 services.Transport; 缓冲满或连接已关闭时丢弃
func (h *Hub) Send(connID string, frame []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[connID]
	if !ok {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount 当前有成员的房间数
func (h *Hub) RoomCount() int {
	return h.registry.RoomCount()
}

// ServeWS 升级连接并启动读写协程
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.register(client)
	h.log.Printf("Client connected: %s from %s", client.id, r.RemoteAddr)

	// 发送欢迎消息
	h.fanout.SendTo(client.id, models.MsgConnected, models.UserPresence{UserID: client.id})

	go client.writePump()
	go client.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	metrics.Connections.Inc()
}

// unregister 先从所有房间移除, 再关闭发送通道, 每个房间通知一次 userLeft
func (h *Hub) unregister(c *Client) {
	left := h.registry.Disconnect(c.id)
	for _, matchID := range left {
		h.fanout.Broadcast(matchID, models.MsgUserLeft, models.UserPresence{UserID: c.id})
	}

	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
		metrics.Connections.Dec()
	}
	h.mu.Unlock()

	h.log.Printf("Client disconnected: %s (left %d rooms)", c.id, len(left))
}

// handleMessage 处理客户端发送的消息
func (h *Hub) handleMessage(c *Client, msg InboundMessage) {
	switch msg.Type {
	case models.MsgJoinMatch:
		matchID, err := parseMatchID(msg.Data)
		if err != nil || matchID == 0 {
			h.sendError(c, "Match ID required")
			return
		}
		if h.registry.Join(matchID, c.id) {
			h.fanout.BroadcastExcept(matchID, c.id, models.MsgUserJoined, models.UserPresence{UserID: c.id})
		}
		h.fanout.SendTo(c.id, models.MsgJoinedMatch, models.JoinedMatch{MatchID: matchID})

	case models.MsgLeaveMatch:
		matchID, err := parseMatchID(msg.Data)
		if err != nil || matchID == 0 {
			h.sendError(c, "Match ID required")
			return
		}
		if h.registry.Leave(matchID, c.id) {
			h.fanout.Broadcast(matchID, models.MsgUserLeft, models.UserPresence{UserID: c.id})
		}

	case models.MsgChatMessage:
		var req chatRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.MatchID == 0 {
			h.sendError(c, "Invalid message")
			return
		}
		text, err := services.NormalizeChatText(req.Text, h.chatMaxLength)
		if err != nil {
			h.sendError(c, "Invalid message")
			return
		}
		user := req.User
		if user == "" {
			user = services.DefaultChatUser(c.id)
		}
		h.fanout.Broadcast(req.MatchID, models.MsgChatMessage, models.ChatMessage{
			Text:      text,
			User:      user,
			Timestamp: time.Now().UTC(),
		})

	case models.MsgTyping:
		var req typingRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.MatchID == 0 {
			h.sendError(c, "Match ID required")
			return
		}
		h.fanout.BroadcastExcept(req.MatchID, c.id, models.MsgTyping, models.TypingNotice{
			UserID:   c.id,
			IsTyping: req.IsTyping,
		})

	default:
		h.log.Printf("Unknown message type from %s: %q", c.id, msg.Type)
		h.sendError(c, "Unknown message type")
	}
}

func (h *Hub) sendError(c *Client, message string) {
	h.fanout.SendTo(c.id, models.MsgError, models.ErrorMessage{Message: message})
}

// parseMatchID 兼容 {"matchId": 7} 和直接发送数字 7 两种格式
func parseMatchID(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing match id")
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var req roomRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return 0, err
	}
	return req.MatchID, nil
}

// readPump 读取客户端消息
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Errorf("WebSocket error: %v", err)
			}
			break
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.log.Printf("Failed to unmarshal client message: %v", err)
			c.hub.sendError(c, "Malformed message")
			continue
		}
		c.hub.handleMessage(c, msg)
	}
}

// writePump 向客户端写入消息, 同一连接内保持入队顺序
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
