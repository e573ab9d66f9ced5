package web

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livescore-service/models"
)

type wsTestClient struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (e *testEnv) dial(t *testing.T) *wsTestClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &wsTestClient{t: t, conn: conn}
	var presence models.UserPresence
	c.expect(models.MsgConnected, &presence)
	require.NotEmpty(t, presence.UserID)
	c.id = presence.UserID
	return c
}

func (c *wsTestClient) send(msgType string, data interface{}) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(map[string]interface{}{"type": msgType, "data": data}))
}

func (c *wsTestClient) next() wsFrame {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f wsFrame
	require.NoError(c.t, c.conn.ReadJSON(&f))
	return f
}

// expect 读取下一帧并断言类型
func (c *wsTestClient) expect(msgType string, out interface{}) {
	c.t.Helper()
	f := c.next()
	require.Equal(c.t, msgType, f.Type, "unexpected frame %s", string(f.Data))
	if out != nil {
		require.NoError(c.t, json.Unmarshal(f.Data, out))
	}
}

func (c *wsTestClient) join(matchID int64) {
	c.t.Helper()
	c.send(models.MsgJoinMatch, map[string]int64{"matchId": matchID})
	var joined models.JoinedMatch
	c.expect(models.MsgJoinedMatch, &joined)
	require.Equal(c.t, matchID, joined.MatchID)
}

func TestJoinNotifiesOtherMembers(t *testing.T) {
	env := newTestEnv(t)
	a := env.dial(t)
	b := env.dial(t)

	a.join(7)
	b.join(7)

	var presence models.UserPresence
	a.expect(models.MsgUserJoined, &presence)
	assert.Equal(t, b.id, presence.UserID)

	assert.ElementsMatch(t, []string{a.id, b.id}, env.hub.registry.Members(7))
}

func TestJoinAcceptsBareMatchID(t *testing.T) {
	env := newTestEnv(t)
	a := env.dial(t)

	a.send(models.MsgJoinMatch, 8)
	var joined models.JoinedMatch
	a.expect(models.MsgJoinedMatch, &joined)
	assert.Equal(t, int64(8), joined.MatchID)
}

func TestJoinWithoutMatchID(t *testing.T) {
	env := newTestEnv(t)
	a := env.dial(t)

	a.send(models.MsgJoinMatch, map[string]interface{}{})

	var errMsg models.ErrorMessage
	a.expect(models.MsgError, &errMsg)
	assert.Equal(t, "Match ID required", errMsg.Message)
}

func TestChatMessageRules(t *testing.T) {
	env := newTestEnv(t)
	a := env.dial(t)
	b := env.dial(t)
	a.join(7)
	b.join(7)
	a.expect(models.MsgUserJoined, nil)

	// 超长消息只回给发送者
	a.send(models.MsgChatMessage, map[string]interface{}{"matchId": 7, "text": strings.Repeat("x", 501)})
	var errMsg models.ErrorMessage
	a.expect(models.MsgError, &errMsg)
	assert.Equal(t, "Invalid message", errMsg.Message)

	a.send(models.MsgChatMessage, map[string]interface{}{"matchId": 7, "text": "   "})
	a.expect(models.MsgError, nil)

	a.send(models.MsgChatMessage, map[string]interface{}{"matchId": 7, "text": "what a save"})

	// b 收到的第一条聊天就是合法的那条
	var chat models.ChatMessage
	b.expect(models.MsgChatMessage, &chat)
	assert.Equal(t, "what a save", chat.Text)
	assert.Equal(t, "User-"+a.id[:6], chat.User)
	assert.False(t, chat.Timestamp.IsZero())

	// 发送者自己也在房间内
	a.expect(models.MsgChatMessage, &chat)
	assert.Equal(t, "what a save", chat.Text)
}

func TestChatWithExplicitUser(t *testing.T) {
	env := newTestEnv(t)
	a := env.dial(t)
	a.join(8)

	a.send(models.MsgChatMessage, map[string]interface{}{"matchId": 8, "text": "hi", "user": "pundit"})

	var chat models.ChatMessage
	a.expect(models.MsgChatMessage, &chat)
	assert.Equal(t, "pundit", chat.User)
}

func TestTypingGoesToOthersOnly(t *testing.T) {
	env := newTestEnv(t)
	a := env.dial(t)
	b := env.dial(t)
	a.join(7)
	b.join(7)
	a.expect(models.MsgUserJoined, nil)

	b.send(models.MsgTyping, map[string]interface{}{"matchId": 7, "isTyping": true})

	var typing models.TypingNotice
	a.expect(models.MsgTyping, &typing)
	assert.Equal(t, b.id, typing.UserID)
	assert.True(t, typing.IsTyping)

	// b 的下一帧是自己的 joinedMatch, 而不是 typing
	b.join(8)
}

func TestLeftConnectionReceivesNoUpdates(t *testing.T) {
	env := newTestEnv(t)
	a := env.dial(t)
	b := env.dial(t)
	a.join(7)
	b.join(7)
	a.expect(models.MsgUserJoined, nil)

	b.send(models.MsgLeaveMatch, map[string]int64{"matchId": 7})
	var presence models.UserPresence
	a.expect(models.MsgUserLeft, &presence)
	assert.Equal(t, b.id, presence.UserID)

	_, err := env.simulator.ApplyEvent(context.Background(), 7, models.MatchEvent{Type: models.EventTypeGoal, Team: "X", Minute: 10})
	require.NoError(t, err)

	var update models.MatchUpdate
	a.expect(models.MsgMatchUpdate, &update)
	assert.Equal(t, int64(7), update.MatchID)
	assert.Equal(t, "1-0", update.Score.String())
	require.NotNil(t, update.NewEvent)
	assert.Equal(t, "X", update.NewEvent.Team)

	b.join(8)
}

func TestDisconnectNotifiesRooms(t *testing.T) {
	env := newTestEnv(t)
	a := env.dial(t)
	b := env.dial(t)
	a.join(7)
	b.join(7)
	b.join(8)
	a.expect(models.MsgUserJoined, nil)

	require.NoError(t, b.conn.Close())

	var presence models.UserPresence
	a.expect(models.MsgUserLeft, &presence)
	assert.Equal(t, b.id, presence.UserID)

	require.Eventually(t, func() bool {
		return len(env.hub.registry.Members(8)) == 0 && env.hub.RoomCount() == 1 && env.hub.ClientCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestUnknownMessageType(t *testing.T) {
	env := newTestEnv(t)
	a := env.dial(t)

	a.send("dance", nil)

	var errMsg models.ErrorMessage
	a.expect(models.MsgError, &errMsg)
	assert.Equal(t, "Unknown message type", errMsg.Message)
}

func TestSendToUnknownConnection(t *testing.T) {
	env := newTestEnv(t)
	assert.False(t, env.hub.Send("nobody", []byte(`{}`)))
}
