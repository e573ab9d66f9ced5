package services

import (
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchUpdateMessage(t *testing.T) {
	msg := NewMatchUpdateMessage(12, []byte(`{}`))

	assert.Equal(t, "match.12.update", msg.Topic)
	assert.Equal(t, "12", msg.Key)
}

func TestMQTTPublisherTopic(t *testing.T) {
	p := NewMQTTPublisher("tcp://localhost:1883", "livescore/matches/")

	assert.Equal(t, "mqtt", p.Name())
	assert.Equal(t, "livescore/matches/12/update", p.Topic(NewMatchUpdateMessage(12, nil)))
}

func TestMQTTPublisherRequiresConnection(t *testing.T) {
	p := NewMQTTPublisher("tcp://localhost:1883", "livescore/matches")

	assert.Error(t, p.Produce(NewMatchUpdateMessage(1, nil)))
	assert.NoError(t, p.Close())
}

func TestAMQPConnectorInvalidURL(t *testing.T) {
	c := NewAMQPConnector("not-an-amqp-url", "livescore")

	assert.Equal(t, "amqp", c.Name())
	assert.Error(t, c.Start())
	assert.Error(t, c.Produce(NewMatchUpdateMessage(1, nil)))
	assert.NoError(t, c.Close())
}

type fakeAMQPConn struct {
	closed bool
}

func (c *fakeAMQPConn) IsClosed() bool { return c.closed }

func (c *fakeAMQPConn) Close() error {
	c.closed = true
	return nil
}

type fakeAMQPChannel struct {
	publishErr error
	published  []string
	closed     bool
}

func (ch *fakeAMQPChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if ch.publishErr != nil {
		return ch.publishErr
	}
	ch.published = append(ch.published, key)
	return nil
}

func (ch *fakeAMQPChannel) Close() error {
	ch.closed = true
	return nil
}

func TestAMQPConnectorReleasesConnectionAfterPublishError(t *testing.T) {
	var conns []*fakeAMQPConn
	var channels []*fakeAMQPChannel

	c := NewAMQPConnector("amqp://localhost", "livescore")
	c.dial = func(url, exchange string) (amqpConnection, amqpChannel, error) {
		conn := &fakeAMQPConn{}
		ch := &fakeAMQPChannel{}
		if len(channels) == 0 {
			ch.publishErr = errors.New("channel closed by server")
		}
		conns = append(conns, conn)
		channels = append(channels, ch)
		return conn, ch, nil
	}

	require.NoError(t, c.Start())
	assert.Error(t, c.Produce(NewMatchUpdateMessage(1, nil)))

	// 失败的连接已关闭, 不会在重连后遗留
	require.Len(t, conns, 1)
	assert.True(t, conns[0].closed)
	assert.True(t, channels[0].closed)

	require.NoError(t, c.Produce(NewMatchUpdateMessage(2, nil)))
	require.Len(t, conns, 2)
	assert.False(t, conns[1].closed)
	assert.Equal(t, []string{"match.2.update"}, channels[1].published)

	require.NoError(t, c.Close())
	assert.True(t, conns[1].closed)
	assert.True(t, channels[1].closed)
}

func TestAMQPConnectorStartTwiceClosesPrevious(t *testing.T) {
	var conns []*fakeAMQPConn
	c := NewAMQPConnector("amqp://localhost", "livescore")
	c.dial = func(url, exchange string) (amqpConnection, amqpChannel, error) {
		conn := &fakeAMQPConn{}
		conns = append(conns, conn)
		return conn, &fakeAMQPChannel{}, nil
	}

	require.NoError(t, c.Start())
	require.NoError(t, c.Start())

	require.Len(t, conns, 2)
	assert.True(t, conns[0].closed)
	assert.False(t, conns[1].closed)
}
