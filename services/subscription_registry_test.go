package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryJoinIsIdempotent(t *testing.T) {
	r := NewSubscriptionRegistry()

	assert.True(t, r.Join(7, "a"))
	assert.False(t, r.Join(7, "a"))
	assert.Equal(t, []string{"a"}, r.Members(7))
}

func TestRegistryLeaveRemovesEmptyRoom(t *testing.T) {
	r := NewSubscriptionRegistry()
	r.Join(7, "a")
	r.Join(7, "b")

	assert.True(t, r.Leave(7, "a"))
	assert.False(t, r.Leave(7, "a"))
	assert.Equal(t, 1, r.RoomCount())

	assert.True(t, r.Leave(7, "b"))
	assert.Equal(t, 0, r.RoomCount())
	assert.Empty(t, r.Members(7))
}

func TestRegistryLeaveUnknownRoom(t *testing.T) {
	r := NewSubscriptionRegistry()
	assert.False(t, r.Leave(99, "a"))
	assert.Equal(t, 0, r.RoomCount())
}

func TestRegistryDisconnect(t *testing.T) {
	r := NewSubscriptionRegistry()
	r.Join(3, "a")
	r.Join(1, "a")
	r.Join(1, "b")

	left := r.Disconnect("a")

	assert.Equal(t, []int64{1, 3}, left)
	assert.Equal(t, []string{"b"}, r.Members(1))
	assert.Empty(t, r.Members(3))
	assert.Equal(t, 1, r.RoomCount())
	assert.Empty(t, r.Disconnect("a"))
}

func TestRegistryForEachMember(t *testing.T) {
	r := NewSubscriptionRegistry()
	r.Join(1, "b")
	r.Join(1, "a")
	r.Join(2, "c")

	var seen []string
	r.ForEachMember(1, func(connID string) { seen = append(seen, connID) })
	assert.ElementsMatch(t, []string{"a", "b"}, seen)

	seen = nil
	r.ForEachMember(5, func(connID string) { seen = append(seen, connID) })
	assert.Empty(t, seen)
}
