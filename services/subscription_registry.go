package services

import (
	"sort"
	"sync"
)

// SubscriptionRegistry 维护 matchID -> 连接集合 的房间成员关系
// 仅在进程内存中, 重启后客户端需要重新加入
type SubscriptionRegistry struct {
	mu    sync.RWMutex
	rooms map[int64]map[string]struct{}
	conns map[string]map[int64]struct{} // 反向索引, 断开时使用
}

// NewSubscriptionRegistry 创建注册表
func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{
		rooms: make(map[int64]map[string]struct{}),
		conns: make(map[string]map[int64]struct{}),
	}
}

// Join 加入房间 (幂等), 返回是否为新加入
func (r *SubscriptionRegistry) Join(matchID int64, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[matchID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[matchID] = members
	}
	if _, exists := members[connID]; exists {
		return false
	}
	members[connID] = struct{}{}

	joined, ok := r.conns[connID]
	if !ok {
		joined = make(map[int64]struct{})
		r.conns[connID] = joined
	}
	joined[matchID] = struct{}{}
	return true
}

// Leave 离开房间 (幂等), 房间为空时删除整个条目
func (r *SubscriptionRegistry) Leave(matchID int64, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(matchID, connID)
}

// Disconnect 从所有房间移除连接, 返回其离开的 matchID 列表 (升序)
func (r *SubscriptionRegistry) Disconnect(connID string) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.conns[connID]
	left := make([]int64, 0, len(joined))
	for matchID := range joined {
		left = append(left, matchID)
	}
	sort.Slice(left, func(i, j int) bool { return left[i] < left[j] })

	for _, matchID := range left {
		r.removeLocked(matchID, connID)
	}
	return left
}

func (r *SubscriptionRegistry) removeLocked(matchID int64, connID string) bool {
	members, ok := r.rooms[matchID]
	if !ok {
		return false
	}
	if _, exists := members[connID]; !exists {
		return false
	}

	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, matchID)
	}

	if joined, ok := r.conns[connID]; ok {
		delete(joined, matchID)
		if len(joined) == 0 {
			delete(r.conns, connID)
		}
	}
	return true
}

// ForEachMember 在读锁内遍历房间成员
// Leave/Disconnect 返回后, 进行中的遍历不会再投递给该连接
func (r *SubscriptionRegistry) ForEachMember(matchID int64, fn func(connID string)) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for connID := range r.rooms[matchID] {
		fn(connID)
	}
}

// Members 房间成员快照 (排序后返回)
func (r *SubscriptionRegistry) Members(matchID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]string, 0, len(r.rooms[matchID]))
	for connID := range r.rooms[matchID] {
		members = append(members, connID)
	}
	sort.Strings(members)
	return members
}

// RoomCount 当前房间数量
func (r *SubscriptionRegistry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
