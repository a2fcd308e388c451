package game

import (
	"sync"
	"time"

	"shmahjong/common/log"
	"shmahjong/runtime/game/engines"
	"shmahjong/runtime/game/share"
)

// Room 游戏房间
// 管理房间成员（按加入顺序）和房间的游戏引擎
type Room struct {
	ID        string                     // 房间 ID，由客户端指定
	Users     map[string]*share.UserInfo // userID -> UserInfo
	Engine    engines.Engine             // 从原型克隆
	CreatedAt time.Time
	order     []string // 加入顺序，决定开局座位
	mu        sync.RWMutex
}

func NewRoom(roomID string, engine engines.Engine) *Room {
	return &Room{
		ID:        roomID,
		Users:     make(map[string]*share.UserInfo),
		Engine:    engine,
		CreatedAt: time.Now(),
		order:     make([]string, 0, 4),
	}
}

// AddUser 加入房间，已在房间中时只更新昵称
func (r *Room) AddUser(user *share.UserInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.Users[user.UserID]; exists {
		old.Name = user.Name
		return
	}
	r.Users[user.UserID] = user
	r.order = append(r.order, user.UserID)
	log.Info("Room[%s] 玩家 %s(%s) 加入房间，当前人数: %d", r.ID, user.Name, user.UserID, len(r.Users))
}

// RemoveUser 返回玩家原本是否在房间中
func (r *Room) RemoveUser(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.Users[userID]; !exists {
		return false
	}
	delete(r.Users, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Info("Room[%s] 玩家 %s 离开房间，当前人数: %d", r.ID, userID, len(r.Users))
	return true
}

func (r *Room) GetPlayer(userID string) (*share.UserInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.Users[userID]
	return user, exists
}

func (r *Room) GetPlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.Users)
}

// Occupants 按加入顺序返回成员副本
func (r *Room) Occupants() []share.UserInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]share.UserInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.Users[id])
	}
	return out
}

// Close 释放房间资源（引擎、计时器）
func (r *Room) Close() {
	if r.Engine != nil {
		r.Engine.Close()
	}
}
