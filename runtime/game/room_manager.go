package game

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shmahjong/common/log"
	"shmahjong/core/domain/entity"
	"shmahjong/core/domain/repository"
	"shmahjong/runtime/game/engines"
	"shmahjong/runtime/game/share"
)

const presenceTimeout = 3 * time.Second

// RoomManager 房间管理器
// 管理所有游戏房间实例，使用原型模式管理 Engine
// 房间在第一个玩家加入时创建，最后一个玩家离开后由引擎请求销毁
type RoomManager struct {
	rooms            map[string]*Room         // roomID -> Room
	playerRoom       map[string]string        // playerID -> roomID
	enginePrototypes map[int32]engines.Engine // engineType -> Engine 原型
	engineType       int32
	mu               sync.RWMutex

	presence    repository.RoomPresenceRepository // 为空时不做镜像
	nodeID      string
	presenceTTL time.Duration
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:            make(map[string]*Room),
		playerRoom:       make(map[string]string),
		enginePrototypes: make(map[int32]engines.Engine),
		engineType:       int32(engines.SHANGHAI_MAHJONG_ENGINE),
	}
}

// SetEnginePrototype 注入 Engine 原型
// 在 GameContainer 初始化时调用
func (rm *RoomManager) SetEnginePrototype(engineType int32, engine engines.Engine) error {
	if engine == nil {
		return fmt.Errorf("Engine 原型不能为空")
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.enginePrototypes[engineType] = engine
	log.Info("RoomManager 注入 Engine 原型: engineType=%d", engineType)
	return nil
}

// SetPresence 开启房间成员的 Redis 镜像
func (rm *RoomManager) SetPresence(presence repository.RoomPresenceRepository, nodeID string, ttl time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.presence = presence
	rm.nodeID = nodeID
	rm.presenceTTL = ttl
}

// JoinRoom 加入房间，房间不存在时克隆引擎创建；已在其他房间时先离开
func (rm *RoomManager) JoinRoom(roomID string, user *share.UserInfo) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if prev, exists := rm.playerRoom[user.UserID]; exists && prev != roomID {
		rm.leaveLocked(user.UserID)
	}

	room, exists := rm.rooms[roomID]
	if !exists {
		var err error
		room, err = rm.createRoomLocked(roomID)
		if err != nil {
			return nil, err
		}
	}

	room.AddUser(user)
	rm.playerRoom[user.UserID] = roomID
	room.Engine.NotifyEvent(&share.JoinEvent{
		GameMessageEvent: share.GameMessageEvent{UserID: user.UserID},
		Name:             user.Name,
	})
	rm.mirrorRoom(room)
	return room, nil
}

// createRoomLocked 需要持有写锁
func (rm *RoomManager) createRoomLocked(roomID string) (*Room, error) {
	prototype, exists := rm.enginePrototypes[rm.engineType]
	if !exists {
		return nil, ErrNoEnginePrototype
	}
	engine := prototype.Clone()
	if engine == nil {
		return nil, fmt.Errorf("克隆游戏引擎失败: engineType=%d", rm.engineType)
	}
	room := NewRoom(roomID, engine)
	if err := engine.InitializeEngine(roomID); err != nil {
		return nil, fmt.Errorf("初始化游戏引擎失败: %w", err)
	}
	rm.rooms[roomID] = room
	log.Info("RoomManager 创建房间 %s", roomID)
	return room, nil
}

// LeaveRoom 玩家离开当前房间（断线时调用），返回离开的房间 ID
func (rm *RoomManager) LeaveRoom(userID string) (string, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	return rm.leaveLocked(userID)
}

func (rm *RoomManager) leaveLocked(userID string) (string, bool) {
	roomID, exists := rm.playerRoom[userID]
	if !exists {
		return "", false
	}
	delete(rm.playerRoom, userID)

	room, exists := rm.rooms[roomID]
	if !exists {
		return roomID, true
	}
	if room.RemoveUser(userID) {
		room.Engine.NotifyEvent(&share.LeaveEvent{
			GameMessageEvent: share.GameMessageEvent{UserID: userID},
		})
	}
	rm.mirrorRoom(room)
	return roomID, true
}

// Dispatch 把房间内的意图投递给玩家所在房间的引擎
func (rm *RoomManager) Dispatch(roomID string, event share.GameEvent) error {
	rm.mu.RLock()
	current, inRoom := rm.playerRoom[event.GetUserID()]
	room := rm.rooms[current]
	rm.mu.RUnlock()

	if !inRoom {
		return ErrNotInAnyRoom
	}
	if current != roomID || room == nil {
		return fmt.Errorf("%w %s", ErrNotInRoom, roomID)
	}
	room.Engine.NotifyEvent(event)
	return nil
}

func (rm *RoomManager) GetRoom(roomID string) (*Room, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	room, exists := rm.rooms[roomID]
	return room, exists
}

// GetPlayerRoom 获取玩家所在房间
func (rm *RoomManager) GetPlayerRoom(playerID string) (*Room, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	roomID, exists := rm.playerRoom[playerID]
	if !exists {
		return nil, false
	}
	room, exists := rm.rooms[roomID]
	return room, exists
}

// DeleteRoomIfEmpty 引擎请求销毁时调用，期间有人重新加入则保留房间
func (rm *RoomManager) DeleteRoomIfEmpty(roomID string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, exists := rm.rooms[roomID]
	if !exists {
		return fmt.Errorf("房间 %s 不存在", roomID)
	}
	if room.GetPlayerCount() > 0 {
		log.Info("RoomManager 房间 %s 仍有玩家，取消销毁", roomID)
		return nil
	}
	rm.cleanupRoom(roomID)
	return nil
}

// DeleteRoom 删除房间
// 会清理房间内的所有玩家路由映射
func (rm *RoomManager) DeleteRoom(roomID string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, exists := rm.rooms[roomID]; !exists {
		return fmt.Errorf("房间 %s 不存在", roomID)
	}
	rm.cleanupRoom(roomID)
	return nil
}

// CloseAll 节点关闭时释放全部房间
func (rm *RoomManager) CloseAll() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for roomID := range rm.rooms {
		rm.cleanupRoom(roomID)
	}
}

// GetStats 获取统计信息（房间数、玩家数）
// 供 Monitor 使用
func (rm *RoomManager) GetStats() (gameCount int, playerCount int) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return len(rm.rooms), len(rm.playerRoom)
}

// GetAllRooms 获取所有房间列表（按房间 ID 排序的副本）
func (rm *RoomManager) GetAllRooms() []*Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	rooms := make([]*Room, 0, len(rm.rooms))
	for _, room := range rm.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].ID < rooms[j].ID
	})
	return rooms
}

// RoomStatuses 房间目录
func (rm *RoomManager) RoomStatuses() []engines.RoomStatus {
	rooms := rm.GetAllRooms()
	out := make([]engines.RoomStatus, 0, len(rooms))
	for _, room := range rooms {
		status := room.Engine.Status()
		status.RoomID = room.ID
		status.Occupants = room.GetPlayerCount()
		out = append(out, status)
	}
	return out
}

// RefreshPresence 刷新所有房间镜像的 TTL，由 Monitor 定时调用
func (rm *RoomManager) RefreshPresence() {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	for _, room := range rm.rooms {
		rm.mirrorRoom(room)
	}
}

// cleanupRoom 清理房间（内部方法，需要在持有锁的情况下调用）
func (rm *RoomManager) cleanupRoom(roomID string) {
	room, exists := rm.rooms[roomID]
	if !exists {
		return
	}

	room.mu.RLock()
	for playerID := range room.Users {
		delete(rm.playerRoom, playerID)
	}
	room.mu.RUnlock()

	// 关闭房间资源（释放引擎、计时器等）
	room.Close()
	delete(rm.rooms, roomID)

	if rm.presence != nil {
		presence := rm.presence
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
			defer cancel()
			if err := presence.DeleteRoom(ctx, roomID); err != nil {
				log.Warn("RoomManager 删除房间镜像失败 room=%s: %v", roomID, err)
			}
		}()
	}
	log.Info("RoomManager 删除房间 %s", roomID)
}

// mirrorRoom 异步写入房间镜像，调用方持有锁
func (rm *RoomManager) mirrorRoom(room *Room) {
	if rm.presence == nil {
		return
	}
	status := room.Engine.Status()
	snapshot := &entity.RoomPresence{
		RoomID:    room.ID,
		NodeID:    rm.nodeID,
		Occupants: make(map[string]string),
		Started:   status.Started,
		GameCount: status.GameCount,
	}
	for _, user := range room.Occupants() {
		snapshot.Occupants[user.UserID] = user.Name
	}

	presence, ttl := rm.presence, rm.presenceTTL
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
		defer cancel()
		if err := presence.SaveRoom(ctx, snapshot, ttl); err != nil {
			log.Warn("RoomManager 写入房间镜像失败 room=%s: %v", snapshot.RoomID, err)
		}
	}()
}
