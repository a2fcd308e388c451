package engines

import (
	"shmahjong/runtime/game/share"
)

type engineType int32

const (
	SHANGHAI_MAHJONG_ENGINE engineType = iota // 上海麻将 游戏引擎
)

// RoomStatus 房间对外可见的概况，由引擎在 actor 线程中更新
type RoomStatus struct {
	RoomID         string `json:"roomId"`
	Occupants      int    `json:"occupants"`
	Seated         int    `json:"seated"`
	Started        bool   `json:"started"`
	WaitingForDice bool   `json:"waitingForDice"`
	GameCount      int    `json:"gameCount"`
}

// Engine 使用原型模式，每个游戏房间都有一个游戏引擎
type Engine interface {
	// InitializeEngine 初始化游戏引擎并启动事件循环
	InitializeEngine(roomID string) error

	// NotifyEvent 通知游戏事件（入队，由引擎内部串行处理）
	NotifyEvent(event share.GameEvent)

	// Status 房间概况，可以在任意 goroutine 调用
	Status() RoomStatus

	// Clone 克隆引擎实例（用于原型模式）
	Clone() Engine

	// Terminate 触发销毁房间（异步请求）
	Terminate()

	// Close 释放引擎内部资源
	Close()
}
