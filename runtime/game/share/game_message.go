package share

// 事件类型
const (
	EventJoin       = "Join"
	EventLeave      = "Leave"
	EventStart      = "Start"
	EventDraw       = "Draw"
	EventDiscard    = "Discard"
	EventTing       = "Ting"
	EventTingCancel = "TingCancel"
	EventRollDice   = "RollDice"
	EventClaim      = "Claim"
)

// GameEvent 游戏事件接口
type GameEvent interface {
	GetUserID() string
	GetEventType() string
}

type GameMessageEvent struct {
	UserID string `json:"userID"` // 用户 ID（用于查找座位）
}

func (e *GameMessageEvent) GetUserID() string {
	return e.UserID
}

// JoinEvent 玩家进入房间，Name 是本次加入使用的昵称
type JoinEvent struct {
	GameMessageEvent
	Name string `json:"name"`
}

func (e *JoinEvent) GetEventType() string {
	return EventJoin
}

// LeaveEvent 玩家离开房间或断开连接
type LeaveEvent struct {
	GameMessageEvent
}

func (e *LeaveEvent) GetEventType() string {
	return EventLeave
}

type StartEvent struct {
	GameMessageEvent
}

func (e *StartEvent) GetEventType() string {
	return EventStart
}

// DrawEvent 手动摸牌（调试用）
type DrawEvent struct {
	GameMessageEvent
}

func (e *DrawEvent) GetEventType() string {
	return EventDraw
}

type DiscardEvent struct {
	GameMessageEvent
	Tile string `json:"tile"` // 牌面编码，例如 "B1"
}

func (e *DiscardEvent) GetEventType() string {
	return EventDiscard
}

type TingEvent struct {
	GameMessageEvent
}

func (e *TingEvent) GetEventType() string {
	return EventTing
}

type TingCancelEvent struct {
	GameMessageEvent
}

func (e *TingCancelEvent) GetEventType() string {
	return EventTingCancel
}

type RollDiceEvent struct {
	GameMessageEvent
}

func (e *RollDiceEvent) GetEventType() string {
	return EventRollDice
}

// ClaimEvent 选择反应窗口中的一个选项
type ClaimEvent struct {
	GameMessageEvent
	ClaimID string `json:"claimId"`
}

func (e *ClaimEvent) GetEventType() string {
	return EventClaim
}
