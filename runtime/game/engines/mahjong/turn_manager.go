package mahjong

type TurnState int

const (
	TurnStateNotStarted     TurnState = iota // 首局开始前
	TurnStateAwaitingDiscard                 // 等待当前座位出牌
	TurnStateReactionWindow                  // 等待其他座位（或自摸者）反应
	TurnStateAwaitingDice                    // 本局结束，等待上局赢家掷骰子
)

func (s TurnState) String() string {
	switch s {
	case TurnStateNotStarted:
		return "not-started"
	case TurnStateAwaitingDiscard:
		return "awaiting-discard"
	case TurnStateReactionWindow:
		return "reaction-window"
	case TurnStateAwaitingDice:
		return "awaiting-dice"
	default:
		return "unknown"
	}
}

// TurnManager 回合指针和回合状态
type TurnManager struct {
	TurnPointer int
	State       TurnState
	seats       int
}

func NewTurnManager(seats int) *TurnManager {
	return &TurnManager{
		TurnPointer: 0,
		State:       TurnStateNotStarted,
		seats:       seats,
	}
}

// NextSeat 顺时针下一个座位
func (tm *TurnManager) NextSeat(seat int) int {
	if tm.seats == 0 {
		return 0
	}
	return (seat + 1) % tm.seats
}

// IsNextSeat seat 是否是 from 的下家
func (tm *TurnManager) IsNextSeat(seat, from int) bool {
	return tm.seats > 1 && tm.NextSeat(from) == seat
}

// EnterDropPhase 轮到 seat 出牌
func (tm *TurnManager) EnterDropPhase(seat int) {
	tm.TurnPointer = seat
	tm.State = TurnStateAwaitingDiscard
}

func (tm *TurnManager) EnterReactionPhase() {
	tm.State = TurnStateReactionWindow
}

func (tm *TurnManager) EnterDicePhase() {
	tm.State = TurnStateAwaitingDice
}

func (tm *TurnManager) GetCurrentPlayer() int {
	return tm.TurnPointer
}

func (tm *TurnManager) ExpectsDiscard() bool {
	return tm.State == TurnStateAwaitingDiscard
}
