package mahjong

import "time"

// LastDiscard 触发反应窗口的那张牌
type LastDiscard struct {
	Seat int
	Tile Tile
}

// ReactionWindow 一次反应协商，同一房间同时最多一个
// Discard 为 nil 表示自摸窗口，此时 Owner 是摸牌的座位
type ReactionWindow struct {
	ID       uint64
	Discard  *LastDiscard
	Owner    int
	Deadline time.Time
	Menus    map[int][]*PlayerAction // 座位 -> 可选操作
	Claims   map[int]*PlayerAction   // 座位 -> 已提交的选择，同一座位后提交的覆盖先提交的
}

func (w *ReactionWindow) IsSelfDraw() bool {
	return w.Discard == nil
}

// MenuFor 座位在本窗口可选的操作
func (w *ReactionWindow) MenuFor(seat int) []*PlayerAction {
	if w == nil {
		return nil
	}
	return w.Menus[seat]
}

// Submit 校验并记录一个选择
func (w *ReactionWindow) Submit(seat int, claimID string) (*PlayerAction, bool) {
	action := findAction(w.Menus[seat], claimID)
	if action == nil {
		return nil, false
	}
	w.Claims[seat] = action
	return action, true
}

// claimRank 比较用的排序键：先按类型优先级，再按离出牌者的距离（近者优先）
type claimRank struct {
	priority  int
	proximity int // 出牌者下家为 1
}

func (r claimRank) beats(o claimRank) bool {
	if r.priority != o.priority {
		return r.priority > o.priority
	}
	return r.proximity < o.proximity
}

// seatingDistance 从 from 顺时针数到 seat 的距离
func seatingDistance(from, seat, seats int) int {
	return ((seat-from)%seats + seats) % seats
}

func (w *ReactionWindow) rankOf(seat int, action *PlayerAction, seats int) claimRank {
	from := w.Owner
	if w.Discard != nil {
		from = w.Discard.Seat
	}
	return claimRank{
		priority:  action.Type.Priority(),
		proximity: seatingDistance(from, seat, seats),
	}
}

// bestClaim 已提交的选择里排名最高的一个，pass 不算
func (w *ReactionWindow) bestClaim(seats int) (int, *PlayerAction) {
	bestSeat := -1
	var best *PlayerAction
	var bestRank claimRank
	for seat, action := range w.Claims {
		if action.Type == ActionPass {
			continue
		}
		r := w.rankOf(seat, action, seats)
		if best == nil || r.beats(bestRank) {
			bestSeat, best, bestRank = seat, action, r
		}
	}
	return bestSeat, best
}

// outstandingCanBeat 尚未表态的座位中是否有人还可能提交更好的选择
func (w *ReactionWindow) outstandingCanBeat(bestSeat int, best *PlayerAction, seats int) bool {
	for seat, menu := range w.Menus {
		if _, responded := w.Claims[seat]; responded {
			continue
		}
		for _, a := range menu {
			if a.Type == ActionPass {
				continue
			}
			if best == nil {
				return true
			}
			if w.rankOf(seat, a, seats).beats(w.rankOf(bestSeat, best, seats)) {
				return true
			}
		}
	}
	return false
}

// allResponded 所有有选项的座位都已表态
func (w *ReactionWindow) allResponded() bool {
	for seat := range w.Menus {
		if _, ok := w.Claims[seat]; !ok {
			return false
		}
	}
	return true
}
