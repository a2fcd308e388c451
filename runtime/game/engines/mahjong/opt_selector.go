package mahjong

import "fmt"

type ActionType string

const (
	ActionSelfWin ActionType = "self-win"
	ActionWin     ActionType = "win"
	ActionKong    ActionType = "kong"
	ActionPong    ActionType = "pong"
	ActionChi     ActionType = "chi"
	ActionPass    ActionType = "pass"
)

// Priority 自摸 > 荣和 > 杠 > 碰 > 吃 > 过
func (a ActionType) Priority() int {
	switch a {
	case ActionSelfWin:
		return 5
	case ActionWin:
		return 4
	case ActionKong:
		return 3
	case ActionPong:
		return 2
	case ActionChi:
		return 1
	default:
		return 0
	}
}

// PlayerAction 反应窗口中提供给某个座位的一个选项，ID 即客户端 claim 时回传的值
type PlayerAction struct {
	ID    string     `json:"id"`
	Type  ActionType `json:"type"`
	Tile  *Tile      `json:"tile,omitempty"`
	Tiles []Tile     `json:"tiles,omitempty"` // 碰、杠、吃需要从手牌拿出的牌
}

func tilePtr(t Tile) *Tile {
	return &t
}

func passAction() *PlayerAction {
	return &PlayerAction{ID: string(ActionPass), Type: ActionPass}
}

// ChiOptions 包含 t 的顺子中，需要从手牌拿出的两张牌
func ChiOptions(t Tile) [][2]Tile {
	if !t.IsSuited() {
		return nil
	}
	suit, n := t.Suit(), t.Rank()
	opts := make([][2]Tile, 0, 3)
	for _, pair := range [][2]int{{n - 2, n - 1}, {n - 1, n + 1}, {n + 1, n + 2}} {
		a, okA := SuitedTile(suit, pair[0])
		b, okB := SuitedTile(suit, pair[1])
		if okA && okB {
			opts = append(opts, [2]Tile{a, b})
		}
	}
	return opts
}

// ComputeActionsFor 座位 p 对一张打出的牌可以做的反应
// 听牌的座位只能荣和；未听牌的座位可以碰、杠，下家还可以吃；有任何选项时追加 pass
func ComputeActionsFor(p *PlayerImage, discard Tile, isNextSeat bool) []*PlayerAction {
	actions := make([]*PlayerAction, 0, 4)

	if p.Ting {
		trial := append(copyTiles(p.Tiles), discard)
		if CanWinHand(trial, p.Melds) {
			actions = append(actions, &PlayerAction{
				ID:   fmt.Sprintf("win-%s", discard),
				Type: ActionWin,
				Tile: tilePtr(discard),
			})
		}
		return actions
	}

	count := p.CountOf(discard)
	if count >= 2 {
		actions = append(actions, &PlayerAction{
			ID:    fmt.Sprintf("pong-%s", discard),
			Type:  ActionPong,
			Tiles: []Tile{discard, discard},
		})
	}
	if count >= 3 {
		actions = append(actions, &PlayerAction{
			ID:    fmt.Sprintf("kong-%s", discard),
			Type:  ActionKong,
			Tiles: []Tile{discard, discard, discard},
		})
	}
	if isNextSeat {
		for _, need := range ChiOptions(discard) {
			if p.HasTile(need[0]) && p.HasTile(need[1]) {
				actions = append(actions, &PlayerAction{
					ID:    fmt.Sprintf("chi-%s-%s", need[0], need[1]),
					Type:  ActionChi,
					Tiles: []Tile{need[0], need[1]},
				})
			}
		}
	}
	if len(actions) > 0 {
		actions = append(actions, passAction())
	}
	return actions
}

// SelfDrawActions 自摸窗口的选项
func SelfDrawActions(drawn Tile, allowPass bool) []*PlayerAction {
	actions := []*PlayerAction{{
		ID:   string(ActionSelfWin),
		Type: ActionSelfWin,
		Tile: tilePtr(drawn),
	}}
	if allowPass {
		actions = append(actions, passAction())
	}
	return actions
}

func findAction(actions []*PlayerAction, id string) *PlayerAction {
	for _, a := range actions {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// hasActionable 除 pass 以外是否还有选项
func hasActionable(actions []*PlayerAction) bool {
	for _, a := range actions {
		if a.Type != ActionPass {
			return true
		}
	}
	return false
}
