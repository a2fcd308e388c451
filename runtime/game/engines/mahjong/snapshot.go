package mahjong

import "fmt"

// MeldView 副露的对外形式：刻子和杠 {type, tile}，顺子 {type, tiles}
type MeldView struct {
	Type  MeldType `json:"type"`
	Tile  *Tile    `json:"tile,omitempty"`
	Tiles []Tile   `json:"tiles,omitempty"`
}

type PlayerView struct {
	Name         string     `json:"name"`
	Index        int        `json:"index"`
	HandCount    int        `json:"handCount"`
	You          bool       `json:"you"`
	Turn         bool       `json:"turn"`
	Score        int        `json:"score"`
	BonusTiles   []Tile     `json:"bonusTiles"`
	Ting         bool       `json:"ting"`
	ExposedMelds []MeldView `json:"exposedMelds"`
}

type DiscardView struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Tiles []Tile `json:"tiles"`
}

type DiceRollerView struct {
	Name string `json:"name"`
}

// Snapshot 某个接收者视角下的对局状态，座位已旋转，接收者总在位置 0
type Snapshot struct {
	Started            bool            `json:"started"`
	WallCount          int             `json:"wallCount"`
	TurnIndex          int             `json:"turnIndex"`
	ExpectsDiscard     bool            `json:"expectsDiscard"`
	ReactionActive     bool            `json:"reactionActive"`
	ReactionDeadlineTs float64         `json:"reactionDeadlineTs"`
	Players            []PlayerView    `json:"players"`
	YourHand           []Tile          `json:"yourHand"`
	DiscardsByPlayer   []DiscardView   `json:"discardsByPlayer"`
	YourActions        []*PlayerAction `json:"yourActions"`
	CanTing            bool            `json:"canTing"`
	YourTingPending    bool            `json:"yourTingPending"`
	TingDiscardables   []Tile          `json:"tingDiscardables"`
	DiceValues         []int           `json:"diceValues"`
	ScoreMultiplier    int             `json:"scoreMultiplier"`
	NextGameMultiplier int             `json:"nextGameMultiplier"`
	WaitingForDice     bool            `json:"waitingForDice"`
	DiceRoller         *DiceRollerView `json:"diceRoller"`
	GameCount          int             `json:"gameCount"`
}

func meldViews(melds []Meld) []MeldView {
	views := make([]MeldView, 0, len(melds))
	for _, m := range melds {
		switch m.Type {
		case MeldChi:
			views = append(views, MeldView{Type: m.Type, Tiles: copyTiles(m.Tiles)})
		default:
			views = append(views, MeldView{Type: m.Type, Tile: tilePtr(m.Tile())})
		}
	}
	return views
}

func displayName(p *PlayerImage, position int) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("player%d", position+1)
}

// SnapshotFor 为 userID 生成快照，不在座位上的观众只看到公开信息
func (m *Match) SnapshotFor(userID string) *Snapshot {
	seat := m.SeatOf(userID)
	offset := max(seat, 0)
	n := len(m.Seats)

	s := &Snapshot{
		Started:            m.Started,
		WallCount:          m.Deck.Remaining(),
		TurnIndex:          0,
		ExpectsDiscard:     m.ExpectsDiscard(),
		ReactionActive:     m.Window != nil,
		Players:            make([]PlayerView, 0, n),
		YourHand:           make([]Tile, 0),
		DiscardsByPlayer:   make([]DiscardView, 0, n),
		YourActions:        make([]*PlayerAction, 0),
		TingDiscardables:   make([]Tile, 0),
		DiceValues:         make([]int, 0, 2),
		ScoreMultiplier:    m.ScoreMultiplier,
		NextGameMultiplier: m.NextGameMultiplier,
		WaitingForDice:     m.WaitingForDice,
		GameCount:          m.GameCount,
	}
	if m.Window != nil {
		s.ReactionDeadlineTs = float64(m.Window.Deadline.UnixMilli()) / 1000
	}
	s.DiceValues = append(s.DiceValues, m.DiceValues...)
	if m.DiceRoller >= 0 && m.DiceRoller < n {
		s.DiceRoller = &DiceRollerView{Name: displayName(m.Seats[m.DiceRoller], m.DiceRoller)}
	}

	current := m.Turn.GetCurrentPlayer()
	if n > 0 {
		s.TurnIndex = ((current-offset)%n + n) % n
	}
	for i := 0; i < n; i++ {
		p := m.Seats[(offset+i)%n]
		name := displayName(p, i)
		s.Players = append(s.Players, PlayerView{
			Name:         name,
			Index:        i,
			HandCount:    len(p.Tiles),
			You:          p.SeatIndex == seat,
			Turn:         p.SeatIndex == current,
			Score:        p.Points,
			BonusTiles:   append(make([]Tile, 0, len(p.BonusTiles)), p.BonusTiles...),
			Ting:         p.Ting,
			ExposedMelds: meldViews(p.Melds),
		})
		s.DiscardsByPlayer = append(s.DiscardsByPlayer, DiscardView{
			Index: i,
			Name:  name,
			Tiles: append(make([]Tile, 0, len(p.DiscardPile)), p.DiscardPile...),
		})
	}

	if seat < 0 {
		return s
	}
	me := m.Seats[seat]
	s.YourHand = append(s.YourHand, me.Tiles...)
	s.YourActions = append(s.YourActions, m.ActionsFor(seat)...)
	s.CanTing = m.CanTing(seat)
	s.YourTingPending = me.TingPending
	s.TingDiscardables = append(s.TingDiscardables, m.TingDiscardables(seat)...)
	return s
}
