package mahjong

import (
	"math/rand"
	"time"
)

const (
	MaxSeats              = 4
	InitialHandSize       = 13
	DefaultReactionWindow = 5 * time.Second
)

/*
	一个房间的对局状态机，只由房间 actor 串行调用，本身不加锁
	状态：
		NotStarted -> AwaitingDiscard <-> ReactionWindow -> AwaitingDice -> AwaitingDiscard ...
	挂起点只有两个：出牌后的反应窗口、听牌玩家自摸后的自摸窗口
	窗口的截止由外部计时器调用 ExpireWindow，或任意事件到来时 CheckDeadline 兜底
	所有校验都在修改状态之前完成，非法操作不改变任何状态
*/

// Occupant 房间成员，按加入顺序排列
type Occupant struct {
	UserID string
	Name   string
}

type MatchOptions struct {
	ReactionWindow time.Duration
	SelfDrawPass   bool // 自摸窗口是否提供 pass
	MinPlayers     int
	Now            func() time.Time
	Rng            *rand.Rand
	RollDice       func() []int
	Searcher       *TenpaiSearcher
	WallBuilder    func() []Tile // 测试时注入固定牌墙，下标 0 为头
}

type RoundEndKind string

const (
	RoundEndSelfWin RoundEndKind = "self-win"
	RoundEndWin     RoundEndKind = "win"
	RoundEndDraw    RoundEndKind = "draw" // 荒牌流局
)

// RoundResult 一局的结算结果
type RoundResult struct {
	GameCount int          `json:"gameCount"`
	Kind      RoundEndKind `json:"kind"`
	Winner    int          `json:"winner"`    // 流局为 -1
	Discarder int          `json:"discarder"` // 只有荣和有效，否则为 -1
	WinTile   *Tile        `json:"winTile,omitempty"`
	Score     *ScoreDetail `json:"score,omitempty"`
	Deltas    []int        `json:"deltas"` // 按座位的得分变化，总和为 0
	Scores    []int        `json:"scores"` // 结算后的累计得分
}

// MatchListener 对局事件回调，用于记录牌谱
type MatchListener interface {
	OnRoundStart(m *Match)
	OnDraw(seat int, tile Tile)
	OnDiscard(seat int, tile Tile)
	OnClaim(seat int, action *PlayerAction, from int)
	OnTing(seat int)
	OnRoundEnd(m *Match, result *RoundResult)
}

type nopListener struct{}

func (nopListener) OnRoundStart(*Match) {}
func (nopListener) OnDraw(int, Tile) {}
func (nopListener) OnDiscard(int, Tile) {}
func (nopListener) OnClaim(int, *PlayerAction, int) {}
func (nopListener) OnTing(int) {}
func (nopListener) OnRoundEnd(*Match, *RoundResult) {}

type Match struct {
	Seats              []*PlayerImage
	Deck               *DeckManager
	Turn               *TurnManager
	Started            bool
	Window             *ReactionWindow
	DiceValues         []int
	ScoreMultiplier    int
	NextGameMultiplier int
	LastWinner         int // 上一局赢家座位，-1 表示没有
	GameCount          int
	WaitingForDice     bool
	DiceRoller         int // -1 表示没有
	LastResult         *RoundResult

	openingSeat int
	windowSeq   uint64
	opts        MatchOptions
	listener    MatchListener
}

func NewMatch(opts MatchOptions, listener MatchListener) *Match {
	if opts.ReactionWindow <= 0 {
		opts.ReactionWindow = DefaultReactionWindow
	}
	if opts.MinPlayers < 1 {
		opts.MinPlayers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rng == nil {
		opts.Rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.RollDice == nil {
		rng := opts.Rng
		opts.RollDice = func() []int { return RandomDice(rng) }
	}
	if listener == nil {
		listener = nopListener{}
	}
	return &Match{
		Deck:               NewDeckManager(opts.Rng),
		Turn:               NewTurnManager(0),
		ScoreMultiplier:    1,
		NextGameMultiplier: 1,
		LastWinner:         -1,
		DiceRoller:         -1,
		opts:               opts,
		listener:           listener,
	}
}

// SetReactionWindow 热更新窗口时长，已打开的窗口保持原截止时间
func (m *Match) SetReactionWindow(d time.Duration) {
	if d > 0 {
		m.opts.ReactionWindow = d
	}
}

func (m *Match) SetSelfDrawPass(allow bool) {
	m.opts.SelfDrawPass = allow
}

// SeatOf 玩家的座位，未入座返回 -1
func (m *Match) SeatOf(userID string) int {
	for i, p := range m.Seats {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

func (m *Match) player(seat int) (*PlayerImage, error) {
	if seat < 0 || seat >= len(m.Seats) {
		return nil, ErrNotSeated
	}
	return m.Seats[seat], nil
}

func (m *Match) isSeatToAct(seat int) bool {
	return m.Started && m.Window == nil && m.Turn.ExpectsDiscard() && m.Turn.GetCurrentPlayer() == seat
}

// Start 首局开始：确定座位并自动掷骰子，之后的局由上局赢家 RollDice 开始
func (m *Match) Start(occupants []Occupant) error {
	if m.Started || m.WaitingForDice {
		return ErrAlreadyStarted
	}
	if len(m.Seats) == 0 {
		n := min(MaxSeats, len(occupants))
		if n == 0 || n < m.opts.MinPlayers {
			return ErrNotEnoughPlayers
		}
		m.Seats = make([]*PlayerImage, n)
		for i := 0; i < n; i++ {
			m.Seats[i] = NewPlayerImage(occupants[i].UserID, occupants[i].Name, i)
		}
		m.Turn = NewTurnManager(n)
	}
	if m.GameCount == 0 {
		m.applyDice(m.opts.RollDice(), true)
	}
	m.startRound()
	return nil
}

// RollDice 上局赢家掷骰子并立即开始下一局
func (m *Match) RollDice(seat int) error {
	if !m.WaitingForDice || m.DiceRoller != seat {
		return ErrNotDiceRoller
	}
	m.applyDice(m.opts.RollDice(), false)
	m.startRound()
	return nil
}

// applyDice 首局直接使用本次点数的倍数，之后的局与上局结转的倍数相乘
func (m *Match) applyDice(dice []int, first bool) {
	cur, next := CalculateDiceMultiplier(dice)
	m.DiceValues = dice
	if first {
		m.ScoreMultiplier = cur
	} else {
		m.ScoreMultiplier = cur * max(1, m.ScoreMultiplier)
	}
	m.NextGameMultiplier = next
}

func (m *Match) loadWall() {
	if m.opts.WallBuilder != nil {
		m.Deck.Load(m.opts.WallBuilder())
		return
	}
	m.Deck.InitRound()
}

func (m *Match) startRound() {
	m.GameCount++
	m.Started = true
	m.WaitingForDice = false
	m.DiceRoller = -1
	m.Window = nil
	m.LastResult = nil
	m.loadWall()
	for _, p := range m.Seats {
		p.ResetRound()
	}

	for r := 0; r < InitialHandSize; r++ {
		for _, p := range m.Seats {
			t, ok := m.Deck.DrawTail()
			if !ok {
				break
			}
			p.AddTile(t)
			m.processBonusChain(p, false)
		}
	}
	for _, p := range m.Seats {
		p.SortHand()
		p.NewestTile = nil
	}

	first := 0
	if m.LastWinner >= 0 && m.LastWinner < len(m.Seats) {
		first = m.LastWinner
	}
	m.openingSeat = first
	m.Turn.EnterDropPhase(first)
	m.listener.OnRoundStart(m)
	m.autoDrawCurrent()
}

// processBonusChain 手牌最后一张是花牌时移入花牌区，从牌墙头部补牌，直到不是花牌或牌墙为空
func (m *Match) processBonusChain(p *PlayerImage, notify bool) {
	for {
		last, ok := p.LastTile()
		if !ok || !last.IsBonus() {
			return
		}
		p.Tiles = p.Tiles[:len(p.Tiles)-1]
		p.BonusTiles = append(p.BonusTiles, last)
		t, ok := m.Deck.DrawHead()
		if !ok {
			return
		}
		p.DrawTile(t)
		if notify {
			m.listener.OnDraw(p.SeatIndex, t)
		}
	}
}

// autoDrawCurrent 当前座位从尾部摸牌，牌墙为空时荒牌流局
func (m *Match) autoDrawCurrent() {
	seat := m.Turn.GetCurrentPlayer()
	p := m.Seats[seat]
	t, ok := m.Deck.DrawTail()
	if !ok {
		m.endRound(&RoundResult{Kind: RoundEndDraw, Winner: -1, Discarder: -1})
		return
	}
	p.DrawTile(t)
	m.listener.OnDraw(seat, t)
	m.processBonusChain(p, true)

	if p.Ting && p.NewestTile != nil && CanWinHand(p.Tiles, p.Melds) {
		m.openWindow(nil, seat, map[int][]*PlayerAction{
			seat: SelfDrawActions(*p.NewestTile, m.opts.SelfDrawPass),
		})
		return
	}
	m.Turn.EnterDropPhase(seat)
}

// DrawFor 手动摸牌，调试用
func (m *Match) DrawFor(seat int) error {
	if !m.Started {
		return ErrCannotDraw
	}
	p, err := m.player(seat)
	if err != nil {
		return err
	}
	if !m.isSeatToAct(seat) || len(p.Tiles)%3 != 1 {
		return ErrCannotDraw
	}
	t, ok := m.Deck.DrawTail()
	if !ok {
		return ErrCannotDraw
	}
	p.DrawTile(t)
	m.listener.OnDraw(seat, t)
	m.processBonusChain(p, true)
	return nil
}

// Discard 出牌，成功后打开反应窗口
func (m *Match) Discard(seat int, tile Tile) error {
	if !m.Started {
		return ErrCannotDiscard
	}
	p, err := m.player(seat)
	if err != nil {
		return err
	}
	if !m.isSeatToAct(seat) || !p.HasTile(tile) {
		return ErrCannotDiscard
	}
	// 听牌后只能打刚摸的牌
	if p.Ting && (p.NewestTile == nil || *p.NewestTile != tile) {
		return ErrCannotDiscard
	}
	if p.TingPending && !m.opts.Searcher.IsTenpaiAfter(p.Tiles, p.Melds, tile) {
		return ErrCannotDiscard
	}

	p.DiscardTile(tile)
	p.SortHand()
	p.NewestTile = nil
	m.listener.OnDiscard(seat, tile)
	if p.TingPending {
		p.TingPending = false
		p.Ting = true
		m.listener.OnTing(seat)
	}
	m.startReactions(seat, tile)
	return nil
}

// DeclareTing 宣告听牌，下一次出牌时确认
func (m *Match) DeclareTing(seat int) error {
	if !m.Started {
		return ErrTingNotAllowed
	}
	p, err := m.player(seat)
	if err != nil {
		return err
	}
	if !m.isSeatToAct(seat) || p.Ting {
		return ErrTingNotAllowed
	}
	p.TingPending = true
	return nil
}

func (m *Match) CancelTing(seat int) error {
	p, err := m.player(seat)
	if err != nil {
		return ErrNoTingPending
	}
	if !p.TingPending {
		return ErrNoTingPending
	}
	p.TingPending = false
	return nil
}

// startReactions 计算其他座位的选项，没有人能操作时直接轮到下家摸牌
func (m *Match) startReactions(from int, tile Tile) {
	menus := make(map[int][]*PlayerAction)
	actionable := false
	for i, p := range m.Seats {
		if i == from {
			continue
		}
		actions := ComputeActionsFor(p, tile, m.Turn.IsNextSeat(i, from))
		if len(actions) == 0 {
			continue
		}
		menus[i] = actions
		if hasActionable(actions) {
			actionable = true
		}
	}
	if !actionable {
		m.advanceFrom(from)
		return
	}
	m.openWindow(&LastDiscard{Seat: from, Tile: tile}, from, menus)
}

func (m *Match) openWindow(discard *LastDiscard, owner int, menus map[int][]*PlayerAction) {
	m.windowSeq++
	m.Window = &ReactionWindow{
		ID:       m.windowSeq,
		Discard:  discard,
		Owner:    owner,
		Deadline: m.opts.Now().Add(m.opts.ReactionWindow),
		Menus:    menus,
		Claims:   make(map[int]*PlayerAction),
	}
	m.Turn.TurnPointer = owner
	m.Turn.EnterReactionPhase()
}

// advanceFrom 轮到 from 的下家摸牌
func (m *Match) advanceFrom(from int) {
	m.Window = nil
	m.Turn.EnterDropPhase(m.Turn.NextSeat(from))
	m.autoDrawCurrent()
}

// Claim 提交反应窗口中的一个选项，同一座位重复提交时覆盖
func (m *Match) Claim(seat int, claimID string) error {
	if m.Window == nil {
		return ErrNoReactionWindow
	}
	if _, ok := m.Window.Submit(seat, claimID); !ok {
		return ErrInvalidClaim
	}
	m.resolve(false)
	return nil
}

// WindowID 当前窗口 ID，没有窗口返回 0
func (m *Match) WindowID() uint64 {
	if m.Window == nil {
		return 0
	}
	return m.Window.ID
}

// ExpireWindow 计时器到期，过期的窗口 ID 直接忽略
func (m *Match) ExpireWindow(windowID uint64) bool {
	if m.Window == nil || m.Window.ID != windowID {
		return false
	}
	m.resolve(true)
	return true
}

// CheckDeadline 兜底检查，截止时间已过则结算当前窗口
func (m *Match) CheckDeadline() bool {
	if m.Window == nil || m.opts.Now().Before(m.Window.Deadline) {
		return false
	}
	m.resolve(true)
	return true
}

func (m *Match) resolve(expired bool) {
	w := m.Window
	if w == nil {
		return
	}
	if !expired && !m.opts.Now().Before(w.Deadline) {
		expired = true
	}

	if w.IsSelfDraw() {
		claim := w.Claims[w.Owner]
		switch {
		case claim != nil && claim.Type == ActionSelfWin:
			m.selfWin(w.Owner)
		case claim != nil || expired:
			m.Window = nil
			m.Turn.EnterDropPhase(w.Owner)
		}
		return
	}

	seats := len(m.Seats)
	bestSeat, best := w.bestClaim(seats)
	if !expired && !w.allResponded() && w.outstandingCanBeat(bestSeat, best, seats) {
		return
	}

	if best == nil {
		m.advanceFrom(w.Discard.Seat)
		return
	}
	m.listener.OnClaim(bestSeat, best, w.Discard.Seat)
	if best.Type == ActionWin {
		m.winByDiscard(bestSeat, w.Discard)
		return
	}
	m.applyClaim(bestSeat, best, w.Discard)
}

// applyClaim 吃碰杠：从出牌者牌河取回那张牌，组成副露，轮到鸣牌者出牌
func (m *Match) applyClaim(seat int, action *PlayerAction, discard *LastDiscard) {
	p := m.Seats[seat]
	m.Seats[discard.Seat].TakeBackDiscard(discard.Tile)
	m.Window = nil

	switch action.Type {
	case ActionPong:
		p.RemoveTile(discard.Tile)
		p.RemoveTile(discard.Tile)
		p.Melds = append(p.Melds, NewPongMeld(discard.Tile, discard.Seat))
		p.SortHand()
	case ActionKong:
		for i := 0; i < 3; i++ {
			p.RemoveTile(discard.Tile)
		}
		p.Melds = append(p.Melds, NewKongMeld(discard.Tile, discard.Seat))
		p.SortHand()
		if t, ok := m.Deck.DrawHead(); ok {
			p.DrawTile(t)
			m.listener.OnDraw(seat, t)
			m.processBonusChain(p, true)
		}
	case ActionChi:
		for _, t := range action.Tiles {
			p.RemoveTile(t)
		}
		p.Melds = append(p.Melds, NewChiMeld(append(copyTiles(action.Tiles), discard.Tile), discard.Seat))
		p.SortHand()
	}
	m.Turn.EnterDropPhase(seat)
}

func (m *Match) winByDiscard(seat int, discard *LastDiscard) {
	p := m.Seats[seat]
	hand := append(copyTiles(p.Tiles), discard.Tile)
	detail := CalculateScore(hand, p.Melds, len(p.BonusTiles))
	payout := detail.ApplyPayout(false, m.ScoreMultiplier)

	deltas := make([]int, len(m.Seats))
	deltas[seat] += payout
	deltas[discard.Seat] -= payout
	tile := discard.Tile
	m.endRound(&RoundResult{
		Kind:      RoundEndWin,
		Winner:    seat,
		Discarder: discard.Seat,
		WinTile:   &tile,
		Score:     detail,
		Deltas:    deltas,
	})
}

func (m *Match) selfWin(seat int) {
	p := m.Seats[seat]
	detail := CalculateScore(p.Tiles, p.Melds, len(p.BonusTiles))
	payout := detail.ApplyPayout(true, m.ScoreMultiplier)

	deltas := make([]int, len(m.Seats))
	for i := range m.Seats {
		if i == seat {
			continue
		}
		deltas[i] -= payout
		deltas[seat] += payout
	}
	var tile *Tile
	if p.NewestTile != nil {
		t := *p.NewestTile
		tile = &t
	}
	m.endRound(&RoundResult{
		Kind:      RoundEndSelfWin,
		Winner:    seat,
		Discarder: -1,
		WinTile:   tile,
		Score:     detail,
		Deltas:    deltas,
	})
}

// endRound 结算并清空本局状态，保留累计得分和座位，等待骰子
// 流局时由本局的开局座位掷骰子
func (m *Match) endRound(result *RoundResult) {
	if result.Deltas == nil {
		result.Deltas = make([]int, len(m.Seats))
	}
	for i, d := range result.Deltas {
		m.Seats[i].AddPoints(d)
	}
	result.GameCount = m.GameCount
	result.Scores = make([]int, len(m.Seats))
	for i, p := range m.Seats {
		result.Scores[i] = p.Points
	}

	roller := result.Winner
	if roller < 0 {
		roller = m.openingSeat
	}
	m.LastWinner = roller
	m.Started = false
	m.ScoreMultiplier = m.NextGameMultiplier
	m.NextGameMultiplier = 1
	m.DiceValues = nil
	m.Window = nil
	m.WaitingForDice = true
	m.DiceRoller = roller
	m.LastResult = result
	m.Deck.Reset()
	m.Turn.EnterDicePhase()

	// 先回调再清空，牌谱需要记录结束时的手牌
	m.listener.OnRoundEnd(m, result)
	for _, p := range m.Seats {
		p.ResetRound()
	}
}

// ActionsFor 座位在当前窗口可选的操作
func (m *Match) ActionsFor(seat int) []*PlayerAction {
	return m.Window.MenuFor(seat)
}

// CanTing 轮到该座位出牌、尚未听牌，并且存在打出后听牌的牌
func (m *Match) CanTing(seat int) bool {
	if seat < 0 || seat >= len(m.Seats) {
		return false
	}
	p := m.Seats[seat]
	if !m.isSeatToAct(seat) || p.Ting {
		return false
	}
	return len(m.opts.Searcher.TingDiscardables(p.Tiles, p.Melds)) > 0
}

// TingDiscardables 宣告听牌后可以打的牌，只在宣告待确认时返回
func (m *Match) TingDiscardables(seat int) []Tile {
	if seat < 0 || seat >= len(m.Seats) || !m.Seats[seat].TingPending {
		return nil
	}
	p := m.Seats[seat]
	return m.opts.Searcher.TingDiscardables(p.Tiles, p.Melds)
}

func (m *Match) ExpectsDiscard() bool {
	return m.Started && m.Window == nil && m.Turn.ExpectsDiscard()
}

func (m *Match) WallCount() int {
	return m.Deck.Remaining()
}
