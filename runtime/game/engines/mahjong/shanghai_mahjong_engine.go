package mahjong

import (
	"sync"
	"sync/atomic"
	"time"

	"shmahjong/common/config"
	"shmahjong/common/log"
	"shmahjong/runtime/game"
	"shmahjong/runtime/game/engines"
	"shmahjong/runtime/game/share"
)

/*
	房间引擎：一个房间一个 actor
		所有事件（玩家意图、加入离开、反应窗口计时器）都进入 gameEvents，由 actorLoop 串行处理
		对局规则全部在 Match 中，引擎只负责：
			1.把用户映射到座位，把意图转给 Match
			2.非法操作把错误发回给操作者
			3.每个事件处理完后检查窗口截止、同步计时器、广播快照
			4.对局回调转给 GamePersister 记录牌谱
	反应窗口计时器：
		每个窗口有递增的 ID，计时器到期投递 ReactionTimeoutEvent{WindowID}
		窗口提前结算后 ID 对不上，事件直接丢弃
		队列满时玩家意图会被丢弃，计时器事件阻塞投递
*/

const EventReactionTimeout = "ReactionTimeout"

// ReactionTimeoutEvent 反应窗口计时器到期
type ReactionTimeoutEvent struct {
	WindowID uint64
}

func (e *ReactionTimeoutEvent) GetUserID() string {
	return ""
}

func (e *ReactionTimeoutEvent) GetEventType() string {
	return EventReactionTimeout
}

// ShanghaiMahjong 上海麻将游戏引擎
type ShanghaiMahjong struct {
	Worker    *game.Worker // Game Worker（在 GameContainer 创建原型时注入）
	RoomID    string       // 房间 ID（用于请求销毁房间）
	Match     *Match
	Persister *GamePersister // 持久化组件

	opts          MatchOptions      // 原型上的对局参数，ReactionWindow/MinPlayers 为 0 时跟随配置
	occupants     []*share.UserInfo // 房间成员，按加入顺序
	status        atomic.Pointer[engines.RoomStatus]
	reactionTimer *time.Timer
	timerWindow   uint64

	gameEvents chan share.GameEvent
	gameDone   chan struct{}
	actorExit  chan struct{}
	closed     atomic.Bool // 接收游戏事件的关闭开关
	closeOnce  sync.Once
}

// NewShanghaiMahjong 创建引擎原型
func NewShanghaiMahjong(worker *game.Worker, opts MatchOptions) *ShanghaiMahjong {
	eg := &ShanghaiMahjong{
		Worker: worker,
		opts:   opts,
	}
	eg.status.Store(&engines.RoomStatus{})
	return eg
}

// InitializeEngine 初始化游戏引擎
func (eg *ShanghaiMahjong) InitializeEngine(roomID string) error {
	eg.RoomID = roomID
	matchConf := config.Current().MatchConf

	opts := eg.opts
	if opts.ReactionWindow <= 0 {
		opts.ReactionWindow = matchConf.ReactionWindow()
	}
	if opts.MinPlayers <= 0 {
		opts.MinPlayers = matchConf.MinPlayers
	}
	opts.SelfDrawPass = opts.SelfDrawPass || matchConf.SelfDrawPass
	eg.Match = NewMatch(opts, eg)

	if eg.Worker != nil {
		eg.Persister = NewGamePersister(eg.Worker.GameRecordRepository, eg.Worker.RoundPublisher, roomID, &eg.Worker.PendingWrites)
	} else {
		eg.Persister = NewGamePersister(nil, nil, roomID, nil)
	}

	eg.occupants = make([]*share.UserInfo, 0, MaxSeats)
	eg.status.Store(&engines.RoomStatus{RoomID: roomID})
	eg.closed.Store(false)
	eg.gameEvents = make(chan share.GameEvent, max(1, matchConf.EventQueueSize))
	eg.gameDone = make(chan struct{})
	eg.actorExit = make(chan struct{})
	go eg.actorLoop()

	log.Info("房间[%s] 游戏引擎初始化完成", roomID)
	return nil
}

// actorLoop 游戏事件循环
func (eg *ShanghaiMahjong) actorLoop() {
	defer close(eg.actorExit)
	for {
		select {
		case <-eg.gameDone:
			return
		case event := <-eg.gameEvents:
			eg.processEvent(event)
		}
	}
}

func (eg *ShanghaiMahjong) NotifyEvent(event share.GameEvent) {
	if event == nil {
		return
	}
	if eg.closed.Load() {
		return
	}

	select {
	case <-eg.gameDone:
		return
	case eg.gameEvents <- event:
		return
	default:
		log.Warn("房间[%s] gameEvents 队列已满, eventType=%s", eg.RoomID, event.GetEventType())
		return
	}
}

// postTimerEvent 计时器事件不能丢，队列满时在计时器协程里阻塞等待，房间关闭后放弃
func (eg *ShanghaiMahjong) postTimerEvent(event share.GameEvent) bool {
	if eg.closed.Load() {
		return false
	}
	select {
	case <-eg.gameDone:
		return false
	case eg.gameEvents <- event:
		return true
	}
}

func (eg *ShanghaiMahjong) Status() engines.RoomStatus {
	return *eg.status.Load()
}

// applyConfig 热更新：未固定的窗口时长和自摸 pass 跟随当前配置
func (eg *ShanghaiMahjong) applyConfig() {
	matchConf := config.Current().MatchConf
	if eg.opts.ReactionWindow <= 0 {
		eg.Match.SetReactionWindow(matchConf.ReactionWindow())
	}
	eg.Match.SetSelfDrawPass(eg.opts.SelfDrawPass || matchConf.SelfDrawPass)
}

func (eg *ShanghaiMahjong) processEvent(event share.GameEvent) {
	if event == nil {
		log.Warn("事件为空")
		return
	}
	eg.applyConfig()

	eventType := event.GetEventType()
	userID := event.GetUserID()
	seat := eg.Match.SeatOf(userID)
	log.Debug("房间[%s] 处理游戏事件: %s, user=%s, seat=%d", eg.RoomID, eventType, userID, seat)

	var err error
	switch eventType {
	case share.EventJoin:
		if e, ok := event.(*share.JoinEvent); ok {
			eg.handleJoin(e)
		}
	case share.EventLeave:
		if !eg.handleLeave(userID) {
			return
		}
	case share.EventStart:
		err = eg.Match.Start(eg.matchOccupants())
	case share.EventDraw:
		err = eg.Match.DrawFor(seat)
	case share.EventDiscard:
		if e, ok := event.(*share.DiscardEvent); ok {
			err = eg.handleDiscard(seat, e)
		}
	case share.EventTing:
		err = eg.Match.DeclareTing(seat)
	case share.EventTingCancel:
		err = eg.Match.CancelTing(seat)
	case share.EventRollDice:
		err = eg.Match.RollDice(seat)
	case share.EventClaim:
		if e, ok := event.(*share.ClaimEvent); ok {
			err = eg.Match.Claim(seat, e.ClaimID)
		}
	case EventReactionTimeout:
		if e, ok := event.(*ReactionTimeoutEvent); ok {
			if !eg.Match.ExpireWindow(e.WindowID) {
				log.Debug("房间[%s] 忽略过期的反应窗口计时器 window=%d", eg.RoomID, e.WindowID)
				return
			}
		}
	default:
		log.Warn("房间[%s] 不支持的事件类型: %s", eg.RoomID, eventType)
		return
	}

	if err != nil {
		eg.pushError(userID, err)
	}
	eg.Match.CheckDeadline()
	eg.syncReactionTimer()
	eg.updateStatus()
	eg.broadcastState()
}

func (eg *ShanghaiMahjong) handleJoin(event *share.JoinEvent) {
	for _, user := range eg.occupants {
		if user.UserID == event.UserID {
			user.Name = event.Name
			eg.pushJoined(user)
			return
		}
	}
	user := share.NewUserInfo(event.UserID, event.Name)
	eg.occupants = append(eg.occupants, user)
	eg.pushJoined(user)
}

// handleLeave 返回 false 表示房间已空，不再广播
// 已入座的玩家离开后座位保留
func (eg *ShanghaiMahjong) handleLeave(userID string) bool {
	for i, user := range eg.occupants {
		if user.UserID == userID {
			eg.occupants = append(eg.occupants[:i], eg.occupants[i+1:]...)
			break
		}
	}
	if len(eg.occupants) > 0 {
		return true
	}
	log.Info("房间[%s] 所有玩家已离开，请求销毁房间", eg.RoomID)
	eg.stopReactionTimer()
	eg.updateStatus()
	eg.Terminate()
	return false
}

func (eg *ShanghaiMahjong) handleDiscard(seat int, event *share.DiscardEvent) error {
	tile, err := ParseTile(event.Tile)
	if err != nil {
		return ErrCannotDiscard
	}
	return eg.Match.Discard(seat, tile)
}

func (eg *ShanghaiMahjong) matchOccupants() []Occupant {
	out := make([]Occupant, 0, len(eg.occupants))
	for _, user := range eg.occupants {
		out = append(out, Occupant{UserID: user.UserID, Name: user.Name})
	}
	return out
}

// syncReactionTimer 窗口变化时重新挂计时器，窗口关闭时停止
func (eg *ShanghaiMahjong) syncReactionTimer() {
	windowID := eg.Match.WindowID()
	if windowID == eg.timerWindow {
		return
	}
	eg.stopReactionTimer()
	if windowID == 0 {
		return
	}
	eg.timerWindow = windowID
	delay := time.Until(eg.Match.Window.Deadline)
	eg.reactionTimer = time.AfterFunc(delay, func() {
		eg.postTimerEvent(&ReactionTimeoutEvent{WindowID: windowID})
	})
}

func (eg *ShanghaiMahjong) stopReactionTimer() {
	if eg.reactionTimer != nil {
		eg.reactionTimer.Stop()
		eg.reactionTimer = nil
	}
	eg.timerWindow = 0
}

func (eg *ShanghaiMahjong) updateStatus() {
	eg.status.Store(&engines.RoomStatus{
		RoomID:         eg.RoomID,
		Occupants:      len(eg.occupants),
		Seated:         len(eg.Match.Seats),
		Started:        eg.Match.Started,
		WaitingForDice: eg.Match.WaitingForDice,
		GameCount:      eg.Match.GameCount,
	})
}

func (eg *ShanghaiMahjong) OnRoundStart(m *Match) {
	log.Info("房间[%s] 第 %d 局开始, 骰子=%v, 倍数=%d, 下局倍数=%d",
		eg.RoomID, m.GameCount, m.DiceValues, m.ScoreMultiplier, m.NextGameMultiplier)
	eg.Persister.StartRound(m)
}

func (eg *ShanghaiMahjong) OnDraw(seat int, tile Tile) {
	eg.Persister.RecordDrawTile(seat, tile)
}

func (eg *ShanghaiMahjong) OnDiscard(seat int, tile Tile) {
	eg.Persister.RecordDiscardTile(seat, tile)
}

func (eg *ShanghaiMahjong) OnClaim(seat int, action *PlayerAction, from int) {
	eg.Persister.RecordClaim(seat, action, from)
}

func (eg *ShanghaiMahjong) OnTing(seat int) {
	eg.Persister.RecordTing(seat)
}

func (eg *ShanghaiMahjong) OnRoundEnd(m *Match, result *RoundResult) {
	if result.Kind == RoundEndDraw {
		log.Info("房间[%s] 第 %d 局荒牌流局", eg.RoomID, result.GameCount)
	} else {
		log.Info("房间[%s] 第 %d 局结束, %s 和牌(%s), 支付=%d",
			eg.RoomID, result.GameCount, eg.seatName(result.Winner), result.Kind, result.Score.Payout)
	}
	eg.Persister.CompleteRound(result)
	eg.broadcastRoundEnd(result)
}

// Clone 原型模式，只复制注入的依赖和对局参数
func (eg *ShanghaiMahjong) Clone() engines.Engine {
	opts := eg.opts
	opts.Rng = nil
	return NewShanghaiMahjong(eg.Worker, opts)
}

// Terminate 自毁程序
func (eg *ShanghaiMahjong) Terminate() {
	if eg.Worker == nil || eg.RoomID == "" {
		return
	}
	eg.Worker.RequestDestroyRoom(eg.RoomID)
}

// Close 停止事件循环，写入最终得分
func (eg *ShanghaiMahjong) Close() {
	eg.closeOnce.Do(func() {
		eg.closed.Store(true)
		if eg.gameDone != nil {
			close(eg.gameDone)
		}
		if eg.actorExit != nil {
			<-eg.actorExit
		}
		eg.stopReactionTimer()

		if eg.Match != nil && eg.Persister != nil {
			points := make([]int, len(eg.Match.Seats))
			for i, p := range eg.Match.Seats {
				points[i] = p.Points
			}
			eg.Persister.FinalizeGame(points)
		}
		log.Info("房间[%s] 游戏引擎已关闭", eg.RoomID)
	})
}
