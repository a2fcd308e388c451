package mahjong

import (
	"sync"
	"testing"
	"time"

	"shmahjong/runtime/game"
	"shmahjong/runtime/game/engines"
	"shmahjong/runtime/game/share"
)

type recordingPusher struct {
	mu   sync.Mutex
	msgs map[string][]*share.Message
}

func newRecordingPusher() *recordingPusher {
	return &recordingPusher{msgs: make(map[string][]*share.Message)}
}

func (p *recordingPusher) Push(userID string, msg *share.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs[userID] = append(p.msgs[userID], msg)
	return nil
}

// find 返回 userID 收到的最后一条满足条件的消息
func (p *recordingPusher) find(userID string, match func(*share.Message) bool) *share.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	msgs := p.msgs[userID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if match(msgs[i]) {
			return msgs[i]
		}
	}
	return nil
}

func (p *recordingPusher) waitFor(t *testing.T, userID string, what string, match func(*share.Message) bool) *share.Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msg := p.find(userID, match); msg != nil {
			return msg
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s 没有收到消息: %s", userID, what)
	return nil
}

func stateMatching(cond func(*Snapshot) bool) func(*share.Message) bool {
	return func(msg *share.Message) bool {
		if msg.Type != share.MessageState {
			return false
		}
		s, ok := msg.Payload.(*Snapshot)
		return ok && cond(s)
	}
}

func newTestEngine(t *testing.T, opts MatchOptions) (*game.Worker, *recordingPusher, *ShanghaiMahjong) {
	t.Helper()
	worker := game.NewWorker("test-node", nil, time.Second)
	pusher := newRecordingPusher()
	worker.SetPusher(pusher)
	if opts.MinPlayers == 0 {
		opts.MinPlayers = 1
	}
	prototype := NewShanghaiMahjong(worker, opts)
	if err := worker.RoomManager.SetEnginePrototype(int32(engines.SHANGHAI_MAHJONG_ENGINE), prototype); err != nil {
		t.Fatalf("注入原型失败: %v", err)
	}
	t.Cleanup(worker.Close)
	return worker, pusher, prototype
}

func join(t *testing.T, worker *game.Worker, roomID, userID, name string) {
	t.Helper()
	if _, err := worker.RoomManager.JoinRoom(roomID, share.NewUserInfo(userID, name)); err != nil {
		t.Fatalf("%s 加入房间失败: %v", userID, err)
	}
}

func dispatch(t *testing.T, worker *game.Worker, roomID string, event share.GameEvent) {
	t.Helper()
	if err := worker.RoomManager.Dispatch(roomID, event); err != nil {
		t.Fatalf("投递 %s 失败: %v", event.GetEventType(), err)
	}
}

func TestEngine_JoinAndStart(t *testing.T) {
	worker, pusher, _ := newTestEngine(t, MatchOptions{})
	join(t, worker, "r1", "a", "alice")
	join(t, worker, "r1", "b", "bob")

	joined := pusher.waitFor(t, "b", "joined", func(m *share.Message) bool { return m.Type == share.MessageJoined })
	if p := joined.Payload.(*share.JoinedPayload); p.RoomID != "r1" || p.Name != "bob" {
		t.Fatalf("joined 内容不对: %+v", p)
	}
	pusher.waitFor(t, "a", "bob 加入的系统广播", func(m *share.Message) bool {
		p, ok := m.Payload.(*share.TextPayload)
		return m.Type == share.MessageSystem && ok && p.Message == "bob joined room r1"
	})

	dispatch(t, worker, "r1", &share.StartEvent{GameMessageEvent: share.GameMessageEvent{UserID: "a"}})
	pusher.waitFor(t, "a", "开局快照", stateMatching(func(s *Snapshot) bool {
		return s.Started && len(s.YourHand) == 14 && s.TurnIndex == 0
	}))
	pusher.waitFor(t, "b", "开局快照", stateMatching(func(s *Snapshot) bool {
		return s.Started && len(s.YourHand) == 13 && s.TurnIndex == 1 && s.Players[1].Name == "alice"
	}))

	room, ok := worker.RoomManager.GetRoom("r1")
	if !ok {
		t.Fatalf("房间应该存在")
	}
	status := room.Engine.Status()
	if !status.Started || status.Seated != 2 || status.GameCount != 1 {
		t.Fatalf("房间概况不对: %+v", status)
	}
}

func TestEngine_RejectedIntentGoesToSender(t *testing.T) {
	worker, pusher, _ := newTestEngine(t, MatchOptions{})
	join(t, worker, "r1", "a", "alice")
	join(t, worker, "r1", "b", "bob")
	dispatch(t, worker, "r1", &share.StartEvent{GameMessageEvent: share.GameMessageEvent{UserID: "a"}})

	dispatch(t, worker, "r1", &share.DiscardEvent{GameMessageEvent: share.GameMessageEvent{UserID: "b"}, Tile: "B1"})
	pusher.waitFor(t, "b", "出牌错误", func(m *share.Message) bool {
		p, ok := m.Payload.(*share.TextPayload)
		return m.Type == share.MessageError && ok && p.Message == ErrCannotDiscard.Error()
	})

	dispatch(t, worker, "r1", &share.DiscardEvent{GameMessageEvent: share.GameMessageEvent{UserID: "a"}, Tile: "XX"})
	pusher.waitFor(t, "a", "非法牌面的错误", func(m *share.Message) bool { return m.Type == share.MessageError })

	dispatch(t, worker, "r1", &share.StartEvent{GameMessageEvent: share.GameMessageEvent{UserID: "b"}})
	pusher.waitFor(t, "b", "重复开局的错误", func(m *share.Message) bool {
		p, ok := m.Payload.(*share.TextPayload)
		return m.Type == share.MessageError && ok && p.Message == ErrAlreadyStarted.Error()
	})

	// 错误只发给操作者
	if msg := pusher.find("a", func(m *share.Message) bool {
		p, ok := m.Payload.(*share.TextPayload)
		return m.Type == share.MessageError && ok && p.Message == ErrAlreadyStarted.Error()
	}); msg != nil {
		t.Fatalf("其他玩家不应该收到别人的错误")
	}
}

func TestEngine_ReactionTimerExpires(t *testing.T) {
	seat1 := tiles("B5", "B5", "D5", "D5", "D7", "D7", "D9", "D9", "WS", "WS", "WW", "WN", "DR")
	worker, pusher, _ := newTestEngine(t, MatchOptions{
		ReactionWindow: 50 * time.Millisecond,
		WallBuilder:    stackWall([][]Tile{plainHand, seat1}, tiles("B5"), repeatTile("DW", 10)),
	})
	join(t, worker, "r1", "a", "alice")
	join(t, worker, "r1", "b", "bob")
	dispatch(t, worker, "r1", &share.StartEvent{GameMessageEvent: share.GameMessageEvent{UserID: "a"}})
	dispatch(t, worker, "r1", &share.DiscardEvent{GameMessageEvent: share.GameMessageEvent{UserID: "a"}, Tile: "B5"})

	pusher.waitFor(t, "b", "碰牌选项", stateMatching(func(s *Snapshot) bool {
		return s.ReactionActive && len(s.YourActions) == 2
	}))
	// 不表态，等计时器到期后轮到 b 摸牌
	pusher.waitFor(t, "b", "超时后的快照", stateMatching(func(s *Snapshot) bool {
		return !s.ReactionActive && s.ExpectsDiscard && s.TurnIndex == 0 && len(s.YourHand) == 14
	}))
}

func TestEngine_ClaimResolvesWindow(t *testing.T) {
	seat1 := tiles("B5", "B5", "D5", "D5", "D7", "D7", "D9", "D9", "WS", "WS", "WW", "WN", "DR")
	worker, pusher, _ := newTestEngine(t, MatchOptions{
		ReactionWindow: time.Minute,
		WallBuilder:    stackWall([][]Tile{plainHand, seat1}, tiles("B5"), repeatTile("DW", 10)),
	})
	join(t, worker, "r1", "a", "alice")
	join(t, worker, "r1", "b", "bob")
	dispatch(t, worker, "r1", &share.StartEvent{GameMessageEvent: share.GameMessageEvent{UserID: "a"}})
	dispatch(t, worker, "r1", &share.DiscardEvent{GameMessageEvent: share.GameMessageEvent{UserID: "a"}, Tile: "B5"})
	dispatch(t, worker, "r1", &share.ClaimEvent{GameMessageEvent: share.GameMessageEvent{UserID: "b"}, ClaimID: "pong-B5"})

	pusher.waitFor(t, "a", "碰牌后的快照", stateMatching(func(s *Snapshot) bool {
		b := s.Players[1]
		return !s.ReactionActive && b.Turn && len(b.ExposedMelds) == 1 && b.ExposedMelds[0].Type == MeldPong
	}))
}

func TestEngine_LastLeaveDestroysRoom(t *testing.T) {
	worker, _, _ := newTestEngine(t, MatchOptions{})
	join(t, worker, "r1", "a", "alice")
	join(t, worker, "r2", "a", "alice")

	// 换房间时原房间已空，应该被销毁
	waitRoomGone(t, worker, "r1")
	if _, ok := worker.RoomManager.GetRoom("r2"); !ok {
		t.Fatalf("新房间应该存在")
	}

	if roomID, ok := worker.RoomManager.LeaveRoom("a"); !ok || roomID != "r2" {
		t.Fatalf("离开房间返回 %q %v", roomID, ok)
	}
	waitRoomGone(t, worker, "r2")
	if rooms, players := worker.RoomManager.GetStats(); rooms != 0 || players != 0 {
		t.Fatalf("房间和玩家都应该清空, got %d %d", rooms, players)
	}
}

func waitRoomGone(t *testing.T, worker *game.Worker, roomID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := worker.RoomManager.GetRoom(roomID); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("房间 %s 没有被销毁", roomID)
}

func TestEngine_CloneKeepsOptions(t *testing.T) {
	prototype := NewShanghaiMahjong(nil, MatchOptions{MinPlayers: 2, SelfDrawPass: true})
	clone, ok := prototype.Clone().(*ShanghaiMahjong)
	if !ok {
		t.Fatalf("克隆类型不对")
	}
	if clone == prototype || clone.opts.MinPlayers != 2 || !clone.opts.SelfDrawPass {
		t.Fatalf("克隆应该是带相同参数的新实例")
	}
	if err := clone.InitializeEngine("solo"); err != nil {
		t.Fatalf("初始化失败: %v", err)
	}
	clone.NotifyEvent(&share.JoinEvent{GameMessageEvent: share.GameMessageEvent{UserID: "a"}, Name: "alice"})
	clone.Close()
	// 关闭后的事件直接丢弃
	clone.NotifyEvent(&share.StartEvent{GameMessageEvent: share.GameMessageEvent{UserID: "a"}})
	if clone.Status().RoomID != "solo" {
		t.Fatalf("关闭后仍然可以读取概况")
	}
}

func TestEngine_TimerEventWaitsForFullQueue(t *testing.T) {
	eg := &ShanghaiMahjong{
		RoomID:     "busy",
		gameEvents: make(chan share.GameEvent, 1),
		gameDone:   make(chan struct{}),
	}
	start := &share.StartEvent{GameMessageEvent: share.GameMessageEvent{UserID: "a"}}
	eg.NotifyEvent(start)
	// 队列已满，玩家意图直接丢弃
	eg.NotifyEvent(&share.DrawEvent{GameMessageEvent: share.GameMessageEvent{UserID: "a"}})

	posted := make(chan bool, 1)
	go func() { posted <- eg.postTimerEvent(&ReactionTimeoutEvent{WindowID: 7}) }()
	select {
	case <-posted:
		t.Fatalf("队列满时计时器事件应该等待而不是丢弃")
	case <-time.After(20 * time.Millisecond):
	}

	if e := <-eg.gameEvents; e != start {
		t.Fatalf("先出队的应该是原来的事件, got %s", e.GetEventType())
	}
	select {
	case ok := <-posted:
		if !ok {
			t.Fatalf("腾出位置后计时器事件应该投递成功")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("计时器事件没有投递")
	}
	e, ok := (<-eg.gameEvents).(*ReactionTimeoutEvent)
	if !ok || e.WindowID != 7 {
		t.Fatalf("队列里应该是窗口 7 的超时事件")
	}
}

func TestEngine_TimerEventGivesUpWhenClosed(t *testing.T) {
	eg := &ShanghaiMahjong{
		gameEvents: make(chan share.GameEvent, 1),
		gameDone:   make(chan struct{}),
	}
	eg.gameEvents <- &share.StartEvent{}

	posted := make(chan bool, 1)
	go func() { posted <- eg.postTimerEvent(&ReactionTimeoutEvent{WindowID: 1}) }()
	close(eg.gameDone)
	select {
	case ok := <-posted:
		if ok {
			t.Fatalf("房间关闭后不应该投递")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("房间关闭后计时器协程应该退出")
	}

	eg.closed.Store(true)
	if eg.postTimerEvent(&ReactionTimeoutEvent{WindowID: 2}) {
		t.Fatalf("已关闭的引擎不接收计时器事件")
	}
}
