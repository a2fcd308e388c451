package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shmahjong/core/domain/entity"
	"shmahjong/runtime/game/engines"
	"shmahjong/runtime/game/share"
)

// fakeEngine 只记录收到的事件
type fakeEngine struct {
	mu     sync.Mutex
	roomID string
	events []string
	closed bool
	clones *[]*fakeEngine
}

func (e *fakeEngine) InitializeEngine(roomID string) error {
	e.roomID = roomID
	return nil
}

func (e *fakeEngine) NotifyEvent(event share.GameEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event.GetEventType()+":"+event.GetUserID())
}

func (e *fakeEngine) Status() engines.RoomStatus {
	return engines.RoomStatus{RoomID: e.roomID, Started: true, GameCount: 3}
}

func (e *fakeEngine) Clone() engines.Engine {
	c := &fakeEngine{clones: e.clones}
	*e.clones = append(*e.clones, c)
	return c
}

func (e *fakeEngine) Terminate() {}

func (e *fakeEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

func (e *fakeEngine) snapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

func newTestRoomManager(t *testing.T) (*RoomManager, *[]*fakeEngine) {
	t.Helper()
	clones := make([]*fakeEngine, 0)
	rm := NewRoomManager()
	if err := rm.SetEnginePrototype(int32(engines.SHANGHAI_MAHJONG_ENGINE), &fakeEngine{clones: &clones}); err != nil {
		t.Fatalf("注入原型失败: %v", err)
	}
	return rm, &clones
}

func TestRoomManager_JoinCreatesRoomFromPrototype(t *testing.T) {
	rm, clones := newTestRoomManager(t)

	room, err := rm.JoinRoom("r1", share.NewUserInfo("a", "alice"))
	if err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	if _, err := rm.JoinRoom("r1", share.NewUserInfo("b", "bob")); err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	if len(*clones) != 1 {
		t.Fatalf("同一个房间只克隆一次引擎, got %d", len(*clones))
	}
	engine := (*clones)[0]
	if engine.roomID != "r1" {
		t.Fatalf("引擎应该用房间 ID 初始化, got %q", engine.roomID)
	}
	if got := engine.snapshot(); len(got) != 2 || got[0] != "Join:a" || got[1] != "Join:b" {
		t.Fatalf("引擎应该按顺序收到加入事件, got %v", got)
	}

	occupants := room.Occupants()
	if len(occupants) != 2 || occupants[0].UserID != "a" || occupants[1].UserID != "b" {
		t.Fatalf("成员应该按加入顺序排列, got %+v", occupants)
	}

	// 重复加入只更新昵称
	if _, err := rm.JoinRoom("r1", share.NewUserInfo("a", "alice2")); err != nil {
		t.Fatalf("重复加入失败: %v", err)
	}
	if user, _ := room.GetPlayer("a"); user.Name != "alice2" || room.GetPlayerCount() != 2 {
		t.Fatalf("重复加入应该只改名")
	}
}

func TestRoomManager_SwitchRoomLeavesPrevious(t *testing.T) {
	rm, clones := newTestRoomManager(t)
	if _, err := rm.JoinRoom("r1", share.NewUserInfo("a", "alice")); err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	if _, err := rm.JoinRoom("r2", share.NewUserInfo("a", "alice")); err != nil {
		t.Fatalf("加入失败: %v", err)
	}

	first := (*clones)[0]
	if got := first.snapshot(); len(got) != 2 || got[1] != "Leave:a" {
		t.Fatalf("原房间应该收到离开事件, got %v", got)
	}
	room, ok := rm.GetPlayerRoom("a")
	if !ok || room.ID != "r2" {
		t.Fatalf("玩家应该在 r2")
	}

	// 房间空了但引擎还没请求销毁，房间仍在
	if err := rm.DeleteRoomIfEmpty("r1"); err != nil {
		t.Fatalf("删除空房间失败: %v", err)
	}
	if _, ok := rm.GetRoom("r1"); ok || !first.closed {
		t.Fatalf("空房间应该被删除并关闭引擎")
	}
	if err := rm.DeleteRoomIfEmpty("r2"); err != nil {
		t.Fatalf("有人的房间不应报错: %v", err)
	}
	if _, ok := rm.GetRoom("r2"); !ok {
		t.Fatalf("有人的房间不应该被删除")
	}
}

func TestRoomManager_Dispatch(t *testing.T) {
	rm, clones := newTestRoomManager(t)
	start := &share.StartEvent{GameMessageEvent: share.GameMessageEvent{UserID: "a"}}

	if err := rm.Dispatch("r1", start); !errors.Is(err, ErrNotInAnyRoom) {
		t.Fatalf("未加入房间时应该报错, got %v", err)
	}
	if _, err := rm.JoinRoom("r1", share.NewUserInfo("a", "alice")); err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	err := rm.Dispatch("r2", start)
	if !errors.Is(err, ErrNotInRoom) || err.Error() != "not in room r2" {
		t.Fatalf("投递到别的房间应该报错, got %v", err)
	}
	if err := rm.Dispatch("r1", start); err != nil {
		t.Fatalf("投递失败: %v", err)
	}
	if got := (*clones)[0].snapshot(); got[len(got)-1] != "Start:a" {
		t.Fatalf("引擎应该收到开局事件, got %v", got)
	}
}

func TestRoomManager_NoPrototype(t *testing.T) {
	rm := NewRoomManager()
	if _, err := rm.JoinRoom("r1", share.NewUserInfo("a", "alice")); !errors.Is(err, ErrNoEnginePrototype) {
		t.Fatalf("没有原型时应该报错, got %v", err)
	}
	if rooms, players := rm.GetStats(); rooms != 0 || players != 0 {
		t.Fatalf("失败的加入不应留下状态")
	}
}

func TestRoomManager_StatusesAndCloseAll(t *testing.T) {
	rm, clones := newTestRoomManager(t)
	for _, roomID := range []string{"r2", "r1"} {
		if _, err := rm.JoinRoom(roomID, share.NewUserInfo("u-"+roomID, roomID)); err != nil {
			t.Fatalf("加入失败: %v", err)
		}
	}
	statuses := rm.RoomStatuses()
	if len(statuses) != 2 || statuses[0].RoomID != "r1" || statuses[0].Occupants != 1 || statuses[0].GameCount != 3 {
		t.Fatalf("房间目录应该按 ID 排序, got %+v", statuses)
	}

	rm.CloseAll()
	if rooms, players := rm.GetStats(); rooms != 0 || players != 0 {
		t.Fatalf("CloseAll 后应该清空, got %d %d", rooms, players)
	}
	for _, e := range *clones {
		if !e.closed {
			t.Fatalf("所有引擎都应该关闭")
		}
	}
}

type memoryPresence struct {
	mu    sync.Mutex
	rooms map[string]*entity.RoomPresence
	loads []*entity.NodeLoad
}

func (p *memoryPresence) SaveRoom(_ context.Context, presence *entity.RoomPresence, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms[presence.RoomID] = presence
	return nil
}

func (p *memoryPresence) DeleteRoom(_ context.Context, roomID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rooms, roomID)
	return nil
}

func (p *memoryPresence) SaveNodeLoad(_ context.Context, load *entity.NodeLoad, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads = append(p.loads, load)
	return nil
}

func (p *memoryPresence) room(roomID string) (*entity.RoomPresence, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.rooms[roomID]
	return r, ok
}

func TestRoomManager_PresenceMirror(t *testing.T) {
	rm, _ := newTestRoomManager(t)
	presence := &memoryPresence{rooms: make(map[string]*entity.RoomPresence)}
	rm.SetPresence(presence, "node-1", time.Minute)

	if _, err := rm.JoinRoom("r1", share.NewUserInfo("a", "alice")); err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	waitUntil(t, "房间镜像写入", func() bool {
		r, ok := presence.room("r1")
		return ok && r.NodeID == "node-1" && r.Occupants["a"] == "alice"
	})

	if err := rm.DeleteRoom("r1"); err != nil {
		t.Fatalf("删除房间失败: %v", err)
	}
	waitUntil(t, "房间镜像删除", func() bool {
		_, ok := presence.room("r1")
		return !ok
	})
}

func TestMonitor_ReportsLoad(t *testing.T) {
	rm, _ := newTestRoomManager(t)
	presence := &memoryPresence{rooms: make(map[string]*entity.RoomPresence)}
	if _, err := rm.JoinRoom("r1", share.NewUserInfo("a", "alice")); err != nil {
		t.Fatalf("加入失败: %v", err)
	}
	m := NewMonitor(rm, presence, "node-1", time.Minute)
	m.reportLoad(context.Background())

	presence.mu.Lock()
	defer presence.mu.Unlock()
	if len(presence.loads) != 1 {
		t.Fatalf("应该上报一次负载, got %d", len(presence.loads))
	}
	load := presence.loads[0]
	if load.NodeID != "node-1" || load.Rooms != 1 || load.Players != 1 {
		t.Fatalf("负载内容不对: %+v", load)
	}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("等待超时: %s", what)
}
