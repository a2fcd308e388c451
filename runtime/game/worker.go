package game

import (
	"context"
	"sync"
	"time"

	"shmahjong/common/log"
	"shmahjong/core/domain/repository"
	"shmahjong/runtime/game/share"
)

/*
	1.管理本节点的全部房间，玩家按 roomId 路由到房间引擎
	2.引擎通过 Pusher 把消息推给连接层，Worker 本身不关心连接
	3.房间销毁请求走单独的队列，避免引擎在自己的 actor 线程里关闭自己
	4.定时上报负载、刷新房间镜像
*/

// Pusher 向指定玩家推送消息，由连接层实现
type Pusher interface {
	Push(userID string, msg *share.Message) error
}

type Worker struct {
	RoomManager          *RoomManager
	Monitor              *Monitor
	NodeID               string
	GameRecordRepository repository.GameRecordRepository // 为空时不归档
	RoundPublisher       repository.RoundResultPublisher // 为空时不发布
	Presence             repository.RoomPresenceRepository
	PendingWrites        sync.WaitGroup // 牌谱异步写入

	pusher        Pusher
	destroyRoomCh chan string
	destroyMu     sync.Mutex
	destroyClosed bool
}

// NewWorker 创建 Worker，presence 为空时不做 Redis 镜像
func NewWorker(nodeID string, presence repository.RoomPresenceRepository, monitorInterval time.Duration) *Worker {
	roomManager := NewRoomManager()
	if presence != nil {
		roomManager.SetPresence(presence, nodeID, 3*monitorInterval)
	}

	worker := &Worker{
		RoomManager:   roomManager,
		Monitor:       NewMonitor(roomManager, presence, nodeID, monitorInterval),
		NodeID:        nodeID,
		Presence:      presence,
		destroyRoomCh: make(chan string, 128),
	}

	go worker.destroyRoomLoop()

	return worker
}

func (w *Worker) destroyRoomLoop() {
	for roomID := range w.destroyRoomCh {
		if roomID == "" {
			continue
		}
		err := w.RoomManager.DeleteRoomIfEmpty(roomID)
		if err != nil {
			log.Warn("Worker destroyRoomLoop 删除房间失败: %v", err)
		}
	}
}

func (w *Worker) RequestDestroyRoom(roomID string) {
	if roomID == "" {
		return
	}

	w.destroyMu.Lock()
	if w.destroyClosed {
		w.destroyMu.Unlock()
		return
	}
	ch := w.destroyRoomCh
	w.destroyMu.Unlock()

	select {
	case ch <- roomID:
	default:
		log.Warn("Worker RequestDestroyRoom 队列已满, roomID=%s", roomID)
	}
}

// SetPusher 由容器在连接层创建后注入
func (w *Worker) SetPusher(pusher Pusher) {
	w.pusher = pusher
}

// Push 推送消息给指定玩家，连接层未注入时丢弃
func (w *Worker) Push(userID string, msg *share.Message) error {
	if w.pusher == nil {
		return nil
	}
	return w.pusher.Push(userID, msg)
}

// Start 启动负载上报
func (w *Worker) Start(ctx context.Context) {
	go w.Monitor.Start(ctx)
	log.Info("Game Worker[%s] 启动成功", w.NodeID)
}

// Close 关闭 Worker，释放全部房间
func (w *Worker) Close() {
	w.destroyMu.Lock()
	if !w.destroyClosed {
		close(w.destroyRoomCh)
		w.destroyClosed = true
	}
	w.destroyMu.Unlock()

	if w.Monitor != nil {
		w.Monitor.Stop()
	}
	w.RoomManager.CloseAll()
	w.waitPendingWrites(10 * time.Second)
	log.Info("Game Worker[%s] 已关闭", w.NodeID)
}

// waitPendingWrites 等待牌谱写完再关闭数据库连接
func (w *Worker) waitPendingWrites(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		w.PendingWrites.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Warn("Game Worker[%s] 等待牌谱写入超时", w.NodeID)
	}
}
