package conn

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"shmahjong/common/config"
	"shmahjong/common/log"
	fconn "shmahjong/framework/conn"
	"shmahjong/runtime/game"
	"shmahjong/runtime/game/share"

	"github.com/gorilla/websocket"
)

/*
长连接网关职责：
 1. 连接事件：处理玩家长连接的生命周期、读写事件，连接建立时签发玩家 ID
 2. 协议：JSON 文本帧 {type, payload}，按 type 分发到处理器
 3. 房间路由：join 之后的意图按 roomId 投递到房间引擎
 4. 推送：实现 game.Pusher，引擎通过玩家 ID 找到连接
 同一个连接的帧（包括断开）固定由同一个工作协程处理，保证顺序
*/

// ConnectionPack 投递给工作协程的一帧，closed 表示连接已断开
type ConnectionPack struct {
	ConnID string
	Body   []byte
	closed bool
}

type ClientBucket struct {
	sync.RWMutex
	clients map[string]*fconn.LongConnection
}

func NewClientBucket() *ClientBucket {
	return &ClientBucket{
		clients: make(map[string]*fconn.LongConnection),
	}
}

type Worker struct {
	gameWorker *game.Worker
	connOpts   fconn.Options
	upgrader   *websocket.Upgrader

	clientBuckets       []*ClientBucket
	clientWorkers       []chan *ConnectionPack
	bucketMask          uint32
	clientWorkerCount   int
	MessageTypeHandlers MessageTypeHandler // see: handler.go

	maxConnectionCount int
	connSemaphore      chan struct{} // 连接信号量
	connSeq            atomic.Uint64
	stats              struct {
		messageProcessed   int64
		messageErrors      int64
		avgProcessingTime  int64
		currentConnections int32
	}

	connMap   sync.Map // playerID -> *fconn.LongConnection
	runOnce   sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

func NewWorker(gameWorker *game.Worker, connConf config.ConnConf) *Worker {
	bucketCount := 32
	workerCount := runtime.NumCPU() * 2
	maxConn := connConf.MaxConnections
	if maxConn <= 0 {
		maxConn = 10000
	}

	w := &Worker{
		gameWorker: gameWorker,
		connOpts: fconn.Options{
			PongWait:       time.Duration(connConf.PongWait) * time.Second,
			WriteWait:      time.Duration(connConf.WriteWait) * time.Second,
			MaxMessageSize: connConf.MaxMessageSize,
		},
		MessageTypeHandlers: make(MessageTypeHandler),
		bucketMask:          uint32(bucketCount - 1),
		clientWorkerCount:   workerCount,
		maxConnectionCount:  maxConn,
		connSemaphore:       make(chan struct{}, maxConn),
		done:                make(chan struct{}),
	}

	w.clientBuckets = make([]*ClientBucket, bucketCount)
	for i := range bucketCount {
		w.clientBuckets[i] = NewClientBucket()
	}
	w.clientWorkers = make([]chan *ConnectionPack, workerCount)
	for i := range workerCount {
		w.clientWorkers[i] = make(chan *ConnectionPack, 256)
	}

	w.upgrader = &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	w.injectDefaultHandlers()
	return w
}

// Run 启动工作协程
func (w *Worker) Run() {
	w.runOnce.Do(func() {
		for i := range w.clientWorkerCount {
			go w.clientWorkerRoutine(i)
		}
		go w.monitorPerformance()
		log.Info("websocket worker 启动了 %d 个 worker 协程和 %d 个连接分片桶", w.clientWorkerCount, len(w.clientBuckets))
	})
}

// ServeHTTP 升级 WebSocket，挂在 /ws 和 /ws/ 上
func (w *Worker) ServeHTTP(writer http.ResponseWriter, r *http.Request) {
	if atomic.LoadInt32(&w.stats.currentConnections) >= int32(w.maxConnectionCount) {
		http.Error(writer, "Server is at capacity", http.StatusServiceUnavailable)
		log.Warn("连接达到阈值 %s", r.RemoteAddr)
		return
	}

	ws, err := w.upgrader.Upgrade(writer, r, nil)
	if err != nil {
		log.Warn("websocket 升级失败, err:%v", err)
		return
	}

	connID := fmt.Sprintf("conn-%d", w.connSeq.Add(1))
	session := fconn.NewSession(connID, config.Current().ConnConf.RateLimit)
	client := fconn.NewLongConnection(ws, session, w.connOpts, w.enqueue, w.onDisconnect)
	if !w.addClient(client) {
		client.Close()
		return
	}
	w.send(client, share.NewHelloMessage())
	client.Run()
	log.Info("WebSocket 建立连接: playerID=%s, connID=%s, remote=%s", session.PlayerID, connID, r.RemoteAddr)
}

func (w *Worker) addClient(client *fconn.LongConnection) bool {
	select {
	case w.connSemaphore <- struct{}{}:
	default:
		log.Warn("addClient: 连接数达到上限")
		return false
	}

	bucket := w.getBucket(client.ConnID)
	bucket.Lock()
	bucket.clients[client.ConnID] = client
	bucket.Unlock()

	w.connMap.Store(client.Session.PlayerID, client)
	atomic.AddInt32(&w.stats.currentConnections, 1)
	return true
}

// removeClient 只在工作协程中调用，和该连接的其他帧保持顺序
func (w *Worker) removeClient(connID string) {
	bucket := w.getBucket(connID)
	bucket.Lock()
	client, ok := bucket.clients[connID]
	if ok {
		delete(bucket.clients, connID)
	}
	bucket.Unlock()
	if !ok {
		return
	}

	playerID := client.Session.PlayerID
	w.connMap.CompareAndDelete(playerID, client)
	if roomID, left := w.gameWorker.RoomManager.LeaveRoom(playerID); left {
		log.Info("玩家 %s 断开连接，离开房间 %s", playerID, roomID)
	}
	client.Close()

	select {
	case <-w.connSemaphore:
	default:
	}
	atomic.AddInt32(&w.stats.currentConnections, -1)
}

func (w *Worker) enqueue(pack *fconn.MessagePack) {
	w.dispatch(&ConnectionPack{ConnID: pack.ConnID, Body: pack.Body})
}

func (w *Worker) onDisconnect(client *fconn.LongConnection) {
	w.dispatch(&ConnectionPack{ConnID: client.ConnID, closed: true})
}

func (w *Worker) dispatch(pack *ConnectionPack) {
	idx := fnv32(pack.ConnID) % uint32(w.clientWorkerCount)
	select {
	case w.clientWorkers[idx] <- pack:
	case <-w.done:
	}
}

func (w *Worker) clientWorkerRoutine(workerID int) {
	for {
		select {
		case <-w.done:
			return
		case pack := <-w.clientWorkers[workerID]:
			startTime := time.Now()

			if pack.closed {
				w.removeClient(pack.ConnID)
				continue
			}
			w.handlePack(pack)

			processingTime := time.Since(startTime).Microseconds()
			atomic.AddInt64(&w.stats.messageProcessed, 1)
			oldAvg := atomic.LoadInt64(&w.stats.avgProcessingTime)
			newAvg := (oldAvg*9 + processingTime) / 10
			atomic.StoreInt64(&w.stats.avgProcessingTime, newAvg)
		}
	}
}

func (w *Worker) monitorPerformance() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			log.Debug("性能监控: connections=%d, messages_processed=%d, avg_processing_time=%dμs, errors=%d",
				atomic.LoadInt32(&w.stats.currentConnections),
				atomic.LoadInt64(&w.stats.messageProcessed),
				atomic.LoadInt64(&w.stats.avgProcessingTime),
				atomic.LoadInt64(&w.stats.messageErrors))
		}
	}
}

func (w *Worker) lookup(connID string) (*fconn.LongConnection, bool) {
	bucket := w.getBucket(connID)
	bucket.RLock()
	defer bucket.RUnlock()
	client, ok := bucket.clients[connID]
	return client, ok
}

func (w *Worker) getBucket(connID string) *ClientBucket {
	return w.clientBuckets[fnv32(connID)&w.bucketMask]
}

func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// Push 实现 game.Pusher
func (w *Worker) Push(userID string, msg *share.Message) error {
	connAny, ok := w.connMap.Load(userID)
	if !ok {
		return fmt.Errorf("玩家 %s 连接不存在", userID)
	}
	return w.write(connAny.(fconn.Connection), msg)
}

func (w *Worker) write(c fconn.Connection, msg *share.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化消息 %s 失败: %w", msg.Type, err)
	}
	return c.SendMessage(data)
}

// send 直接回复当前连接，失败只记录日志
func (w *Worker) send(c fconn.Connection, msg *share.Message) {
	if err := w.write(c, msg); err != nil {
		log.Warn("回复客户端[%s] %s 失败: %v", c.GetSession().ConnID, msg.Type, err)
	}
}

// SetRateLimit 配置热更新时调整所有连接的限流
func (w *Worker) SetRateLimit(rate int) {
	for _, bucket := range w.clientBuckets {
		bucket.RLock()
		for _, client := range bucket.clients {
			client.Session.SetRateLimit(rate)
		}
		bucket.RUnlock()
	}
}

// Close 关闭所有连接并停止工作协程
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		for _, bucket := range w.clientBuckets {
			bucket.RLock()
			for _, client := range bucket.clients {
				client.Close()
			}
			bucket.RUnlock()
		}
	})
}
