package conn

import (
	"errors"
	"sync"
	"time"

	"shmahjong/common/log"

	"github.com/gorilla/websocket"
)

var ErrWriteBufferFull = errors.New("write buffer full")

type Connection interface {
	GetSession() *Session
	SendMessage(buf []byte) error
	Close()
}

// MessagePack 读协程收到的一帧
type MessagePack struct {
	ConnID string
	Body   []byte
}

// Options 长连接的读写参数
type Options struct {
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	WriteBuffer    int
}

func (o Options) withDefaults() Options {
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 8192
	}
	if o.WriteBuffer <= 0 {
		o.WriteBuffer = 256
	}
	return o
}

// LongConnection 一个 WebSocket 长连接，读写各一个协程
// 收到的帧交给 onMessage，读协程退出时回调 onClose
type LongConnection struct {
	ConnID     string
	Conn       *websocket.Conn
	WriteChan  chan []byte
	Session    *Session
	opts       Options
	onMessage  func(*MessagePack)
	onClose    func(*LongConnection)
	pingTicker *time.Ticker
	closeChan  chan struct{}
	closeOnce  sync.Once
}

func NewLongConnection(ws *websocket.Conn, session *Session, opts Options,
	onMessage func(*MessagePack), onClose func(*LongConnection)) *LongConnection {
	opts = opts.withDefaults()
	return &LongConnection{
		ConnID:    session.ConnID,
		Conn:      ws,
		WriteChan: make(chan []byte, opts.WriteBuffer),
		Session:   session,
		opts:      opts,
		onMessage: onMessage,
		onClose:   onClose,
		closeChan: make(chan struct{}),
	}
}

func (con *LongConnection) Run() {
	con.Conn.SetPongHandler(con.PongHandler)
	go con.readMessage()
	go con.writeMessage()
}

func (con *LongConnection) writeMessage() {
	pingInterval := (con.opts.PongWait * 9) / 10
	con.pingTicker = time.NewTicker(pingInterval)
	defer con.pingTicker.Stop()

	for {
		select {
		case message := <-con.WriteChan:
			if err := con.Conn.SetWriteDeadline(time.Now().Add(con.opts.WriteWait)); err != nil {
				log.Error("客户端[%s] SetWriteDeadline err :%+v", con.ConnID, err)
			}
			if err := con.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error("客户端[%s] write stream err :%+v", con.ConnID, err)
				con.Close()
				return
			}
		case <-con.pingTicker.C:
			if err := con.Conn.SetWriteDeadline(time.Now().Add(con.opts.WriteWait)); err != nil {
				log.Error("客户端[%s] ping SetWriteDeadline err :%+v", con.ConnID, err)
			}
			if err := con.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error("客户端[%s] ping  err :%+v", con.ConnID, err)
				con.Close()
				return
			}
		case <-con.closeChan:
			log.Debug("客户端[%s] writeMessage stopped", con.ConnID)
			return
		}
	}
}

func (con *LongConnection) readMessage() {
	defer func() {
		log.Debug("客户端[%s] 读协程停止", con.ConnID)
		con.Close()
		if con.onClose != nil {
			con.onClose(con)
		}
	}()
	con.Conn.SetReadLimit(con.opts.MaxMessageSize)
	if err := con.Conn.SetReadDeadline(time.Now().Add(con.opts.PongWait)); err != nil {
		log.Error("SetReadDeadline err:%v", err)
		return
	}
	for {
		messageType, message, err := con.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn("客户端[%s] 异常断开: %v", con.ConnID, err)
			}
			return
		}
		// 任何数据帧都算活跃
		_ = con.Conn.SetReadDeadline(time.Now().Add(con.opts.PongWait))
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			log.Warn("客户端[%s] 不支持的帧类型: %d", con.ConnID, messageType)
			continue
		}
		if con.onMessage != nil {
			con.onMessage(&MessagePack{ConnID: con.ConnID, Body: message})
		}
	}
}

func (con *LongConnection) PongHandler(string) error {
	return con.Conn.SetReadDeadline(time.Now().Add(con.opts.PongWait))
}

func (con *LongConnection) GetSession() *Session {
	return con.Session
}

// SendMessage 写入发送队列，不阻塞调用方（房间引擎）
func (con *LongConnection) SendMessage(buf []byte) error {
	select {
	case <-con.closeChan:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case con.WriteChan <- buf:
		return nil
	case <-con.closeChan:
		return websocket.ErrCloseSent
	default:
		return ErrWriteBufferFull
	}
}

func (con *LongConnection) Close() {
	//确保只执行一次
	con.closeOnce.Do(func() {
		close(con.closeChan)
		if con.Conn != nil {
			_ = con.Conn.Close()
		}
		log.Info("客户端[%s] 连接关闭", con.ConnID)
	})
}
