package conn

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"shmahjong/common/log"
	"shmahjong/common/utils"
	fconn "shmahjong/framework/conn"
	"shmahjong/runtime/game/share"
)

const (
	DefaultRoomID = "lobby"
	DefaultName   = "guest"
)

var (
	ErrInvalidJSON     = errors.New("invalid JSON")
	ErrTooManyRequests = errors.New("too many requests")
)

type HandlerFunc func(w *Worker, c *fconn.LongConnection, payload json.RawMessage) error

type MessageTypeHandler map[string]HandlerFunc

// ClientMessage 上行帧
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type joinPayload struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

type discardPayload struct {
	RoomID string `json:"roomId"`
	Tile   string `json:"tile"`
}

type claimPayload struct {
	RoomID string `json:"roomId"`
	Claim  struct {
		ID string `json:"id"`
	} `json:"claim"`
}

// 玩家消息路由
func (w *Worker) injectDefaultHandlers() {
	w.MessageTypeHandlers["ping"] = pingHandler
	w.MessageTypeHandlers["join"] = joinHandler
	w.MessageTypeHandlers["start"] = roomIntentHandler(func(base share.GameMessageEvent) share.GameEvent {
		return &share.StartEvent{GameMessageEvent: base}
	})
	w.MessageTypeHandlers["draw"] = roomIntentHandler(func(base share.GameMessageEvent) share.GameEvent {
		return &share.DrawEvent{GameMessageEvent: base}
	})
	w.MessageTypeHandlers["ting"] = roomIntentHandler(func(base share.GameMessageEvent) share.GameEvent {
		return &share.TingEvent{GameMessageEvent: base}
	})
	w.MessageTypeHandlers["ting_cancel"] = roomIntentHandler(func(base share.GameMessageEvent) share.GameEvent {
		return &share.TingCancelEvent{GameMessageEvent: base}
	})
	w.MessageTypeHandlers["roll_dice"] = roomIntentHandler(func(base share.GameMessageEvent) share.GameEvent {
		return &share.RollDiceEvent{GameMessageEvent: base}
	})
	w.MessageTypeHandlers["discard"] = discardHandler
	w.MessageTypeHandlers["claim"] = claimHandler
}

// handlePack 解码并分发一帧，单帧处理中的 panic 只影响当前连接
func (w *Worker) handlePack(pack *ConnectionPack) {
	client, ok := w.lookup(pack.ConnID)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&w.stats.messageErrors, 1)
			log.Error("客户端[%s] 处理消息 panic: %v\n%s", pack.ConnID, r, debug.Stack())
			w.removeClient(pack.ConnID)
		}
	}()

	if !client.Session.Allow() {
		w.send(client, share.NewErrorMessage(ErrTooManyRequests.Error()))
		return
	}

	msg, err := decodeClientMessage(pack.Body)
	if err != nil {
		atomic.AddInt64(&w.stats.messageErrors, 1)
		log.Debug("客户端[%s] 解码错误: %v", pack.ConnID, err)
		w.send(client, share.NewErrorMessage(ErrInvalidJSON.Error()))
		return
	}

	handler, exists := w.MessageTypeHandlers[msg.Type]
	if !exists {
		w.send(client, share.NewErrorMessage(fmt.Sprintf("unknown type: %s", msg.Type)))
		return
	}
	if err := handler(w, client, msg.Payload); err != nil {
		w.send(client, share.NewErrorMessage(err.Error()))
	}
}

// decodeClientMessage payload 缺失或为 null 时按 {} 处理
func decodeClientMessage(body []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, err
	}
	if len(msg.Payload) == 0 || string(msg.Payload) == "null" {
		msg.Payload = json.RawMessage("{}")
	}
	return &msg, nil
}

func decodePayload(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return ErrInvalidJSON
	}
	return nil
}

func pingHandler(w *Worker, c *fconn.LongConnection, _ json.RawMessage) error {
	w.send(c, share.NewPongMessage(time.Now()))
	return nil
}

// joinHandler 加入房间，已在其他房间时由 RoomManager 先离开
func joinHandler(w *Worker, c *fconn.LongConnection, payload json.RawMessage) error {
	var req joinPayload
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	roomID := utils.TrimOrDefault(req.RoomID, DefaultRoomID)
	name := utils.TrimOrDefault(req.Name, DefaultName)

	session := c.Session
	if _, err := w.gameWorker.RoomManager.JoinRoom(roomID, share.NewUserInfo(session.PlayerID, name)); err != nil {
		log.Error("玩家 %s 加入房间 %s 失败: %v", session.PlayerID, roomID, err)
		return err
	}
	session.SetRoom(roomID, name)
	return nil
}

// roomIntentHandler 只带 roomId 的房间意图
func roomIntentHandler(build func(base share.GameMessageEvent) share.GameEvent) HandlerFunc {
	return func(w *Worker, c *fconn.LongConnection, payload json.RawMessage) error {
		var req roomPayload
		if err := decodePayload(payload, &req); err != nil {
			return err
		}
		base := share.GameMessageEvent{UserID: c.Session.PlayerID}
		return w.gameWorker.RoomManager.Dispatch(utils.TrimOrDefault(req.RoomID, DefaultRoomID), build(base))
	}
}

func discardHandler(w *Worker, c *fconn.LongConnection, payload json.RawMessage) error {
	var req discardPayload
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	event := &share.DiscardEvent{
		GameMessageEvent: share.GameMessageEvent{UserID: c.Session.PlayerID},
		Tile:             strings.TrimSpace(req.Tile),
	}
	return w.gameWorker.RoomManager.Dispatch(utils.TrimOrDefault(req.RoomID, DefaultRoomID), event)
}

func claimHandler(w *Worker, c *fconn.LongConnection, payload json.RawMessage) error {
	var req claimPayload
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	event := &share.ClaimEvent{
		GameMessageEvent: share.GameMessageEvent{UserID: c.Session.PlayerID},
		ClaimID:          req.Claim.ID,
	}
	return w.gameWorker.RoomManager.Dispatch(utils.TrimOrDefault(req.RoomID, DefaultRoomID), event)
}
