package share

import "time"

// 下行消息类型
const (
	MessageHello    = "hello"
	MessagePong     = "pong"
	MessageSystem   = "system"
	MessageJoined   = "joined"
	MessageState    = "state"
	MessageError    = "error"
	MessageRoundEnd = "round_end"
)

// Message 客户端收发的统一消息格式 {type, payload}
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type TextPayload struct {
	Message string `json:"message"`
}

type JoinedPayload struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

type PongPayload struct {
	Ts string `json:"ts"`
}

func NewMessage(msgType string, payload any) *Message {
	return &Message{Type: msgType, Payload: payload}
}

func NewErrorMessage(text string) *Message {
	return NewMessage(MessageError, &TextPayload{Message: text})
}

func NewSystemMessage(text string) *Message {
	return NewMessage(MessageSystem, &TextPayload{Message: text})
}

func NewHelloMessage() *Message {
	return NewMessage(MessageHello, &TextPayload{Message: "connected to Shanghai Mahjong WS"})
}

// NewPongMessage ts 为 ISO-8601 UTC 时间
func NewPongMessage(now time.Time) *Message {
	return NewMessage(MessagePong, &PongPayload{Ts: now.UTC().Format(time.RFC3339Nano)})
}
