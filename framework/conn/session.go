package conn

import (
	"sync"

	"shmahjong/common/utils"

	"github.com/google/uuid"
)

// Session 连接会话：连接建立时签发玩家 ID，记录当前房间
type Session struct {
	sync.RWMutex
	ConnID   string // 连接 ID
	PlayerID string // 玩家 ID，每个连接一个新的 UUID
	name     string
	roomID   string
	limiter  *utils.RateLimiter
}

func NewSession(connID string, rateLimit int) *Session {
	return &Session{
		ConnID:   connID,
		PlayerID: uuid.NewString(),
		limiter:  utils.NewRateLimiter(rateLimit, max(1, rateLimit)),
	}
}

func (s *Session) SetRoom(roomID, name string) {
	s.Lock()
	defer s.Unlock()
	s.roomID = roomID
	s.name = name
}

func (s *Session) GetRoomID() string {
	s.RLock()
	defer s.RUnlock()
	return s.roomID
}

// Allow 令牌桶限流
func (s *Session) Allow() bool {
	return s.limiter.Allow()
}

// SetRateLimit 配置热更新时调用
func (s *Session) SetRateLimit(rate int) {
	s.limiter.SetRate(rate, max(1, rate))
}
