package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoundRecord 局记录（每局一个文档），存事件流和结算结果，只写不读回对局
type RoundRecord struct {
	ID                 primitive.ObjectID `bson:"_id"`
	GameRecordID       primitive.ObjectID `bson:"game_record_id"`
	RoomID             string             `bson:"room_id"`
	GameCount          int                `bson:"game_count"`   // 房间内第几局，从 1 开始
	OpeningSeat        int                `bson:"opening_seat"` // 首先出牌的座位
	DiceValues         []int              `bson:"dice_values"`
	ScoreMultiplier    int                `bson:"score_multiplier"`
	NextGameMultiplier int                `bson:"next_game_multiplier"`
	Events             []RoundEvent       `bson:"events"`
	RoundResult        *RoundResult       `bson:"round_result"`
	StartTime          time.Time          `bson:"start_time"`
	EndTime            time.Time          `bson:"end_time"`
	Duration           int                `bson:"duration"` // 秒
	CreatedAt          time.Time          `bson:"created_at"`
}

// RoundEvent 回合事件（只存事件，不存快照）
type RoundEvent struct {
	Sequence  int                    `bson:"sequence"`
	EventType string                 `bson:"event_type"`
	Timestamp time.Time              `bson:"timestamp"`
	SeatIndex int                    `bson:"seat_index"` // -1 表示系统事件
	Data      map[string]interface{} `bson:"data"`
}

type RoundResult struct {
	EndType       string   `bson:"end_type"` // "self-win", "win", "draw"
	WinnerSeat    int      `bson:"winner_seat"`
	DiscarderSeat int      `bson:"discarder_seat"`
	WinTile       string   `bson:"win_tile,omitempty"`
	Patterns      []string `bson:"patterns"`
	HandScore     int      `bson:"hand_score"`
	Payout        int      `bson:"payout"` // 每个付款方支付的点数
	Delta         []int    `bson:"delta"`  // 按座位索引
	Points        []int    `bson:"points"` // 结算后的累计得分
}

func NewRoundRecord(gameRecordID primitive.ObjectID, roomID string, gameCount, openingSeat int) *RoundRecord {
	now := time.Now()
	return &RoundRecord{
		ID:           primitive.NewObjectID(),
		GameRecordID: gameRecordID,
		RoomID:       roomID,
		GameCount:    gameCount,
		OpeningSeat:  openingSeat,
		Events:       make([]RoundEvent, 0, 128),
		StartTime:    now,
		CreatedAt:    now,
	}
}

func (rr *RoundRecord) AddEvent(eventType string, seatIndex int, data map[string]interface{}) {
	rr.Events = append(rr.Events, RoundEvent{
		Sequence:  len(rr.Events),
		EventType: eventType,
		Timestamp: time.Now(),
		SeatIndex: seatIndex,
		Data:      data,
	})
}

func (rr *RoundRecord) CompleteRound(result *RoundResult) {
	rr.EndTime = time.Now()
	rr.Duration = int(rr.EndTime.Sub(rr.StartTime).Seconds())
	rr.RoundResult = result
}

// Summary 发布到消息总线的精简结果
func (rr *RoundRecord) Summary() *RoundSummary {
	s := &RoundSummary{
		RoomID:    rr.RoomID,
		RecordID:  rr.ID.Hex(),
		GameCount: rr.GameCount,
		EndedAt:   rr.EndTime,
	}
	if rr.RoundResult != nil {
		s.EndType = rr.RoundResult.EndType
		s.WinnerSeat = rr.RoundResult.WinnerSeat
		s.Payout = rr.RoundResult.Payout
		s.Delta = rr.RoundResult.Delta
		s.Points = rr.RoundResult.Points
	}
	return s
}

type RoundSummary struct {
	RoomID     string    `json:"roomId"`
	RecordID   string    `json:"recordId"`
	GameCount  int       `json:"gameCount"`
	EndType    string    `json:"endType"`
	WinnerSeat int       `json:"winnerSeat"`
	Payout     int       `json:"payout"`
	Delta      []int     `json:"delta"`
	Points     []int     `json:"points"`
	EndedAt    time.Time `json:"endedAt"`
}

// 事件类型
const (
	EventTypeRoundStart  = "round_start"
	EventTypeDrawTile    = "draw_tile"
	EventTypeDiscardTile = "discard_tile"
	EventTypeChi         = "chi"
	EventTypePong        = "pong"
	EventTypeKong        = "kong"
	EventTypeTing        = "ting"
	EventTypeWin         = "win"
	EventTypeSelfWin     = "self_win"
	EventTypeRoundEnd    = "round_end"
)
