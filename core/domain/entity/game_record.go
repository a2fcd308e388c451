package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const GameTypeShanghai = "shanghai_mahjong"

// GameRecord 一个房间从首局开始到房间销毁的对局记录（聚合根）
type GameRecord struct {
	ID          primitive.ObjectID `bson:"_id"`
	RoomID      string             `bson:"room_id"`
	GameType    string             `bson:"game_type"`
	Players     []PlayerInfo       `bson:"players"`      // 座位顺序
	Rounds      int                `bson:"rounds"`       // 已完成的局数
	StartTime   time.Time          `bson:"start_time"`
	EndTime     time.Time          `bson:"end_time"`     // 房间销毁时设置
	Duration    int                `bson:"duration"`     // 秒
	FinalResult *GameFinalResult   `bson:"final_result"` // 房间销毁时设置
	Status      string             `bson:"status"`       // "in_progress", "completed"
	CreatedAt   time.Time          `bson:"created_at"`
}

type PlayerInfo struct {
	UserID    string `bson:"user_id"`
	SeatIndex int    `bson:"seat_index"`
	Nickname  string `bson:"nickname,omitempty"`
}

type GameFinalResult struct {
	Rankings []PlayerRanking `bson:"rankings"` // 按得分从高到低
	Points   []int           `bson:"points"`   // 按座位索引
}

type PlayerRanking struct {
	SeatIndex int    `bson:"seat_index"`
	UserID    string `bson:"user_id"`
	Points    int    `bson:"points"`
	Rank      int    `bson:"rank"` // 从 1 开始，同分同名次
}

func NewGameRecord(roomID string, players []PlayerInfo) *GameRecord {
	now := time.Now()
	return &GameRecord{
		ID:        primitive.NewObjectID(),
		RoomID:    roomID,
		GameType:  GameTypeShanghai,
		Players:   players,
		StartTime: now,
		Status:    "in_progress",
		CreatedAt: now,
	}
}

// CompleteGame 房间销毁时写入最终得分
func (gr *GameRecord) CompleteGame(finalResult *GameFinalResult) {
	gr.EndTime = time.Now()
	gr.Duration = int(gr.EndTime.Sub(gr.StartTime).Seconds())
	gr.FinalResult = finalResult
	gr.Status = "completed"
}

// BuildRankings 按得分排名，同分同名次
func BuildRankings(players []PlayerInfo, points []int) []PlayerRanking {
	rankings := make([]PlayerRanking, 0, len(players))
	for _, p := range players {
		pts := 0
		if p.SeatIndex >= 0 && p.SeatIndex < len(points) {
			pts = points[p.SeatIndex]
		}
		rankings = append(rankings, PlayerRanking{SeatIndex: p.SeatIndex, UserID: p.UserID, Points: pts})
	}
	// 插入排序，最多 4 人
	for i := 1; i < len(rankings); i++ {
		for j := i; j > 0 && rankings[j].Points > rankings[j-1].Points; j-- {
			rankings[j], rankings[j-1] = rankings[j-1], rankings[j]
		}
	}
	for i := range rankings {
		if i > 0 && rankings[i].Points == rankings[i-1].Points {
			rankings[i].Rank = rankings[i-1].Rank
		} else {
			rankings[i].Rank = i + 1
		}
	}
	return rankings
}
