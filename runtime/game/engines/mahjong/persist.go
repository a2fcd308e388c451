package mahjong

import (
	"context"
	"sync"
	"time"

	"shmahjong/common/log"
	"shmahjong/core/domain/entity"
	"shmahjong/core/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const persistTimeout = 10 * time.Second

// GamePersister 牌谱持久化组件
// 对局过程中在 actor 线程收集事件，每局结束后异步写入数据库并发布结算结果
// repo 和 publisher 都可以为空，对应功能关闭
type GamePersister struct {
	repo         repository.GameRecordRepository
	publisher    repository.RoundResultPublisher
	roomID       string
	gameRecord   *entity.GameRecord
	currentRound *entity.RoundRecord
	eventMu      sync.Mutex
	pending      *sync.WaitGroup // 可以由多个房间共享，节点关闭时统一等待
	closed       bool

	writeMu   sync.Mutex
	lastWrite chan struct{} // 上一个异步写入，写入按提交顺序串行执行
}

// NewGamePersister pending 为空时使用独立的计数
func NewGamePersister(repo repository.GameRecordRepository, publisher repository.RoundResultPublisher, roomID string, pending *sync.WaitGroup) *GamePersister {
	if pending == nil {
		pending = new(sync.WaitGroup)
	}
	return &GamePersister{
		repo:      repo,
		publisher: publisher,
		roomID:    roomID,
		pending:   pending,
	}
}

// GetGameRecordID 首局开始前返回零值
func (gp *GamePersister) GetGameRecordID() primitive.ObjectID {
	gp.eventMu.Lock()
	defer gp.eventMu.Unlock()
	if gp.gameRecord == nil {
		return primitive.NilObjectID
	}
	return gp.gameRecord.ID
}

// StartRound 开始新的一局，首局时同时创建房间的对局记录
func (gp *GamePersister) StartRound(m *Match) {
	gp.eventMu.Lock()
	defer gp.eventMu.Unlock()
	if gp.closed {
		return
	}

	if gp.gameRecord == nil {
		players := make([]entity.PlayerInfo, 0, len(m.Seats))
		for _, p := range m.Seats {
			players = append(players, entity.PlayerInfo{UserID: p.UserID, SeatIndex: p.SeatIndex, Nickname: p.Name})
		}
		gp.gameRecord = entity.NewGameRecord(gp.roomID, players)
		record := *gp.gameRecord
		gp.async(func(ctx context.Context) {
			if err := gp.repo.SaveGameRecord(ctx, &record); err != nil {
				log.Error("房间[%s] 保存对局记录失败: %v", gp.roomID, err)
			}
		}, true)
	}

	gp.currentRound = entity.NewRoundRecord(gp.gameRecord.ID, gp.roomID, m.GameCount, m.openingSeat)
	gp.currentRound.DiceValues = append([]int(nil), m.DiceValues...)
	gp.currentRound.ScoreMultiplier = m.ScoreMultiplier
	gp.currentRound.NextGameMultiplier = m.NextGameMultiplier

	hands := make([][]string, len(m.Seats))
	bonus := make([][]string, len(m.Seats))
	for i, p := range m.Seats {
		hands[i] = tileNamesOf(p.Tiles)
		bonus[i] = tileNamesOf(p.BonusTiles)
	}
	gp.currentRound.AddEvent(entity.EventTypeRoundStart, -1, map[string]interface{}{
		"opening_seat": m.openingSeat,
		"hands":        hands,
		"bonus_tiles":  bonus,
		"wall_count":   m.WallCount(),
	})
}

func (gp *GamePersister) record(eventType string, seat int, data map[string]interface{}) {
	gp.eventMu.Lock()
	defer gp.eventMu.Unlock()
	if gp.closed || gp.currentRound == nil {
		return
	}
	gp.currentRound.AddEvent(eventType, seat, data)
}

func (gp *GamePersister) RecordDrawTile(seat int, tile Tile) {
	gp.record(entity.EventTypeDrawTile, seat, map[string]interface{}{"tile": tile.String()})
}

func (gp *GamePersister) RecordDiscardTile(seat int, tile Tile) {
	gp.record(entity.EventTypeDiscardTile, seat, map[string]interface{}{"tile": tile.String()})
}

func (gp *GamePersister) RecordTing(seat int) {
	gp.record(entity.EventTypeTing, seat, map[string]interface{}{})
}

// RecordClaim 记录被采纳的鸣牌或荣和
func (gp *GamePersister) RecordClaim(seat int, action *PlayerAction, from int) {
	data := map[string]interface{}{
		"from_seat": from,
		"claim_id":  action.ID,
		"tiles":     tileNamesOf(action.Tiles),
	}
	switch action.Type {
	case ActionChi:
		gp.record(entity.EventTypeChi, seat, data)
	case ActionPong:
		gp.record(entity.EventTypePong, seat, data)
	case ActionKong:
		gp.record(entity.EventTypeKong, seat, data)
	case ActionWin:
		gp.record(entity.EventTypeWin, seat, data)
	}
}

// CompleteRound 写入结算结果，异步保存局记录并发布
func (gp *GamePersister) CompleteRound(result *RoundResult) {
	gp.eventMu.Lock()
	if gp.closed || gp.currentRound == nil {
		gp.eventMu.Unlock()
		return
	}

	rr := &entity.RoundResult{
		EndType:       string(result.Kind),
		WinnerSeat:    result.Winner,
		DiscarderSeat: result.Discarder,
		Patterns:      make([]string, 0, 2),
		Delta:         append([]int(nil), result.Deltas...),
		Points:        append([]int(nil), result.Scores...),
	}
	if result.WinTile != nil {
		rr.WinTile = result.WinTile.String()
	}
	if result.Score != nil {
		for _, p := range result.Score.Patterns {
			rr.Patterns = append(rr.Patterns, string(p))
		}
		rr.HandScore = result.Score.HandScore
		rr.Payout = result.Score.Payout
	}
	if result.Kind == RoundEndSelfWin {
		gp.currentRound.AddEvent(entity.EventTypeSelfWin, result.Winner, map[string]interface{}{"tile": rr.WinTile})
	}
	gp.currentRound.AddEvent(entity.EventTypeRoundEnd, -1, map[string]interface{}{"end_type": rr.EndType})
	gp.currentRound.CompleteRound(rr)
	gp.gameRecord.Rounds++

	round := gp.currentRound
	record := *gp.gameRecord
	gp.currentRound = nil
	gp.eventMu.Unlock()

	gp.async(func(ctx context.Context) {
		if err := gp.repo.SaveRoundRecord(ctx, round); err != nil {
			log.Error("房间[%s] 保存局记录失败: %v", gp.roomID, err)
			return
		}
		if err := gp.repo.UpdateGameRecord(ctx, &record); err != nil {
			log.Error("房间[%s] 更新对局记录失败: %v", gp.roomID, err)
		}
	}, true)
	gp.async(func(ctx context.Context) {
		if err := gp.publisher.PublishRoundResult(ctx, round.Summary()); err != nil {
			log.Warn("房间[%s] 发布局结果失败: %v", gp.roomID, err)
		}
	}, false)
}

// FinalizeGame 房间销毁时写入最终排名，之后不再收集事件
func (gp *GamePersister) FinalizeGame(points []int) {
	gp.eventMu.Lock()
	if gp.closed {
		gp.eventMu.Unlock()
		return
	}
	gp.closed = true
	if gp.gameRecord == nil {
		gp.eventMu.Unlock()
		return
	}
	gp.gameRecord.CompleteGame(&entity.GameFinalResult{
		Rankings: entity.BuildRankings(gp.gameRecord.Players, points),
		Points:   append([]int(nil), points...),
	})
	record := *gp.gameRecord
	gp.eventMu.Unlock()

	gp.async(func(ctx context.Context) {
		if err := gp.repo.UpdateGameRecord(ctx, &record); err != nil {
			log.Error("房间[%s] 保存最终结果失败: %v", gp.roomID, err)
			return
		}
		log.Info("房间[%s] 对局记录保存成功: gameRecordID=%s, rounds=%d", gp.roomID, record.ID.Hex(), record.Rounds)
	}, true)
}

// Wait 等待所有异步写入完成
func (gp *GamePersister) Wait() {
	gp.pending.Wait()
}

// async toRepo 为 true 时需要仓储，否则需要发布者；对应组件未配置时跳过
// 每个写入等上一个完成后再执行，保证对局记录先插入再更新
func (gp *GamePersister) async(fn func(ctx context.Context), toRepo bool) {
	if toRepo && gp.repo == nil {
		return
	}
	if !toRepo && gp.publisher == nil {
		return
	}

	gp.writeMu.Lock()
	prev := gp.lastWrite
	done := make(chan struct{})
	gp.lastWrite = done
	gp.writeMu.Unlock()

	gp.pending.Add(1)
	go func() {
		defer gp.pending.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func tileNamesOf(tiles []Tile) []string {
	out := make([]string, len(tiles))
	for i, t := range tiles {
		out[i] = t.String()
	}
	return out
}
