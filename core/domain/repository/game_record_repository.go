package repository

import (
	"context"

	"shmahjong/core/domain/entity"
)

// GameRecordRepository 对局归档仓储
type GameRecordRepository interface {
	// SaveGameRecord 首局开始时写入房间对局记录
	SaveGameRecord(ctx context.Context, record *entity.GameRecord) error

	// UpdateGameRecord 局数、最终结果变化时整体覆盖
	UpdateGameRecord(ctx context.Context, record *entity.GameRecord) error

	// SaveRoundRecord 保存局记录（每局一个文档）
	SaveRoundRecord(ctx context.Context, round *entity.RoundRecord) error

	// FindRoundRecordsByRoom 房间最近的局记录，按局数倒序
	FindRoundRecordsByRoom(ctx context.Context, roomID string, limit int) ([]*entity.RoundRecord, error)
}
