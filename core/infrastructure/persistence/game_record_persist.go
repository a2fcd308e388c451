package persistence

import (
	"context"
	"fmt"

	"shmahjong/common/database"
	"shmahjong/common/log"
	"shmahjong/core/domain/entity"
	"shmahjong/core/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	gameRecordCollection  = "game_records"
	roundRecordCollection = "round_records"
	maxRoundQueryLimit    = 100
)

type GameRecordRepository struct {
	mongo *database.MongoManager
}

func NewGameRecordRepository(mongo *database.MongoManager) repository.GameRecordRepository {
	return &GameRecordRepository{mongo: mongo}
}

func (r *GameRecordRepository) SaveGameRecord(ctx context.Context, record *entity.GameRecord) error {
	collection := r.mongo.Db.Collection(gameRecordCollection)
	if _, err := collection.InsertOne(ctx, record); err != nil {
		log.Error("保存对局记录失败: %v", err)
		return fmt.Errorf("%w: %v", repository.ErrMongodb, err)
	}
	return nil
}

func (r *GameRecordRepository) UpdateGameRecord(ctx context.Context, record *entity.GameRecord) error {
	collection := r.mongo.Db.Collection(gameRecordCollection)
	opts := options.Replace().SetUpsert(true)
	if _, err := collection.ReplaceOne(ctx, bson.M{"_id": record.ID}, record, opts); err != nil {
		log.Error("更新对局记录失败: %v", err)
		return fmt.Errorf("%w: %v", repository.ErrMongodb, err)
	}
	return nil
}

func (r *GameRecordRepository) SaveRoundRecord(ctx context.Context, round *entity.RoundRecord) error {
	collection := r.mongo.Db.Collection(roundRecordCollection)
	if _, err := collection.InsertOne(ctx, round); err != nil {
		log.Error("保存局记录失败: %v", err)
		return fmt.Errorf("%w: %v", repository.ErrMongodb, err)
	}
	return nil
}

func (r *GameRecordRepository) FindRoundRecordsByRoom(ctx context.Context, roomID string, limit int) ([]*entity.RoundRecord, error) {
	if limit <= 0 || limit > maxRoundQueryLimit {
		limit = maxRoundQueryLimit
	}
	collection := r.mongo.Db.Collection(roundRecordCollection)
	opts := options.Find().
		SetSort(bson.D{{Key: "end_time", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		log.Error("查询局记录失败: %v", err)
		return nil, fmt.Errorf("%w: %v", repository.ErrMongodb, err)
	}
	defer cursor.Close(ctx)

	records := make([]*entity.RoundRecord, 0, limit)
	if err := cursor.All(ctx, &records); err != nil {
		log.Error("解析局记录失败: %v", err)
		return nil, fmt.Errorf("%w: %v", repository.ErrMongodb, err)
	}
	return records, nil
}
