package realtime

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"shmahjong/common/database"
	"shmahjong/core/domain/entity"
	"shmahjong/core/domain/repository"

	"github.com/redis/go-redis/v9"
)

const (
	roomKeyPrefix = "shmahjong:room:" // hash: 元信息 + 成员
	nodeKeyPrefix = "shmahjong:node:" // hash: 节点负载
	memberField   = "member:"
)

// RedisRoomPresenceRepository Redis 实现的房间成员镜像
type RedisRoomPresenceRepository struct {
	redis *database.RedisManager
}

func NewRedisRoomPresenceRepository(redis *database.RedisManager) repository.RoomPresenceRepository {
	return &RedisRoomPresenceRepository{redis: redis}
}

func roomKey(roomID string) string {
	return roomKeyPrefix + roomID
}

// SaveRoom 整体覆盖房间 hash 并刷新 TTL
func (r *RedisRoomPresenceRepository) SaveRoom(ctx context.Context, presence *entity.RoomPresence, ttl time.Duration) error {
	cli, err := r.redis.GetClient()
	if err != nil {
		return err
	}
	key := roomKey(presence.RoomID)
	fields := map[string]interface{}{
		"node":      presence.NodeID,
		"started":   strconv.FormatBool(presence.Started),
		"gameCount": presence.GameCount,
		"updatedAt": time.Now().Unix(),
	}
	for userID, name := range presence.Occupants {
		fields[memberField+userID] = name
	}

	_, err = cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrRedis, err)
	}
	return nil
}

func (r *RedisRoomPresenceRepository) DeleteRoom(ctx context.Context, roomID string) error {
	cli, err := r.redis.GetClient()
	if err != nil {
		return err
	}
	if err := cli.Del(ctx, roomKey(roomID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrRedis, err)
	}
	return nil
}

func (r *RedisRoomPresenceRepository) SaveNodeLoad(ctx context.Context, load *entity.NodeLoad, ttl time.Duration) error {
	cli, err := r.redis.GetClient()
	if err != nil {
		return err
	}
	key := nodeKeyPrefix + load.NodeID
	_, err = cli.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"rooms", load.Rooms,
			"players", load.Players,
			"cpu", strconv.FormatFloat(load.CPUUsage, 'f', 2, 64),
			"mem", strconv.FormatFloat(load.MemUsage, 'f', 2, 64),
			"load", strconv.FormatFloat(load.Load, 'f', 2, 64),
			"updatedAt", time.Now().Unix(),
		)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrRedis, err)
	}
	return nil
}
