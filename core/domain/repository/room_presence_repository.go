package repository

import (
	"context"
	"time"

	"shmahjong/core/domain/entity"
)

// RoomPresenceRepository 房间成员和节点负载的实时镜像
type RoomPresenceRepository interface {
	SaveRoom(ctx context.Context, presence *entity.RoomPresence, ttl time.Duration) error
	DeleteRoom(ctx context.Context, roomID string) error
	SaveNodeLoad(ctx context.Context, load *entity.NodeLoad, ttl time.Duration) error
}
