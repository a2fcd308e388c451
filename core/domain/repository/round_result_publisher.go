package repository

import (
	"context"

	"shmahjong/core/domain/entity"
)

// RoundResultPublisher 局结算结果的消息发布
type RoundResultPublisher interface {
	PublishRoundResult(ctx context.Context, summary *entity.RoundSummary) error
	Close()
}
