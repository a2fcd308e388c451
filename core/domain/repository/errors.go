package repository

import "errors"

var (
	ErrGameRecordNotFound = errors.New("game record not found")
	ErrArchiveDisabled    = errors.New("round archive disabled")
	ErrMongodb            = errors.New("mongodb error happen")
	ErrRedis              = errors.New("redis error happen")
	ErrPublishFailed      = errors.New("publish round result failed")
)
