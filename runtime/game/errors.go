package game

import "errors"

var (
	ErrNotInAnyRoom      = errors.New("join a room first")
	ErrNotInRoom         = errors.New("not in room")
	ErrNoEnginePrototype = errors.New("engine prototype not set")
)
