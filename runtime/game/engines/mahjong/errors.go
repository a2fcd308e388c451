package mahjong

import "errors"

// 非法操作错误，文本会原样推送给客户端
var (
	ErrCannotDiscard    = errors.New("cannot discard now or tile not in hand")
	ErrTingNotAllowed   = errors.New("ting only on your turn before discard")
	ErrNoTingPending    = errors.New("no ting pending")
	ErrNotDiceRoller    = errors.New("not your turn to roll dice")
	ErrNoReactionWindow = errors.New("no reaction window")
	ErrInvalidClaim     = errors.New("invalid claim")
	ErrCannotDraw       = errors.New("cannot draw now")
	ErrAlreadyStarted   = errors.New("game already started")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrNotSeated        = errors.New("you are not seated in this game")
)
