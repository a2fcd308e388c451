package mahjong

import (
	"fmt"

	"shmahjong/common/log"
	"shmahjong/runtime/game/share"
)

// 推送场景：
// 1. 加入房间（系统广播 + 单播 joined）
// 2. 任意事件处理后的状态快照，每个成员各自的视角
// 3. 非法操作的错误，只发给操作者
// 4. 一局结束的结算结果

// RoundEndView 结算推送，座位换成展示名
type RoundEndView struct {
	GameCount int          `json:"gameCount"`
	Kind      RoundEndKind `json:"kind"`
	Winner    string       `json:"winner"`
	Discarder string       `json:"discarder"`
	WinTile   *Tile        `json:"winTile,omitempty"`
	Score     *ScoreDetail `json:"score,omitempty"`
	Deltas    []int        `json:"deltas"`
	Scores    []int        `json:"scores"`
}

func (eg *ShanghaiMahjong) seatName(seat int) string {
	if seat < 0 || seat >= len(eg.Match.Seats) {
		return ""
	}
	return displayName(eg.Match.Seats[seat], seat)
}

// unicast 推送失败只记录日志，不影响对局
func (eg *ShanghaiMahjong) unicast(userID string, msg *share.Message) {
	if eg.Worker == nil {
		return
	}
	if err := eg.Worker.Push(userID, msg); err != nil {
		log.Warn("房间[%s] 推送 %s 给玩家 %s 失败: %v", eg.RoomID, msg.Type, userID, err)
	}
}

func (eg *ShanghaiMahjong) broadcast(msg *share.Message) {
	for _, user := range eg.occupants {
		eg.unicast(user.UserID, msg)
	}
}

func (eg *ShanghaiMahjong) pushError(userID string, err error) {
	eg.unicast(userID, share.NewErrorMessage(err.Error()))
}

func (eg *ShanghaiMahjong) pushJoined(user *share.UserInfo) {
	eg.broadcast(share.NewSystemMessage(fmt.Sprintf("%s joined room %s", user.Name, eg.RoomID)))
	eg.unicast(user.UserID, share.NewMessage(share.MessageJoined, &share.JoinedPayload{
		RoomID: eg.RoomID,
		Name:   user.Name,
	}))
}

// broadcastState 每个成员收到自己视角的快照
func (eg *ShanghaiMahjong) broadcastState() {
	for _, user := range eg.occupants {
		eg.unicast(user.UserID, share.NewMessage(share.MessageState, eg.Match.SnapshotFor(user.UserID)))
	}
}

func (eg *ShanghaiMahjong) broadcastRoundEnd(result *RoundResult) {
	view := &RoundEndView{
		GameCount: result.GameCount,
		Kind:      result.Kind,
		Winner:    eg.seatName(result.Winner),
		Discarder: eg.seatName(result.Discarder),
		WinTile:   result.WinTile,
		Score:     result.Score,
		Deltas:    result.Deltas,
		Scores:    result.Scores,
	}
	eg.broadcast(share.NewMessage(share.MessageRoundEnd, view))
}
