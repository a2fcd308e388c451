package share

import "time"

// UserInfo 和游戏逻辑隔离的房间成员信息
type UserInfo struct {
	UserID   string
	Name     string
	JoinedAt time.Time
}

func NewUserInfo(userID, name string) *UserInfo {
	return &UserInfo{
		UserID:   userID,
		Name:     name,
		JoinedAt: time.Now(),
	}
}
