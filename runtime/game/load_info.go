package game

// LoadInfo 负载信息
// 用于计算 game 节点的综合负载评分
type LoadInfo struct {
	GameCount   int     // 当前对局数（房间数）
	PlayerCount int     // 当前在房间中的玩家数
	CPUUsage    float64 // CPU 使用率（0-100）
	MemUsage    float64 // 内存使用率（0-100）
}

// 房间数和玩家数按该上限归一化
const (
	loadRoomCap   = 250
	loadPlayerCap = 1000
)

// CalculateLoad 计算综合负载评分
// 权重：CPU 30%、内存 20%、房间数 25%、玩家数 25%，返回值越小表示负载越低
func (li *LoadInfo) CalculateLoad() float64 {
	normalizedGameCount := min(float64(li.GameCount)/loadRoomCap, 1.0)
	normalizedPlayerCount := min(float64(li.PlayerCount)/loadPlayerCap, 1.0)

	return li.CPUUsage*0.3 + li.MemUsage*0.2 + normalizedGameCount*100*0.25 + normalizedPlayerCount*100*0.25
}
