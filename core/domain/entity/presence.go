package entity

// RoomPresence 房间成员镜像，写入 Redis 供外部查看
type RoomPresence struct {
	RoomID    string
	NodeID    string
	Occupants map[string]string // userID -> name
	Started   bool
	GameCount int
}

// NodeLoad game 节点负载
type NodeLoad struct {
	NodeID   string
	Rooms    int
	Players  int
	CPUUsage float64
	MemUsage float64
	Load     float64
}
