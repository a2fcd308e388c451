package game

import (
	"context"
	"sync"
	"time"

	"shmahjong/common/log"
	"shmahjong/core/domain/entity"
	"shmahjong/core/domain/repository"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Monitor 监控器
// 定时收集负载信息写入 Redis，并刷新房间镜像的 TTL
type Monitor struct {
	roomManager    *RoomManager
	presence       repository.RoomPresenceRepository
	nodeID         string
	updateInterval time.Duration
	stopCh         chan struct{}
	stopOnce       sync.Once
}

// NewMonitor presence 为空时只打印负载
func NewMonitor(roomManager *RoomManager, presence repository.RoomPresenceRepository, nodeID string, updateInterval time.Duration) *Monitor {
	if updateInterval <= 0 {
		updateInterval = 5 * time.Second
	}
	return &Monitor{
		roomManager:    roomManager,
		presence:       presence,
		nodeID:         nodeID,
		updateInterval: updateInterval,
		stopCh:         make(chan struct{}),
	}
}

// Start 阻塞运行，直到 ctx 取消或 Stop
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.updateInterval)
	defer ticker.Stop()

	// 立即执行一次
	m.reportLoad(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("Monitor 收到停止信号，退出监控")
			return
		case <-m.stopCh:
			log.Info("Monitor 收到停止信号，退出监控")
			return
		case <-ticker.C:
			m.reportLoad(ctx)
		}
	}
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

func (m *Monitor) reportLoad(ctx context.Context) {
	loadInfo := m.collectLoadInfo()
	load := loadInfo.CalculateLoad()

	if m.presence == nil {
		log.Debug("Monitor 负载: Load=%.2f, Games=%d, Players=%d, CPU=%.2f%%, Mem=%.2f%%",
			load, loadInfo.GameCount, loadInfo.PlayerCount, loadInfo.CPUUsage, loadInfo.MemUsage)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, m.updateInterval)
	defer cancel()
	err := m.presence.SaveNodeLoad(ctx, &entity.NodeLoad{
		NodeID:   m.nodeID,
		Rooms:    loadInfo.GameCount,
		Players:  loadInfo.PlayerCount,
		CPUUsage: loadInfo.CPUUsage,
		MemUsage: loadInfo.MemUsage,
		Load:     load,
	}, 3*m.updateInterval)
	if err != nil {
		log.Error("Monitor 上报负载信息失败: %v", err)
		return
	}
	m.roomManager.RefreshPresence()
	log.Debug("Monitor 上报负载信息成功: Load=%.2f, Games=%d, Players=%d, CPU=%.2f%%, Mem=%.2f%%",
		load, loadInfo.GameCount, loadInfo.PlayerCount, loadInfo.CPUUsage, loadInfo.MemUsage)
}

func (m *Monitor) collectLoadInfo() *LoadInfo {
	gameCount, playerCount := m.roomManager.GetStats()
	return &LoadInfo{
		GameCount:   gameCount,
		PlayerCount: playerCount,
		CPUUsage:    m.getCPUUsage(),
		MemUsage:    m.getMemoryUsage(),
	}
}

// getCPUUsage 两次采样之间的整机 CPU 使用率
func (m *Monitor) getCPUUsage() float64 {
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return 0.0
	}
	return clampPercent(percents[0])
}

// getMemoryUsage 整机内存使用率
func (m *Monitor) getMemoryUsage() float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0.0
	}
	return clampPercent(vm.UsedPercent)
}

func clampPercent(v float64) float64 {
	if v > 100.0 {
		return 100.0
	}
	if v < 0.0 {
		return 0.0
	}
	return v
}
