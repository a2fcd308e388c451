package container

import (
	"fmt"
	"sync"

	"shmahjong/common/cache"
	"shmahjong/common/config"
	"shmahjong/common/log"
	"shmahjong/core/domain/repository"
	"shmahjong/core/infrastructure/message"
	"shmahjong/core/infrastructure/persistence"
	"shmahjong/core/infrastructure/realtime"
	"shmahjong/runtime/conn"
	"shmahjong/runtime/game"
	"shmahjong/runtime/game/engines"
	"shmahjong/runtime/game/engines/mahjong"
)

// GameContainer game 服务专用容器
// 继承 BaseContainer 的数据库连接，组装房间、引擎原型和长连接网关
type GameContainer struct {
	*BaseContainer
	GameRecordRepository repository.GameRecordRepository // 未配置 mongo 时为空
	RoundPublisher       repository.RoundResultPublisher // 未配置 nats 时为空
	GameWorker           *game.Worker
	ConnWorker           *conn.Worker
	tenpaiCache          *cache.GeneralCache
	closed               bool
	mu                   sync.Mutex
}

// NewGameContainer 创建 game 服务容器
func NewGameContainer(cfg *config.GameConfiguration) (*GameContainer, error) {
	base, err := NewBase(cfg.DatabaseConf)
	if err != nil {
		return nil, err
	}
	c := &GameContainer{BaseContainer: base}

	var presence repository.RoomPresenceRepository
	if base.mongo != nil {
		c.GameRecordRepository = persistence.NewGameRecordRepository(base.mongo)
	}
	if base.redis != nil {
		presence = realtime.NewRedisRoomPresenceRepository(base.redis)
	}
	if cfg.NatsConf.Enabled() {
		publisher, err := message.NewNatsRoundPublisher(cfg.NatsConf, cfg.ID)
		if err != nil {
			_ = base.Close()
			return nil, fmt.Errorf("nats 初始化失败: %w", err)
		}
		c.RoundPublisher = publisher
		log.Info("nats 连接成功，局结果发布到 %s.<roomId>", cfg.NatsConf.Subject)
	}

	// 所有房间共享的听牌缓存
	var searcher *mahjong.TenpaiSearcher
	if cfg.MatchConf.TenpaiCacheSize > 0 {
		tenpaiCache, err := cache.NewGeneralCache(int64(cfg.MatchConf.TenpaiCacheSize), 0)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.tenpaiCache = tenpaiCache
		searcher = mahjong.NewTenpaiSearcher(tenpaiCache)
	} else {
		searcher = mahjong.NewTenpaiSearcher(nil)
	}

	worker := game.NewWorker(cfg.ID, presence, cfg.MonitorConf.Period())
	worker.GameRecordRepository = c.GameRecordRepository
	worker.RoundPublisher = c.RoundPublisher
	c.GameWorker = worker

	// Engine 原型，窗口时长等参数跟随配置
	prototype := mahjong.NewShanghaiMahjong(worker, mahjong.MatchOptions{Searcher: searcher})
	if err := worker.RoomManager.SetEnginePrototype(int32(engines.SHANGHAI_MAHJONG_ENGINE), prototype); err != nil {
		c.Close()
		return nil, err
	}

	c.ConnWorker = conn.NewWorker(worker, cfg.ConnConf)
	worker.SetPusher(c.ConnWorker)

	config.OnChange(func(next *config.GameConfiguration) {
		log.SetLevel(next.LogConf.Level)
		c.ConnWorker.SetRateLimit(next.ConnConf.RateLimit)
		log.Info("配置热更新: log=%s, reactionWindow=%ds, selfDrawPass=%v, rateLimit=%d",
			next.LogConf.Level, next.MatchConf.ReactionWindowSeconds, next.MatchConf.SelfDrawPass, next.ConnConf.RateLimit)
	})

	return c, nil
}

// Close 关闭容器资源（幂等操作，可以安全地多次调用）
// 关闭顺序：1. 连接 2. 房间（写入最终结果）3. 发布者、缓存 4. 数据库连接
func (c *GameContainer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.ConnWorker != nil {
		c.ConnWorker.Close()
	}
	if c.GameWorker != nil {
		c.GameWorker.Close()
	}
	if c.RoundPublisher != nil {
		c.RoundPublisher.Close()
	}
	if c.tenpaiCache != nil {
		c.tenpaiCache.Close()
	}
	if c.BaseContainer != nil {
		if err := c.BaseContainer.Close(); err != nil {
			log.Error("BaseContainer 关闭失败: %v", err)
			return err
		}
	}

	log.Info("GameContainer 已关闭")
	return nil
}
