package container

import (
	"errors"
	"fmt"

	"shmahjong/common/config"
	"shmahjong/common/database"
	"shmahjong/common/log"
)

// BaseContainer 基础容器，管理共享的数据库连接
// mongo、redis 未配置时为空，对应功能关闭
type BaseContainer struct {
	mongo *database.MongoManager
	redis *database.RedisManager
}

// NewBase 按配置初始化数据库连接，配置了但连不上视为启动失败
func NewBase(conf config.DatabaseConf) (*BaseContainer, error) {
	base := &BaseContainer{}

	if conf.MongoConf.Enabled() {
		mongo, err := database.NewMongo(conf.MongoConf)
		if err != nil {
			return nil, fmt.Errorf("mongodb 初始化失败: %w", err)
		}
		base.mongo = mongo
		log.Info("mongodb 连接成功，对局归档已开启")
	} else {
		log.Info("未配置 mongodb，对局归档关闭")
	}

	if conf.RedisConf.Enabled() {
		redis, err := database.NewRedis(conf.RedisConf)
		if err != nil {
			_ = base.Close()
			return nil, fmt.Errorf("redis 初始化失败: %w", err)
		}
		base.redis = redis
		log.Info("redis 连接成功，房间镜像已开启")
	} else {
		log.Info("未配置 redis，房间镜像关闭")
	}

	return base, nil
}

func (c *BaseContainer) GetMongo() *database.MongoManager {
	return c.mongo
}

func (c *BaseContainer) GetRedis() *database.RedisManager {
	return c.redis
}

// Close 关闭所有资源
func (c *BaseContainer) Close() error {
	var errs []error
	if c.mongo != nil {
		if err := c.mongo.Close(); err != nil {
			log.Error("mongo 关闭失败: %v", err)
			errs = append(errs, err)
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Error("redis 关闭失败: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
