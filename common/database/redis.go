package database

import (
	"context"
	"fmt"
	"time"

	"shmahjong/common/config"
	"shmahjong/common/log"

	"github.com/redis/go-redis/v9"
)

type RedisManager struct {
	Cli *redis.Client
}

// NewRedis 连接 Redis，单节点模式
func NewRedis(redisConf config.RedisConf) (*RedisManager, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if redisConf.Addr == "" {
		return nil, fmt.Errorf("redis 配置出错: addr 为空")
	}
	cli := redis.NewClient(&redis.Options{
		Addr:         redisConf.Addr,
		Password:     redisConf.Password, // 为空时 Redis 会忽略
		PoolSize:     redisConf.PoolSize,
		MinIdleConns: redisConf.MinIdleConns,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("redis 连接错误: %w", err)
	}
	return &RedisManager{Cli: cli}, nil
}

func (r *RedisManager) GetClient() (redis.Cmdable, error) {
	if r == nil || r.Cli == nil {
		return nil, fmt.Errorf("redis 客户端未初始化")
	}
	return r.Cli, nil
}

func (r *RedisManager) Close() error {
	if r == nil || r.Cli == nil {
		return nil
	}
	if err := r.Cli.Close(); err != nil {
		log.Error("redis 关闭出错: %v", err)
		return err
	}
	return nil
}
