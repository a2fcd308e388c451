package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const envPrefix = "SHMJ"

// GameConfiguration game 节点配置
type GameConfiguration struct {
	ID           string       `mapstructure:"id"`
	HttpPort     int          `mapstructure:"httpPort"`
	MetricPort   int          `mapstructure:"metricPort"`
	LogConf      LogConf      `mapstructure:"log"`
	HttpConf     HttpConf     `mapstructure:"http"`
	DatabaseConf DatabaseConf `mapstructure:"database"`
	NatsConf     NatsConf     `mapstructure:"nats"`
	MatchConf    MatchConf    `mapstructure:"match"`
	ConnConf     ConnConf     `mapstructure:"conn"`
	MonitorConf  MonitorConf  `mapstructure:"monitor"`
}

var (
	current   atomic.Pointer[GameConfiguration]
	listeners []func(*GameConfiguration)
	listenMu  sync.Mutex
)

func init() {
	cfg := Default()
	current.Store(cfg)
}

// Current 返回当前生效的配置快照，热更新时整体替换
func Current() *GameConfiguration {
	return current.Load()
}

// OnChange 注册配置热更新回调
func OnChange(fn func(*GameConfiguration)) {
	listenMu.Lock()
	defer listenMu.Unlock()
	listeners = append(listeners, fn)
}

// Default 无配置文件时的默认值
func Default() *GameConfiguration {
	v := viper.New()
	setDefaults(v)
	cfg := new(GameConfiguration)
	_ = v.Unmarshal(cfg)
	cfg.normalize()
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("id", "")
	v.SetDefault("httpPort", 8000)
	v.SetDefault("metricPort", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("http.mode", "release")
	v.SetDefault("http.allowOrigins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	v.SetDefault("match.reactionWindowSeconds", 5)
	v.SetDefault("match.selfDrawPass", false)
	v.SetDefault("match.minPlayers", 4)
	v.SetDefault("match.eventQueueSize", 256)
	v.SetDefault("match.tenpaiCacheSize", 100000)
	v.SetDefault("conn.maxConnections", 10000)
	v.SetDefault("conn.rateLimit", 20)
	v.SetDefault("conn.writeWait", 10)
	v.SetDefault("conn.pongWait", 60)
	v.SetDefault("conn.maxMessageSize", 8192)
	v.SetDefault("nats.subject", "shmahjong.round")
	v.SetDefault("monitor.interval", 5)
}

func (c *GameConfiguration) normalize() {
	if c.ID == "" {
		if nodeID := os.Getenv("NODE_ID"); nodeID != "" {
			c.ID = nodeID
		} else if host, err := os.Hostname(); err == nil {
			c.ID = "game-" + host
		} else {
			c.ID = "game-0"
		}
	}
	if c.MatchConf.MinPlayers < 1 {
		c.MatchConf.MinPlayers = 1
	}
	if c.MatchConf.MinPlayers > 4 {
		c.MatchConf.MinPlayers = 4
	}
	if c.MatchConf.ReactionWindowSeconds <= 0 {
		c.MatchConf.ReactionWindowSeconds = 5
	}
	if c.MatchConf.EventQueueSize <= 0 {
		c.MatchConf.EventQueueSize = 256
	}
	if c.MonitorConf.Interval <= 0 {
		c.MonitorConf.Interval = 5
	}
}

// Load 读取配置文件并开启热更新，configFile 为空时只使用默认值和环境变量
func Load(configFile string) (*GameConfiguration, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件出错: %w", err)
		}
	}

	cfg := new(GameConfiguration)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件出错: %w", err)
	}
	cfg.normalize()
	current.Store(cfg)

	if configFile != "" {
		v.OnConfigChange(func(in fsnotify.Event) {
			next := new(GameConfiguration)
			if err := v.Unmarshal(next); err != nil {
				fmt.Fprintf(os.Stderr, "热更新配置解析失败 %s: %v\n", in.Name, err)
				return
			}
			// 节点标识和端口不允许热更新
			prev := current.Load()
			next.ID = prev.ID
			next.HttpPort = prev.HttpPort
			next.MetricPort = prev.MetricPort
			next.normalize()
			current.Store(next)

			listenMu.Lock()
			fns := append([]func(*GameConfiguration){}, listeners...)
			listenMu.Unlock()
			for _, fn := range fns {
				fn(next)
			}
		})
		v.WatchConfig()
	}
	return cfg, nil
}
