package config

import "time"

type LogConf struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

type HttpConf struct {
	Mode         string   `mapstructure:"mode"` // release | debug | test
	AllowOrigins []string `mapstructure:"allowOrigins"`
}

type DatabaseConf struct {
	MongoConf MongoConf `mapstructure:"mongo"`
	RedisConf RedisConf `mapstructure:"redis"`
}

type MongoConf struct {
	Url         string `mapstructure:"url"`
	Db          string `mapstructure:"db"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	MinPoolSize int    `mapstructure:"minPoolSize"`
	MaxPoolSize int    `mapstructure:"maxPoolSize"`
}

// Enabled url 为空时不启用对局归档
func (c MongoConf) Enabled() bool {
	return c.Url != ""
}

type RedisConf struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	PoolSize     int    `mapstructure:"poolSize"`
	MinIdleConns int    `mapstructure:"minIdleConns"`
}

func (c RedisConf) Enabled() bool {
	return c.Addr != ""
}

type NatsConf struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"` // 对局结果主题前缀
}

func (c NatsConf) Enabled() bool {
	return c.URL != ""
}

// MatchConf 对局规则相关的可调参数
type MatchConf struct {
	ReactionWindowSeconds int  `mapstructure:"reactionWindowSeconds"`
	SelfDrawPass          bool `mapstructure:"selfDrawPass"` // 自摸窗口是否提供 pass
	MinPlayers            int  `mapstructure:"minPlayers"`
	EventQueueSize        int  `mapstructure:"eventQueueSize"`
	TenpaiCacheSize       int  `mapstructure:"tenpaiCacheSize"`
}

func (c MatchConf) ReactionWindow() time.Duration {
	return time.Duration(c.ReactionWindowSeconds) * time.Second
}

type ConnConf struct {
	MaxConnections int   `mapstructure:"maxConnections"`
	RateLimit      int   `mapstructure:"rateLimit"` // 每个连接每秒允许的消息数
	WriteWait      int   `mapstructure:"writeWait"` // 秒
	PongWait       int   `mapstructure:"pongWait"`  // 秒
	MaxMessageSize int64 `mapstructure:"maxMessageSize"`
}

type MonitorConf struct {
	Interval int `mapstructure:"interval"` // 秒
}

func (c MonitorConf) Period() time.Duration {
	return time.Duration(c.Interval) * time.Second
}
