package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Store    StoreConfig    `mapstructure:"store"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// StoreConfig 持久化后端选择: redis | postgres | memory
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// EngineConfig 引擎运行参数
type EngineConfig struct {
	SimulateInterval  time.Duration `mapstructure:"simulate_interval"`   // 后台活动注入周期
	PendingRequestCap int           `mapstructure:"pending_request_cap"` // 待处理请求上限
	RemoteAckLatency  time.Duration `mapstructure:"remote_ack_latency"`  // 模拟的远端确认延迟
	SearchLatency     time.Duration `mapstructure:"search_latency"`      // 模拟的搜索延迟
}

// Load 从指定路径加载配置
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults 填充引擎参数默认值
func applyDefaults(cfg *Config) {
	if cfg.Engine.SimulateInterval <= 0 {
		cfg.Engine.SimulateInterval = time.Minute
	}
	if cfg.Engine.PendingRequestCap <= 0 {
		cfg.Engine.PendingRequestCap = 5
	}
	if cfg.Engine.RemoteAckLatency <= 0 {
		cfg.Engine.RemoteAckLatency = time.Second
	}
	if cfg.Engine.SearchLatency <= 0 {
		cfg.Engine.SearchLatency = 500 * time.Millisecond
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "redis"
	}
}
