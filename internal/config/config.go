package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Edge     EdgeConfig     `mapstructure:"edge"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Platform PlatformConfig `mapstructure:"platform"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Leader   LeaderConfig   `mapstructure:"leader"`
	Instance InstanceConfig `mapstructure:"instance"`
}

type EdgeConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type RealtimeConfig struct {
	Port        int           `mapstructure:"port"`
	BaseURL     string        `mapstructure:"base_url"`
	BidTimeout  time.Duration `mapstructure:"bid_timeout"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
}

type PlatformConfig struct {
	Host            string        `mapstructure:"host"`
	DevHostPrefix   string        `mapstructure:"dev_host_prefix"`
	ResolverBaseURL string        `mapstructure:"resolver_base_url"`
	TenantPrefix    string        `mapstructure:"tenant_prefix"`
	PassThrough     []string      `mapstructure:"pass_through"`
	TenantCacheTTL  time.Duration `mapstructure:"tenant_cache_ttl"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LeaderConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type InstanceConfig struct {
	ID string `mapstructure:"id"`
}

func Load() (*Config, error) {
	// Set default values
	viper.SetDefault("edge.port", 8080)
	viper.SetDefault("edge.host", "0.0.0.0")
	viper.SetDefault("realtime.port", 8081)
	viper.SetDefault("realtime.base_url", "ws://localhost:8081")
	viper.SetDefault("realtime.bid_timeout", 10*time.Second)
	viper.SetDefault("realtime.base_backoff", 500*time.Millisecond)
	viper.SetDefault("realtime.max_backoff", 30*time.Second)
	viper.SetDefault("platform.host", "crownbidder.com")
	viper.SetDefault("platform.dev_host_prefix", "localhost")
	viper.SetDefault("platform.resolver_base_url", "http://localhost:9000")
	viper.SetDefault("platform.tenant_prefix", "/tenant")
	viper.SetDefault("platform.pass_through", []string{"/login", "/register", "/auth"})
	viper.SetDefault("platform.tenant_cache_ttl", 5*time.Minute)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("auth.jwt_secret", "dev-secret")
	viper.SetDefault("leader.ttl", 30*time.Second)
	viper.SetDefault("instance.id", "gateway-1")

	// Configuration file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/crownbidder/")

	// Environment variable support
	viper.AutomaticEnv()

	// Environment variable mappings
	viper.BindEnv("edge.port", "EDGE_PORT")
	viper.BindEnv("edge.host", "EDGE_HOST")
	viper.BindEnv("realtime.port", "REALTIME_PORT")
	viper.BindEnv("realtime.base_url", "REALTIME_BASE_URL")
	viper.BindEnv("realtime.bid_timeout", "REALTIME_BID_TIMEOUT")
	viper.BindEnv("platform.host", "PLATFORM_HOST")
	viper.BindEnv("platform.resolver_base_url", "RESOLVER_BASE_URL")
	viper.BindEnv("platform.tenant_cache_ttl", "TENANT_CACHE_TTL")
	viper.BindEnv("redis.address", "REDIS_ADDRESS")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("auth.jwt_secret", "JWT_SECRET")
	viper.BindEnv("leader.ttl", "LEADER_TTL")
	viper.BindEnv("instance.id", "INSTANCE_ID")

	// Read configuration file (optional - will use defaults/env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetConfigString returns a formatted string representation of the config
func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"Edge: %s:%d, Realtime: :%d, Platform: %s, Redis: %s, Instance: %s",
		c.Edge.Host,
		c.Edge.Port,
		c.Realtime.Port,
		c.Platform.Host,
		c.Redis.Address,
		c.Instance.ID,
	)
}
