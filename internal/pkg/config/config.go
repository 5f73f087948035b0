package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=20m"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	Mongo MongoConfig
	Redis RedisConfig
	Hub   HubConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=contract_hub"`
}

type RedisConfig struct {
	Addr      string        `env:"REDIS_ADDR,       default=localhost:6379"`
	Password  string        `env:"REDIS_PASSWORD"`
	DB        int           `env:"REDIS_DB,         default=0"`
	PoolSize  int           `env:"REDIS_POOL_SIZE,  default=20"`
	OpTimeout time.Duration `env:"REDIS_OP_TIMEOUT, default=3s"`
}

// HubConfig tunes the real-time contract rooms.
type HubConfig struct {
	SendBuffer      int           `env:"HUB_SEND_BUFFER,       default=64"`
	MaxFrameBytes   int64         `env:"HUB_MAX_FRAME_BYTES,   default=65536"`
	WriteWait       time.Duration `env:"HUB_WRITE_WAIT,        default=10s"`
	PongWait        time.Duration `env:"HUB_PONG_WAIT,         default=60s"`
	RoomShards      int           `env:"HUB_ROOM_SHARDS,       default=32"`
	RegistryShards  int           `env:"HUB_REGISTRY_SHARDS,   default=32"`
	MessagesPerSec  float64       `env:"HUB_MESSAGES_PER_SEC,  default=20"`
	MessageBurst    int           `env:"HUB_MESSAGE_BURST,     default=40"`
	PendingEventTTL time.Duration `env:"HUB_PENDING_EVENT_TTL, default=168h"`
}

// PingPeriod is how often the writer pings the peer; it must stay below
// PongWait so a healthy peer never hits its read deadline.
func (h HubConfig) PingPeriod() time.Duration {
	return (h.PongWait * 9) / 10
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.Hub.SendBuffer <= 0 {
		return fmt.Errorf("config: HUB_SEND_BUFFER must be positive, got %d", c.Hub.SendBuffer)
	}
	if c.Hub.PongWait <= 0 {
		return fmt.Errorf("config: HUB_PONG_WAIT must be positive")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith resolves the configuration from an arbitrary lookuper and validates it.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
