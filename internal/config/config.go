package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"platform-pulse/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	RPC      RPCConfig      `mapstructure:"rpc"`
	Helius   HeliusConfig   `mapstructure:"helius"`
	Status   StatusConfig   `mapstructure:"status"`
	Ticker   TickerConfig   `mapstructure:"ticker"`
	Plays    PlaysConfig    `mapstructure:"plays"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig governs the status HTTP API.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// RedisConfig covers the optional snapshot cache.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RPCConfig points at the Solana RPC used for health probing.
type RPCConfig struct {
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// HeliusConfig covers the transaction-history API.
type HeliusConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	CreatorAddress string        `mapstructure:"creator_address"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// StatusConfig tunes the connection-status monitor.
type StatusConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Throttle     time.Duration `mapstructure:"throttle"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	PoolAddress  string        `mapstructure:"pool_address"`
	TokenName    string        `mapstructure:"token_name"`
}

// TickerConfig tunes the token price ticker.
type TickerConfig struct {
	FeedURL         string        `mapstructure:"feed_url"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	RecentWindow    time.Duration `mapstructure:"recent_window"`
	SignificantPct  float64       `mapstructure:"significant_pct"`
	EvictAfterPolls int           `mapstructure:"evict_after_polls"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// PlaysConfig tunes the settlement feed and toast queue.
type PlaysConfig struct {
	StreamURL       string        `mapstructure:"stream_url"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	DisplayDuration time.Duration `mapstructure:"display_duration"`
	MaxEntries      int           `mapstructure:"max_entries"`
	TokenDecimals   int32         `mapstructure:"token_decimals"`
	TokenSymbol     string        `mapstructure:"token_symbol"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// RelayConfig defines big-win push routing.
type RelayConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	MinProfit float64        `mapstructure:"min_profit"`
	Channels  []string       `mapstructure:"channels"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 推送参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PULSEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pulsewatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.addr", ":8089")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
	v.SetDefault("database.advisory_lock_key", int64(0x70756C73))

	v.SetDefault("redis.ttl", "30s")

	v.SetDefault("rpc.url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rpc.request_timeout", "10s")

	v.SetDefault("helius.base_url", "https://api.helius.xyz")
	v.SetDefault("helius.request_timeout", "10s")
	v.SetDefault("helius.user_agent", "pulsewatch/1.0")

	v.SetDefault("status.poll_interval", "10s")
	v.SetDefault("status.throttle", "10s")
	v.SetDefault("status.idle_timeout", "60s")

	v.SetDefault("ticker.poll_interval", "30s")
	v.SetDefault("ticker.recent_window", "5m")
	v.SetDefault("ticker.significant_pct", 2.0)
	v.SetDefault("ticker.evict_after_polls", 30)
	v.SetDefault("ticker.request_timeout", "10s")

	v.SetDefault("plays.poll_interval", "5s")
	v.SetDefault("plays.display_duration", "4s")
	v.SetDefault("plays.max_entries", 64)
	v.SetDefault("plays.token_decimals", int32(9))
	v.SetDefault("plays.token_symbol", "SOL")
	v.SetDefault("plays.request_timeout", "10s")

	v.SetDefault("relay.enabled", false)
	v.SetDefault("relay.min_profit", 1.0)
	v.SetDefault("relay.channels", []string{"telegram"})
	v.SetDefault("relay.telegram.enabled", false)
	v.SetDefault("relay.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Status.PollInterval <= 0 {
		return fmt.Errorf("status.poll_interval must be greater than zero")
	}
	if c.Status.Throttle <= 0 {
		return fmt.Errorf("status.throttle must be greater than zero")
	}
	if c.Ticker.PollInterval <= 0 {
		return fmt.Errorf("ticker.poll_interval must be greater than zero")
	}
	if c.Ticker.EvictAfterPolls <= 0 {
		return fmt.Errorf("ticker.evict_after_polls must be greater than zero")
	}
	if c.Plays.DisplayDuration <= 0 {
		return fmt.Errorf("plays.display_duration must be greater than zero")
	}
	if c.Plays.MaxEntries <= 0 {
		return fmt.Errorf("plays.max_entries must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Relay.MinProfit < 0 {
		return fmt.Errorf("relay.min_profit cannot be negative")
	}
	if c.Relay.Telegram.Enabled {
		if c.Relay.Telegram.BotToken == "" {
			return fmt.Errorf("relay.telegram.bot_token 必须配置")
		}
		if c.Relay.Telegram.ChatID == "" {
			return fmt.Errorf("relay.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
