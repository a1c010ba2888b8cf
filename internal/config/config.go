package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"goldwatcher/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Store     StoreConfig     `mapstructure:"store"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Source    SourceConfig    `mapstructure:"source"`
	Rates     RatesConfig     `mapstructure:"rates"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// StoreConfig locates the append-only price record file.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// DatabaseConfig encapsulates the optional PostgreSQL archive.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs the recurring trigger and its daily window.
type SchedulerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Interval     time.Duration `mapstructure:"interval"`
	StartTime    ClockTime     `mapstructure:"start_time"`
	EndTime      ClockTime     `mapstructure:"end_time"`
	Timezone     string        `mapstructure:"timezone"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// SourceConfig identifies the scrape target and extraction selectors.
type SourceConfig struct {
	ID               string        `mapstructure:"id"`
	URL              string        `mapstructure:"url"`
	BuySelector      string        `mapstructure:"buy_selector"`
	SellSelector     string        `mapstructure:"sell_selector"`
	EstimateSelector string        `mapstructure:"estimate_selector"`
	UserAgent        string        `mapstructure:"user_agent"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

// RatesConfig holds the markup offsets applied to scraped prices.
type RatesConfig struct {
	BuyAdjustment  float64 `mapstructure:"buy_adjustment"`
	SellAdjustment float64 `mapstructure:"sell_adjustment"`
}

// TelegramConfig 描述 Telegram 推送参数。
type TelegramConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	BotToken     string   `mapstructure:"bot_token"`
	ChannelID    string   `mapstructure:"channel_id"`
	AdminChatIDs []string `mapstructure:"admin_chat_ids"`
	ProxyURL     string   `mapstructure:"proxy_url"`
	APIBase      string   `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GOLDWATCHER")
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
	v.SetDefault("app.name", "goldwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("store.path", "db/gold_prices.jsonl")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", "5m")
	v.SetDefault("scheduler.start_time", "11:00")
	v.SetDefault("scheduler.end_time", "20:30")
	v.SetDefault("scheduler.timezone", "Asia/Tehran")
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("source.id", "zarbaha")
	v.SetDefault("source.url", "https://zarbaha-co.ir/")
	v.SetDefault("source.buy_selector", "._g_k")
	v.SetDefault("source.sell_selector", "._g_g")
	v.SetDefault("source.estimate_selector", "._g_m")
	v.SetDefault("source.user_agent", "goldwatcher/1.0")
	v.SetDefault("source.request_timeout", "20s")

	v.SetDefault("rates.buy_adjustment", 50000.0)
	v.SetDefault("rates.sell_adjustment", 130000.0)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			StringToClockTimeHookFunc(),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if !c.Scheduler.StartTime.Before(c.Scheduler.EndTime) {
		return fmt.Errorf("scheduler.start_time must be earlier than scheduler.end_time")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone %q is not a valid IANA zone: %w", c.Scheduler.Timezone, err)
	}
	if c.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if c.Source.BuySelector == "" || c.Source.SellSelector == "" {
		return fmt.Errorf("source.buy_selector and source.sell_selector are required")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Rates.BuyAdjustment < 0 || c.Rates.SellAdjustment < 0 {
		return fmt.Errorf("rates adjustments cannot be negative")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token 必须配置")
		}
		if c.Telegram.ChannelID == "" {
			return fmt.Errorf("telegram.channel_id 必须配置")
		}
	}
	return nil
}

// Location resolves the configured scheduler timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Scheduler.Timezone)
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
