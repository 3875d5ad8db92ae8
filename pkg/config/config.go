package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"RiskPulse/pkg/util"
)

// SymbolConfig is the per-symbol polynomial fit and reference data. This is
// the engine's configuration store: immutable at runtime except by an
// explicit administrative reload.
type SymbolConfig struct {
	Symbol       string     `yaml:"symbol"`
	Coefficients [5]float64 `yaml:"coefficients"` // a0..a4
	LifeAgeDays  int        `yaml:"life_age_days"`
	MinPrice     float64    `yaml:"min_price"`
	MaxPrice     float64    `yaml:"max_price"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Engine struct {
		Symbols             []SymbolConfig `yaml:"symbols"`
		PriceInterval       time.Duration  `yaml:"price_interval"`       // risk recompute cadence
		CoefficientInterval time.Duration  `yaml:"coefficient_interval"` // periodic coefficient refresh
		OccupancyInterval   time.Duration  `yaml:"occupancy_interval"`   // occupancy/life-age refresh
		CallTimeout         time.Duration  `yaml:"call_timeout"`         // bound on each external call
	} `yaml:"engine"`
	PriceFeed struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		QuoteURL       string        `yaml:"quote_url"` // REST fallback when the stream is cold
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxTickAge     time.Duration `yaml:"max_tick_age"` // stream price older than this falls back to REST
	} `yaml:"price_feed"`
	Coefficient struct {
		BaseURL       string        `yaml:"base_url"`
		Timeout       time.Duration `yaml:"timeout"`
		RetryAttempts int           `yaml:"retry_attempts"`
	} `yaml:"coefficient"`
	Stores struct {
		BaseURL string        `yaml:"base_url"` // occupancy + life-age service
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"stores"`
	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		AlertsTopic    string   `yaml:"alerts_topic"`
		SnapshotsTopic string   `yaml:"snapshots_topic"`
		LogsTopic      string   `yaml:"logs_topic"`
		RequiredAcks   int      `yaml:"required_acks"`
		Compression    string   `yaml:"compression"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Audit struct {
			Enabled    bool          `yaml:"enabled"` // snapshot-audit consumer
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"audit"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Cache struct {
		CoefficientTTL time.Duration `yaml:"coefficient_ttl"`
		OccupancyTTL   time.Duration `yaml:"occupancy_ttl"`
	} `yaml:"cache"`
}

// SymbolNames lists the configured symbol identifiers.
func (c *Config) SymbolNames() []string {
	names := make([]string, 0, len(c.Engine.Symbols))
	for _, s := range c.Engine.Symbols {
		names = append(names, s.Symbol)
	}
	return names
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PRICE_FEED_API_KEY"); v != "" {
		c.PriceFeed.APIKey = v
	}
	if v := os.Getenv("COEFFICIENT_URL"); v != "" {
		c.Coefficient.BaseURL = v
	}
	if v := os.Getenv("STORES_URL"); v != "" {
		c.Stores.BaseURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		parts := strings.SplitN(v, ":", 2)
		c.Redis.Host = parts[0]
		if len(parts) == 2 {
			c.Redis.Port = util.ParseIntDefault(parts[1], c.Redis.Port)
		}
	}
	c.Server.Port = util.ParseIntDefault(os.Getenv("HTTP_PORT"), c.Server.Port)

	return c, nil
}

// applyDefaults fills the scheduling cadences the engine contracts require
// when the file leaves them unset.
func (c *Config) applyDefaults() {
	if c.Engine.PriceInterval <= 0 {
		c.Engine.PriceInterval = 5 * time.Minute
	}
	if c.Engine.CoefficientInterval <= 0 {
		c.Engine.CoefficientInterval = 12 * time.Hour
	}
	if c.Engine.OccupancyInterval <= 0 {
		c.Engine.OccupancyInterval = time.Hour
	}
	if c.Engine.CallTimeout <= 0 {
		c.Engine.CallTimeout = 10 * time.Second
	}
	if c.Cache.CoefficientTTL <= 0 {
		c.Cache.CoefficientTTL = c.Engine.CoefficientInterval
	}
	if c.Cache.OccupancyTTL <= 0 {
		c.Cache.OccupancyTTL = c.Engine.OccupancyInterval
	}
	if c.PriceFeed.MaxTickAge <= 0 {
		c.PriceFeed.MaxTickAge = c.Engine.PriceInterval
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Engine.Symbols) == 0 {
		return fmt.Errorf("engine.symbols cannot be empty")
	}
	seen := make(map[string]bool, len(c.Engine.Symbols))
	for i, s := range c.Engine.Symbols {
		if s.Symbol == "" {
			return fmt.Errorf("engine.symbols[%d].symbol is required", i)
		}
		if seen[s.Symbol] {
			return fmt.Errorf("engine.symbols: duplicate symbol %q", s.Symbol)
		}
		seen[s.Symbol] = true
	}
	if c.Coefficient.BaseURL == "" {
		return fmt.Errorf("coefficient.base_url is required")
	}
	if c.Stores.BaseURL == "" {
		return fmt.Errorf("stores.base_url is required")
	}
	if c.PriceFeed.WebSocketURL == "" && c.PriceFeed.QuoteURL == "" {
		return fmt.Errorf("price_feed needs websocket_url or quote_url")
	}
	return nil
}
