package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration tree. Every scoring threshold
// lives here so heuristics can be tuned without code changes.
type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	// Universe is the static ordered list of symbols scanned each cycle.
	Universe []string `yaml:"universe" validate:"min=1,unique"`

	Detector struct {
		PatternThreshold     float64 `yaml:"pattern_threshold" default:"70"`
		HistorySize          int     `yaml:"history_size" default:"10"`
		MinPriceChangePct    float64 `yaml:"min_price_change_pct" default:"0.1"`
		MinVolumeChangePct   float64 `yaml:"min_volume_change_pct" default:"20"`
		MinVelocityPctPerSec float64 `yaml:"min_velocity_pct_per_sec" default:"0.3"`

		StrongPriceChangePct    float64 `yaml:"strong_price_change_pct" default:"0.2"`
		StrongVolumeChangePct   float64 `yaml:"strong_volume_change_pct" default:"50"`
		StrongVelocityPctPerSec float64 `yaml:"strong_velocity_pct_per_sec" default:"0.5"`
		ImbalanceAgreement      float64 `yaml:"imbalance_agreement" default:"0.2"`
		ImbalanceExtreme        float64 `yaml:"imbalance_extreme" default:"0.4"`

		AccumulationVolumePct  float64 `yaml:"accumulation_volume_pct" default:"30"`
		DistributionPricePct   float64 `yaml:"distribution_price_pct" default:"0.15"`
		DistributionVolumePct  float64 `yaml:"distribution_volume_pct" default:"-10"`
		FundingDivergencePct   float64 `yaml:"funding_divergence_pct" default:"0.2"`
		InstitutionalHighRatio float64 `yaml:"institutional_high_ratio" default:"1.3"`
		InstitutionalLowRatio  float64 `yaml:"institutional_low_ratio" default:"0.7"`
		InstitutionalDeltaPct  float64 `yaml:"institutional_delta_pct" default:"20"`
		MomentumMinHistory     int     `yaml:"momentum_min_history" default:"3"`
		BullishDominanceFactor float64 `yaml:"bullish_dominance_factor" default:"1.5"`
	} `yaml:"detector"`

	Flow struct {
		// Significance thresholds in USD.
		CriticalUSD float64 `yaml:"critical_usd" default:"50000000"`
		HighUSD     float64 `yaml:"high_usd" default:"10000000"`
		MediumUSD   float64 `yaml:"medium_usd" default:"5000000"`

		// Interpretation and sentiment ratio thresholds.
		StrongRatio    float64 `yaml:"strong_ratio" default:"0.3"`
		LeanRatio      float64 `yaml:"lean_ratio" default:"0.1"`
		VeryRatio      float64 `yaml:"very_ratio" default:"0.4"`
		SentimentRatio float64 `yaml:"sentiment_ratio" default:"0.15"`

		CacheTTL      time.Duration `yaml:"cache_ttl" default:"60s"`
		ScanTimeframe string        `yaml:"scan_timeframe" default:"24h"`
		AddressFile   string        `yaml:"address_file"`
		EnrichedTopic string        `yaml:"enriched_topic"`
	} `yaml:"flow"`

	Scorer struct {
		FlowAlignmentBonus float64 `yaml:"flow_alignment_bonus" default:"15"`
	} `yaml:"scorer"`

	Scanner struct {
		Interval      time.Duration `yaml:"interval" default:"15m"`
		BatchSize     int           `yaml:"batch_size" default:"5" validate:"gt=0"`
		BatchDelay    time.Duration `yaml:"batch_delay" default:"3s"`
		AssetTimeout  time.Duration `yaml:"asset_timeout" default:"10s"`
		MinConfidence float64       `yaml:"min_confidence" default:"65"`
		EntryBandPct  float64       `yaml:"entry_band_pct" default:"2"`
		TargetsPct    []float64     `yaml:"targets_pct" default:"[5,10,15]"`
		StopPct       float64       `yaml:"stop_pct" default:"5"`
		SignalTTL     time.Duration `yaml:"signal_ttl" default:"4h"`
		LowRiskMin    float64       `yaml:"low_risk_min" default:"80"`
		ModRiskMin    float64       `yaml:"moderate_risk_min" default:"70"`
		RateCapacity  float64       `yaml:"rate_capacity" default:"10"`
		RateRefill    float64       `yaml:"rate_refill_per_sec" default:"2"`
		// LockTTL guards against overlapping cycles across instances when a
		// redis locker is configured.
		LockTTL time.Duration `yaml:"lock_ttl" default:"10m"`
	} `yaml:"scanner"`

	Lifecycle struct {
		SweepInterval time.Duration `yaml:"sweep_interval" default:"1m"`
		StatsWindow   time.Duration `yaml:"stats_window" default:"720h"`
	} `yaml:"lifecycle"`

	Postgres struct {
		Host     string        `yaml:"host" default:"localhost"`
		Port     int           `yaml:"port" default:"5432"`
		Database string        `yaml:"database" default:"chainpulse"`
		User     string        `yaml:"user" default:"chainpulse"`
		Password string        `yaml:"password"`
		SSLMode  string        `yaml:"ssl_mode" default:"disable"`
		MaxConns int32         `yaml:"max_conns" default:"10"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"postgres"`

	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"chainpulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`

	Kafka struct {
		Brokers     []string `yaml:"brokers"`
		WhaleTopic  string   `yaml:"whale_topic" default:"whale_transactions"`
		Compression string   `yaml:"compression" default:"snappy"`
		Consumer    struct {
			GroupID    string        `yaml:"group_id" default:"chainpulse"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"1024"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	MarketData struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		RestURL        string        `yaml:"rest_url"`
		APIKey         string        `yaml:"api_key"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		MaxPerSymbolHz int           `yaml:"max_per_symbol_hz" default:"2"`
		Timeout        time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"marketdata"`

	// SignalBackend selects the signal persistence boundary: "postgres" or
	// "memory" (single-process deployments and tests).
	SignalBackend string `yaml:"signal_backend" default:"postgres" validate:"oneof=postgres memory"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
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

	if v := os.Getenv("UNIVERSE"); v != "" {
		c.Universe = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("MARKETDATA_API_KEY"); v != "" {
		c.MarketData.APIKey = v
	}
	if v := os.Getenv("SIGNAL_BACKEND"); v != "" {
		c.SignalBackend = v
	}

	return c, nil
}

// Validate checks structural validity plus the cross-field rules the
// validator tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config fields: %w", err)
	}
	if len(c.Scanner.TargetsPct) == 0 || len(c.Scanner.TargetsPct) > 3 {
		return fmt.Errorf("scanner.targets_pct must hold 1..3 entries")
	}
	prev := 0.0
	for _, t := range c.Scanner.TargetsPct {
		if t <= prev {
			return fmt.Errorf("scanner.targets_pct must be ascending and positive")
		}
		prev = t
	}
	if c.Scanner.MinConfidence < 0 || c.Scanner.MinConfidence > 100 {
		return fmt.Errorf("scanner.min_confidence must be within [0,100]")
	}
	if c.Detector.PatternThreshold < 0 || c.Detector.PatternThreshold > 100 {
		return fmt.Errorf("detector.pattern_threshold must be within [0,100]")
	}
	return nil
}
