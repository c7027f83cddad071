package config

import (
	"fmt"
	"time"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/common"
)

// Config holds all configuration for the RUL pipeline and prediction server
type Config struct {
	Store         StoreConfig         `yaml:"store"`
	Training      TrainingConfig      `yaml:"training"`
	Export        ExportConfig        `yaml:"export"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StoreConfig holds settings for the relational store holding sensor readings
type StoreConfig struct {
	Path       string        `yaml:"path"`       // SQLite database file
	Table      string        `yaml:"table"`      // Table holding raw readings
	MaxRetries int           `yaml:"maxRetries"` // Extra extraction attempts on transient failures
	RetryDelay time.Duration `yaml:"retryDelay"` // Fixed delay between attempts
}

// TrainingConfig holds model fitting and evaluation settings
type TrainingConfig struct {
	ModelPath      string  `yaml:"modelPath"`
	SplitStrategy  string  `yaml:"splitStrategy"` // "unit-holdout" or "row-random"
	TestFraction   float64 `yaml:"testFraction"`
	Seed           uint64  `yaml:"seed"`
	Trees          int     `yaml:"trees"`
	Workers        int     `yaml:"workers"`        // 0 uses every available CPU
	MaxDepth       int     `yaml:"maxDepth"`       // 0 means unlimited
	MinSamplesLeaf int     `yaml:"minSamplesLeaf"`
	MaxFeatures    int     `yaml:"maxFeatures"`    // 0 considers every feature at each split
}

// ExportConfig holds settings for the labeled CSV hand-off
type ExportConfig struct {
	CSVPath string `yaml:"csvPath"`
}

// ServerConfig holds settings for the prediction server
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	PreloadModel    bool          `yaml:"preloadModel"`
}

// ObservabilityConfig holds configuration for monitoring and debugging
type ObservabilityConfig struct {
	MetricsEnabled bool   `yaml:"metricsEnabled"`
	LogLevel       string `yaml:"logLevel"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path:       "turbofan.db",
			Table:      common.TableName,
			MaxRetries: 3,
			RetryDelay: 10 * time.Second,
		},
		Training: TrainingConfig{
			ModelPath:      "rul_model.json.gz",
			SplitStrategy:  common.StrategyUnitHoldout,
			TestFraction:   0.2,
			Seed:           42,
			Trees:          100,
			Workers:        0,
			MaxDepth:       0,
			MinSamplesLeaf: 1,
			MaxFeatures:    0,
		},
		Export: ExportConfig{
			CSVPath: "rul_labeled.csv",
		},
		Server: ServerConfig{
			Port:            8501,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			PreloadModel:    true,
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: true,
			LogLevel:       "info",
		},
	}
}

// Validate performs validation of the configuration
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}
	if c.Store.Table == "" {
		return fmt.Errorf("store table is required")
	}
	if c.Store.MaxRetries < 0 {
		return fmt.Errorf("store max retries must not be negative")
	}
	if c.Store.RetryDelay < 0 {
		return fmt.Errorf("store retry delay must not be negative")
	}

	if err := c.validateTraining(); err != nil {
		return fmt.Errorf("invalid training config: %v", err)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}

	return nil
}

func (c *Config) validateTraining() error {
	t := c.Training
	if t.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}
	switch t.SplitStrategy {
	case common.StrategyUnitHoldout, common.StrategyRowRandom:
	default:
		return fmt.Errorf("unknown split strategy %q", t.SplitStrategy)
	}
	if t.TestFraction <= 0 || t.TestFraction >= 1 {
		return fmt.Errorf("test fraction must be in (0, 1), got %g", t.TestFraction)
	}
	if t.Trees <= 0 {
		return fmt.Errorf("trees must be positive")
	}
	if t.Workers < 0 || t.MaxDepth < 0 || t.MaxFeatures < 0 {
		return fmt.Errorf("workers, maxDepth and maxFeatures must not be negative")
	}
	if t.MaxFeatures > common.FeatureCount {
		return fmt.Errorf("maxFeatures %d exceeds feature count %d", t.MaxFeatures, common.FeatureCount)
	}
	if t.MinSamplesLeaf < 1 {
		return fmt.Errorf("minSamplesLeaf must be at least 1")
	}
	return nil
}
