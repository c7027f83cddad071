package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
	"k8s.io/klog/v2"
)

// Load builds the configuration from defaults, an optional YAML file and environment overrides,
// in that order of precedence (later wins).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	klog.V(2).InfoS("Loaded configuration",
		"configFile", path,
		"dbPath", cfg.Store.Path,
		"table", cfg.Store.Table,
		"modelPath", cfg.Training.ModelPath,
		"splitStrategy", cfg.Training.SplitStrategy,
		"testFraction", cfg.Training.TestFraction,
		"trees", cfg.Training.Trees)

	return cfg, nil
}

// LoadFromEnv loads configuration from defaults and environment variables only
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %v", err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %v", path, err)
	}
	return nil
}

// ApplyEnv overrides fields of cfg with any RUL_* environment variables that are set
func ApplyEnv(cfg *Config) {
	cfg.Store.Path = getEnvOrDefault("RUL_DB_PATH", cfg.Store.Path)
	cfg.Store.Table = getEnvOrDefault("RUL_TABLE", cfg.Store.Table)
	cfg.Store.MaxRetries = getIntOrDefault("RUL_STORE_MAX_RETRIES", cfg.Store.MaxRetries)
	cfg.Store.RetryDelay = getDurationOrDefault("RUL_STORE_RETRY_DELAY", cfg.Store.RetryDelay)

	cfg.Training.ModelPath = getEnvOrDefault("RUL_MODEL_PATH", cfg.Training.ModelPath)
	cfg.Training.SplitStrategy = getEnvOrDefault("RUL_SPLIT_STRATEGY", cfg.Training.SplitStrategy)
	cfg.Training.TestFraction = getFloatOrDefault("RUL_TEST_FRACTION", cfg.Training.TestFraction)
	cfg.Training.Seed = uint64(getIntOrDefault("RUL_SEED", int(cfg.Training.Seed)))
	cfg.Training.Trees = getIntOrDefault("RUL_TREES", cfg.Training.Trees)
	cfg.Training.Workers = getIntOrDefault("RUL_WORKERS", cfg.Training.Workers)
	cfg.Training.MaxDepth = getIntOrDefault("RUL_MAX_DEPTH", cfg.Training.MaxDepth)
	cfg.Training.MinSamplesLeaf = getIntOrDefault("RUL_MIN_SAMPLES_LEAF", cfg.Training.MinSamplesLeaf)

	cfg.Export.CSVPath = getEnvOrDefault("RUL_EXPORT_PATH", cfg.Export.CSVPath)

	cfg.Server.Port = getIntOrDefault("RUL_SERVER_PORT", cfg.Server.Port)
	cfg.Server.PreloadModel = getBoolOrDefault("RUL_PRELOAD_MODEL", cfg.Server.PreloadModel)

	cfg.Observability.MetricsEnabled = getBoolOrDefault("RUL_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
	cfg.Observability.LogLevel = getEnvOrDefault("RUL_LOG_LEVEL", cfg.Observability.LogLevel)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if strValue := os.Getenv(key); strValue != "" {
		if value, err := strconv.Atoi(strValue); err == nil {
			return value
		}
		klog.V(2).InfoS("Invalid integer value, using default",
			"key", key,
			"value", strValue,
			"default", defaultValue)
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if strValue := os.Getenv(key); strValue != "" {
		if value, err := strconv.ParseFloat(strValue, 64); err == nil {
			return value
		}
		klog.V(2).InfoS("Invalid float value, using default",
			"key", key,
			"value", strValue,
			"default", defaultValue)
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if strValue := os.Getenv(key); strValue != "" {
		value, err := strconv.ParseBool(strValue)
		if err == nil {
			return value
		}
		klog.V(2).InfoS("Invalid boolean value, using default",
			"key", key,
			"value", strValue,
			"default", defaultValue)
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if strValue := os.Getenv(key); strValue != "" {
		if value, err := time.ParseDuration(strValue); err == nil {
			return value
		}
		klog.V(2).InfoS("Invalid duration value, using default",
			"key", key,
			"value", strValue,
			"default", defaultValue)
	}
	return defaultValue
}
