package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config carries runtime settings plus the tunable constants of the pipeline.
// Every tunable has a working default; a YAML file and TRIAGE_* environment
// variables may override them.
type Config struct {
	ListenAddr string `yaml:"listenAddr"`
	DataDir    string `yaml:"dataDir"`
	DBPath     string `yaml:"dbPath"` // empty means in-memory store only
	LogLevel   string `yaml:"logLevel"`

	// VibrationForceScale approximates a force-equivalent from a vibration
	// reading (g). A stated approximation carried from the source data
	// conventions, not a physical constant.
	VibrationForceScale float64 `yaml:"vibrationForceScale"`

	SimilarityThreshold float64 `yaml:"similarityThreshold"`
	SimilarityLimit     int     `yaml:"similarityLimit"`

	OracleCacheSize int     `yaml:"oracleCacheSize"`
	OracleModel     string  `yaml:"oracleModel"`
	QualityTarget   float64 `yaml:"qualityTarget"`
}

func Default() Config {
	return Config{
		ListenAddr:          ":8080",
		DataDir:             "./data",
		LogLevel:            "info",
		VibrationForceScale: 100,
		SimilarityThreshold: 0.3,
		SimilarityLimit:     10,
		OracleCacheSize:     1000,
		QualityTarget:       75.0,
	}
}

// Load reads configuration from an optional YAML file, then applies
// environment overrides. A missing path loads defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("TRIAGE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("TRIAGE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TRIAGE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TRIAGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TRIAGE_ORACLE_MODEL"); v != "" {
		cfg.OracleModel = v
	}
	if v := os.Getenv("TRIAGE_ORACLE_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("TRIAGE_ORACLE_CACHE_SIZE: %w", err)
		}
		cfg.OracleCacheSize = n
	}

	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		return cfg, fmt.Errorf("similarityThreshold out of range: %v", cfg.SimilarityThreshold)
	}
	if cfg.SimilarityLimit <= 0 {
		cfg.SimilarityLimit = 10
	}
	if cfg.OracleCacheSize <= 0 {
		cfg.OracleCacheSize = 1000
	}
	return cfg, nil
}
