// Package config loads process configuration via godotenv (teacher's
// own .env-loading idiom) layered with spf13/viper (env + defaults +
// optional YAML file), grounded on the pack's viper-based config
// loaders.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the quanttrader process's runtime configuration.
type Config struct {
	DataDir       string // root for dump/ persistence when Backend=="file"
	Backend       string // "file" | "sqlite" | "mongo"
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
	MongoColl     string

	PersistRisk bool // whether ClientRisk durably saves its map

	LogLevel  string
	LogPretty bool

	HTTPPort int

	S3Bucket string // optional; reliability archiver disabled when empty
	S3Region string

	LiveInterval time.Duration
}

// Load reads .env (if present), then env vars (QT_ prefix) via viper,
// applying defaults, and resolves DataDir to an absolute, existing path.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("QT")
	v.AutomaticEnv()

	v.SetDefault("data_dir", "./dump")
	v.SetDefault("backend", "file")
	v.SetDefault("sqlite_path", "./dump/quanttrader.db")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "quanttrader")
	v.SetDefault("mongo_collection", "kv_store")
	v.SetDefault("persist_risk", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("http_port", 8080)
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("live_interval_seconds", 60)

	if cfgFile := os.Getenv("QT_CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}
	}

	dataDir, err := filepath.Abs(v.GetString("data_dir"))
	if err != nil {
		return nil, fmt.Errorf("resolve data_dir: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	cfg := &Config{
		DataDir:       dataDir,
		Backend:       v.GetString("backend"),
		SQLitePath:    v.GetString("sqlite_path"),
		MongoURI:      v.GetString("mongo_uri"),
		MongoDatabase: v.GetString("mongo_database"),
		MongoColl:     v.GetString("mongo_collection"),
		PersistRisk:   v.GetBool("persist_risk"),
		LogLevel:      v.GetString("log_level"),
		LogPretty:     v.GetBool("log_pretty"),
		HTTPPort:      v.GetInt("http_port"),
		S3Bucket:      v.GetString("s3_bucket"),
		S3Region:      v.GetString("s3_region"),
		LiveInterval:  time.Duration(v.GetInt("live_interval_seconds")) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has everything it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case "file", "sqlite", "mongo":
	default:
		return fmt.Errorf("config: unknown backend %q (want file, sqlite, or mongo)", c.Backend)
	}
	if c.Backend == "sqlite" && c.SQLitePath == "" {
		return fmt.Errorf("config: sqlite_path is required when backend=sqlite")
	}
	if c.Backend == "mongo" && (c.MongoURI == "" || c.MongoDatabase == "") {
		return fmt.Errorf("config: mongo_uri and mongo_database are required when backend=mongo")
	}
	return nil
}

// ArchivalEnabled reports whether the optional S3 closed-signal
// archiver should start.
func (c *Config) ArchivalEnabled() bool {
	return c.S3Bucket != ""
}
