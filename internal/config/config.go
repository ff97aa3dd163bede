// Package config provides configuration management for vigil.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the supervision loop and economy.
const (
	DefaultOracleURL        = "http://127.0.0.1:11434/v1/chat/completions"
	DefaultOracleModel      = "llama3.1"
	DefaultCheckInterval    = 30 * time.Second
	StrictCheckInterval     = 10 * time.Second
	DefaultSnoozeMinutes    = 10
	DefaultWhitelistMinutes = 30
	DefaultStrictMinutes    = 60
	DefaultMaxConns         = 4
)

// DefaultWorkKeywords seed the recovery detector's work-title matching.
var DefaultWorkKeywords = []string{
	"code", "github", "stack overflow", "documentation", "docs",
	"jira", "confluence", "terminal", "ide", "editor",
}

// DefaultDistractionKeywords seed the recovery detector's distraction matching.
var DefaultDistractionKeywords = []string{
	"youtube", "netflix", "twitter", "reddit", "instagram",
	"tiktok", "facebook", "twitch", "9gag",
}

// Config holds runtime configuration loaded from settings.yaml with
// environment overrides.
type Config struct {
	OracleURL              string   `yaml:"VIGIL_ORACLE_URL"`
	OracleModel            string   `yaml:"VIGIL_ORACLE_MODEL"`
	CheckIntervalSeconds   int      `yaml:"VIGIL_CHECK_INTERVAL_SECONDS"`
	SnoozeMinutes          int      `yaml:"VIGIL_SNOOZE_MINUTES"`
	WhitelistMinutes       int      `yaml:"VIGIL_WHITELIST_MINUTES"`
	StrictMinutes          int      `yaml:"VIGIL_STRICT_MINUTES"`
	MiningRatePerMinute    float64  `yaml:"VIGIL_MINING_RATE"`
	BankruptcyThreshold    float64  `yaml:"VIGIL_BANKRUPTCY_THRESHOLD"`
	ConfidenceThreshold    int      `yaml:"VIGIL_CONFIDENCE_THRESHOLD"`
	MaxConns               int      `yaml:"VIGIL_DB_MAX_CONNS"`
	WorkKeywords           []string `yaml:"-"`
	DistractionKeywords    []string `yaml:"-"`
	WorkKeywordsCSV        string   `yaml:"VIGIL_WORK_KEYWORDS"`
	DistractionKeywordsCSV string   `yaml:"VIGIL_DISTRACTION_KEYWORDS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OracleURL:            DefaultOracleURL,
		OracleModel:          DefaultOracleModel,
		CheckIntervalSeconds: int(DefaultCheckInterval / time.Second),
		SnoozeMinutes:        DefaultSnoozeMinutes,
		WhitelistMinutes:     DefaultWhitelistMinutes,
		StrictMinutes:        DefaultStrictMinutes,
		MiningRatePerMinute:  1.0,
		BankruptcyThreshold:  -50,
		ConfidenceThreshold:  60,
		MaxConns:             DefaultMaxConns,
		WorkKeywords:         DefaultWorkKeywords,
		DistractionKeywords:  DefaultDistractionKeywords,
	}
}

// DataDir returns ~/.vigil.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".vigil")
}

// DBPath returns the SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), "vigil.db")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.yaml")
}

// EnsureDataDir creates the data directory if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureAll initializes the data directory and settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// Load reads settings.yaml and applies environment overrides. A
// missing or malformed settings file falls back to defaults.
func Load() (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(SettingsPath()); err == nil {
		var fileCfg Config
		if yamlErr := yaml.Unmarshal(data, &fileCfg); yamlErr == nil {
			mergeConfig(cfg, &fileCfg)
		}
	}

	applyEnv(cfg)

	if cfg.WorkKeywordsCSV != "" {
		cfg.WorkKeywords = splitTrim(cfg.WorkKeywordsCSV)
	}
	if cfg.DistractionKeywordsCSV != "" {
		cfg.DistractionKeywords = splitTrim(cfg.DistractionKeywordsCSV)
	}

	return cfg, nil
}

var (
	globalConfig *Config
	globalOnce   sync.Once
)

// Get returns the process-wide configuration, loading it once.
func Get() *Config {
	globalOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		globalConfig = cfg
	})
	return globalConfig
}

// CheckInterval returns the configured supervision interval.
func (c *Config) CheckInterval() time.Duration {
	if c.CheckIntervalSeconds <= 0 {
		return DefaultCheckInterval
	}
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

func mergeConfig(dst, src *Config) {
	if src.OracleURL != "" {
		dst.OracleURL = src.OracleURL
	}
	if src.OracleModel != "" {
		dst.OracleModel = src.OracleModel
	}
	if src.CheckIntervalSeconds > 0 {
		dst.CheckIntervalSeconds = src.CheckIntervalSeconds
	}
	if src.SnoozeMinutes > 0 {
		dst.SnoozeMinutes = src.SnoozeMinutes
	}
	if src.WhitelistMinutes > 0 {
		dst.WhitelistMinutes = src.WhitelistMinutes
	}
	if src.StrictMinutes > 0 {
		dst.StrictMinutes = src.StrictMinutes
	}
	if src.MiningRatePerMinute > 0 {
		dst.MiningRatePerMinute = src.MiningRatePerMinute
	}
	if src.BankruptcyThreshold != 0 {
		dst.BankruptcyThreshold = src.BankruptcyThreshold
	}
	if src.ConfidenceThreshold > 0 {
		dst.ConfidenceThreshold = src.ConfidenceThreshold
	}
	if src.MaxConns > 0 {
		dst.MaxConns = src.MaxConns
	}
	if src.WorkKeywordsCSV != "" {
		dst.WorkKeywordsCSV = src.WorkKeywordsCSV
	}
	if src.DistractionKeywordsCSV != "" {
		dst.DistractionKeywordsCSV = src.DistractionKeywordsCSV
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("VIGIL_ORACLE_URL"); v != "" {
		cfg.OracleURL = v
	}
	if v := os.Getenv("VIGIL_ORACLE_MODEL"); v != "" {
		cfg.OracleModel = v
	}
	if v := envInt("VIGIL_CHECK_INTERVAL_SECONDS"); v > 0 {
		cfg.CheckIntervalSeconds = v
	}
	if v := envInt("VIGIL_SNOOZE_MINUTES"); v > 0 {
		cfg.SnoozeMinutes = v
	}
	if v := envInt("VIGIL_WHITELIST_MINUTES"); v > 0 {
		cfg.WhitelistMinutes = v
	}
	if v := envInt("VIGIL_STRICT_MINUTES"); v > 0 {
		cfg.StrictMinutes = v
	}
	if v := envInt("VIGIL_CONFIDENCE_THRESHOLD"); v > 0 {
		cfg.ConfidenceThreshold = v
	}
	if v := envInt("VIGIL_DB_MAX_CONNS"); v > 0 {
		cfg.MaxConns = v
	}
	if v := os.Getenv("VIGIL_WORK_KEYWORDS"); v != "" {
		cfg.WorkKeywordsCSV = v
	}
	if v := os.Getenv("VIGIL_DISTRACTION_KEYWORDS"); v != "" {
		cfg.DistractionKeywordsCSV = v
	}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := []string{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
