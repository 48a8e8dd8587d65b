package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DatabaseConfig holds the location of the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// MatcherConfig holds the candidate ranking weights.
type MatcherConfig struct {
	// TopK is the number of candidates surfaced to the user.
	TopK int `mapstructure:"top_k" yaml:"top_k"`

	ReplyWeight         float64 `mapstructure:"reply_weight" yaml:"reply_weight"`
	SubjectWeight       float64 `mapstructure:"subject_weight" yaml:"subject_weight"`
	ParticipantWeight   float64 `mapstructure:"participant_weight" yaml:"participant_weight"`
	ParticipantCap      int     `mapstructure:"participant_cap" yaml:"participant_cap"`
	RecencyWeight       float64 `mapstructure:"recency_weight" yaml:"recency_weight"`
	RecencyHalfLifeDays float64 `mapstructure:"recency_half_life_days" yaml:"recency_half_life_days"`
}

// IngestConfig controls the ingestion coordinator.
type IngestConfig struct {
	// RequireMessageID blocks records without a Message-ID instead of
	// ingesting them without duplicate protection.
	RequireMessageID bool `mapstructure:"require_message_id" yaml:"require_message_id"`
}

// ReviewConfig controls the maildir review walker.
type ReviewConfig struct {
	// Order is "date" (Date header, then filename) or "name".
	Order string `mapstructure:"order" yaml:"order"`

	// ClipboardCommand, when set, receives staged text on stdin
	// (e.g. "wl-copy --type text/plain"). Empty uses the system clipboard.
	ClipboardCommand    string `mapstructure:"clipboard_command" yaml:"clipboard_command"`
	ClipboardTimeoutSec int    `mapstructure:"clipboard_timeout_sec" yaml:"clipboard_timeout_sec"`

	MaxMessageBytes int    `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	DecryptPGP      bool   `mapstructure:"decrypt_pgp" yaml:"decrypt_pgp"`
	GPGBinary       string `mapstructure:"gpg_binary" yaml:"gpg_binary"`
	StageWithoutID  bool   `mapstructure:"stage_without_id" yaml:"stage_without_id"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Board is the slug of the board used when --board is omitted.
	Board   string        `mapstructure:"board" yaml:"board"`
	Matcher MatcherConfig `mapstructure:"matcher" yaml:"matcher"`
	Ingest  IngestConfig  `mapstructure:"ingest" yaml:"ingest"`
	Review  ReviewConfig  `mapstructure:"review" yaml:"review"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// DefaultConfigDir returns ~/.config/threadboard.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "threadboard")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/threadboard/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	dir := DefaultConfigDir()
	return &AppConfig{
		Database: DatabaseConfig{Path: filepath.Join(dir, "threadboard.db")},
		Board:    "default",
		Matcher: MatcherConfig{
			TopK:                5,
			ReplyWeight:         1000,
			SubjectWeight:       100,
			ParticipantWeight:   10,
			ParticipantCap:      5,
			RecencyWeight:       5,
			RecencyHalfLifeDays: 30,
		},
		Review: ReviewConfig{
			Order:               "date",
			ClipboardTimeoutSec: 5,
			MaxMessageBytes:     1_500_000,
			DecryptPGP:          true,
			GPGBinary:           "gpg",
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "threadboard.log"),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	def := DefaultAppConfig()
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("board", def.Board)
	v.SetDefault("matcher.top_k", def.Matcher.TopK)
	v.SetDefault("matcher.reply_weight", def.Matcher.ReplyWeight)
	v.SetDefault("matcher.subject_weight", def.Matcher.SubjectWeight)
	v.SetDefault("matcher.participant_weight", def.Matcher.ParticipantWeight)
	v.SetDefault("matcher.participant_cap", def.Matcher.ParticipantCap)
	v.SetDefault("matcher.recency_weight", def.Matcher.RecencyWeight)
	v.SetDefault("matcher.recency_half_life_days", def.Matcher.RecencyHalfLifeDays)
	v.SetDefault("review.order", def.Review.Order)
	v.SetDefault("review.clipboard_timeout_sec", def.Review.ClipboardTimeoutSec)
	v.SetDefault("review.max_message_bytes", def.Review.MaxMessageBytes)
	v.SetDefault("review.decrypt_pgp", def.Review.DecryptPGP)
	v.SetDefault("review.gpg_binary", def.Review.GPGBinary)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", def.Log.File)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return def, nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Database.Path = ExpandHome(cfg.Database.Path)
	cfg.Log.File = ExpandHome(cfg.Log.File)
	if cfg.Matcher.TopK < 1 {
		cfg.Matcher.TopK = def.Matcher.TopK
	}
	switch cfg.Review.Order {
	case "date", "name":
	default:
		return nil, fmt.Errorf("parsing config %s: review.order must be \"date\" or \"name\", got %q",
			path, cfg.Review.Order)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("board", cfg.Board)
	v.Set("matcher", cfg.Matcher)
	v.Set("ingest", cfg.Ingest)
	v.Set("review", cfg.Review)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
