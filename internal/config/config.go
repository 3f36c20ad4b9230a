// Package config loads and validates the doc-sentry configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/doc-sentry/internal/core"
	"github.com/sevigo/doc-sentry/internal/logger"
)

// Config represents the top-level configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	AI       AIConfig       `mapstructure:"ai"`
	Database DBConfig       `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  logger.Config  `mapstructure:"logging"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

type ServerConfig struct {
	Port       string `mapstructure:"port"`
	MaxWorkers int    `mapstructure:"max_workers"`
}

type GitHubConfig struct {
	APIBaseURL     string `mapstructure:"api_base_url"`
	AppID          int64  `mapstructure:"app_id"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	Token          string `mapstructure:"token"` // For CLI or local runs
}

type AIConfig struct {
	Provider      string  `mapstructure:"provider"` // openai | anthropic | local
	Model         string  `mapstructure:"model"`
	APIKey        string  `mapstructure:"api_key"`
	OllamaHost    string  `mapstructure:"ollama_host"`
	Temperature   float64 `mapstructure:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	MinConfidence float64 `mapstructure:"min_confidence"`
}

type StorageConfig struct {
	// RepoPath is where working copies for doc rewrites are kept.
	RepoPath string `mapstructure:"repo_path"`
	// ReportPath is where JSON impact reports are written.
	ReportPath string `mapstructure:"report_path"`
	// HistoryEnabled toggles persisting run records to the database.
	HistoryEnabled bool `mapstructure:"history_enabled"`
}

type DBConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// PipelineConfig carries every tunable of the five analysis layers. The
// defaults mirror the values the pipeline was calibrated with; all of them
// can be overridden from the config file or environment.
type PipelineConfig struct {
	MerkleTreeChunkSize       int     `mapstructure:"merkle_tree_chunk_size"`
	RollingHashWindowSize     int     `mapstructure:"rolling_hash_window_size"`
	TreeEditDistanceThreshold float64 `mapstructure:"tree_edit_distance_threshold"`
	LouvainResolution         float64 `mapstructure:"louvain_resolution"`
	MinCommunitySize          int     `mapstructure:"min_community_size"`
	MinhashNumPerm            int     `mapstructure:"minhash_num_perm"`
	LSHNumBands               int     `mapstructure:"lsh_num_bands"`
	LSHRowsPerBand            int     `mapstructure:"lsh_rows_per_band"`
	SimilarityThreshold       float64 `mapstructure:"similarity_threshold"`
	MaxFileSizeMB             int     `mapstructure:"max_file_size_mb"`
	MaxAnalysisTimeSeconds    int     `mapstructure:"max_analysis_time_seconds"`
	MaxWorkers                int     `mapstructure:"max_workers"`

	SimilarityMaxFiles         int      `mapstructure:"similarity_max_files"`
	SimilarityMaxTokensPerFile int      `mapstructure:"similarity_max_tokens_per_file"`
	SimilarityMaxPairs         int      `mapstructure:"similarity_max_pairs"`
	SimilarityCrossOnly        bool     `mapstructure:"similarity_cross_only"`
	SimilarityExcludeBinary    bool     `mapstructure:"similarity_exclude_binary"`
	SimilarityTextNormalize    bool     `mapstructure:"similarity_text_normalize"`
	SimilarityIncludeGlobs     []string `mapstructure:"similarity_include_globs"`
	SimilarityExcludeGlobs     []string `mapstructure:"similarity_exclude_globs"`
	SimilarityTextExtensions   []string `mapstructure:"similarity_text_extensions"`
	SimilarityBinaryExtensions []string `mapstructure:"similarity_binary_extensions"`

	Verbose bool `mapstructure:"verbose"`
	Debug   bool `mapstructure:"debug"`
}

// MaxFileSizeBytes converts the configured megabyte limit to bytes.
func (p *PipelineConfig) MaxFileSizeBytes() int64 {
	return int64(p.MaxFileSizeMB) * 1024 * 1024
}

// Deadline returns the analysis budget as a duration, or zero for no limit.
func (p *PipelineConfig) Deadline() time.Duration {
	return time.Duration(p.MaxAnalysisTimeSeconds) * time.Second
}

func (p *PipelineConfig) Validate() error {
	if p.MerkleTreeChunkSize <= 0 {
		return errors.New("merkle_tree_chunk_size must be positive")
	}
	if p.RollingHashWindowSize <= 0 {
		return errors.New("rolling_hash_window_size must be positive")
	}
	if p.MinhashNumPerm <= 0 {
		return errors.New("minhash_num_perm must be positive")
	}
	if p.LSHNumBands <= 0 || p.LSHRowsPerBand <= 0 {
		return errors.New("lsh_num_bands and lsh_rows_per_band must be positive")
	}
	if p.SimilarityThreshold < 0 || p.SimilarityThreshold > 1 {
		return errors.New("similarity_threshold must be in [0,1]")
	}
	if p.TreeEditDistanceThreshold <= 0 || p.TreeEditDistanceThreshold >= 0.6 {
		return errors.New("tree_edit_distance_threshold must be in (0, 0.6)")
	}
	if p.MaxWorkers <= 0 {
		return errors.New("max_workers must be positive")
	}
	return nil
}

// LoadConfig loads the configuration using Viper with the hierarchy:
// Flags (handled by caller) > Env Vars > Config File > Defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.doc-sentry")

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded configuration", "file", v.ConfigFileUsed())
	}

	// Map env vars like SERVER_PORT to server.port.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, &core.ConfigError{Field: "pipeline", Reason: err.Error()}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_workers", 5)

	// GitHub
	v.SetDefault("github.api_base_url", "https://api.github.com")
	v.SetDefault("github.private_key_path", "keys/doc-sentry-app.private-key.pem")

	// AI
	v.SetDefault("ai.provider", "local")
	v.SetDefault("ai.model", "llama3")
	v.SetDefault("ai.ollama_host", "http://localhost:11434")
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.max_tokens", 2000)
	v.SetDefault("ai.min_confidence", 0.3)

	// Storage
	v.SetDefault("storage.repo_path", "./data/repos")
	v.SetDefault("storage.report_path", "./data/reports")
	v.SetDefault("storage.history_enabled", false)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "docsentry")
	v.SetDefault("database.username", "postgres")
	// Password has no default
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	// Pipeline
	v.SetDefault("pipeline.merkle_tree_chunk_size", 1024)
	v.SetDefault("pipeline.rolling_hash_window_size", 32)
	v.SetDefault("pipeline.tree_edit_distance_threshold", 0.3)
	v.SetDefault("pipeline.louvain_resolution", 1.0)
	v.SetDefault("pipeline.min_community_size", 3)
	v.SetDefault("pipeline.minhash_num_perm", 128)
	v.SetDefault("pipeline.lsh_num_bands", 16)
	v.SetDefault("pipeline.lsh_rows_per_band", 8)
	v.SetDefault("pipeline.similarity_threshold", 0.7)
	v.SetDefault("pipeline.max_file_size_mb", 10)
	v.SetDefault("pipeline.max_analysis_time_seconds", 300)
	v.SetDefault("pipeline.max_workers", 4)
	v.SetDefault("pipeline.similarity_max_files", 2000)
	v.SetDefault("pipeline.similarity_max_tokens_per_file", 4000)
	v.SetDefault("pipeline.similarity_max_pairs", 50000)
	v.SetDefault("pipeline.similarity_cross_only", true)
	v.SetDefault("pipeline.similarity_exclude_binary", true)
	v.SetDefault("pipeline.similarity_text_normalize", true)
	v.SetDefault("pipeline.similarity_include_globs", []string{"*"})
	v.SetDefault("pipeline.similarity_exclude_globs", defaultExcludeGlobs())
	v.SetDefault("pipeline.similarity_text_extensions", defaultTextExtensions())
	v.SetDefault("pipeline.similarity_binary_extensions", defaultBinaryExtensions())
	v.SetDefault("pipeline.verbose", false)
	v.SetDefault("pipeline.debug", false)
}

func defaultExcludeGlobs() []string {
	return []string{
		"*/node_modules/*", "*/dist/*", "*/build/*", "*/.git/*", "*/.next/*",
		"*/.cache/*", "*/coverage/*", "*/vendor/*", "*/target/*", "*/.venv/*",
		"*/__pycache__/*", "*.lock",
	}
}

func defaultTextExtensions() []string {
	return []string{
		".js", ".ts", ".tsx", ".jsx", ".json", ".md", ".py", ".java", ".go",
		".rb", ".php", ".css", ".scss", ".html", ".xml", ".yml", ".yaml",
		".sh", ".c", ".h", ".cpp", ".hpp",
	}
}

func defaultBinaryExtensions() []string {
	return []string{
		".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".webp", ".avif",
		".mp3", ".mp4", ".mov", ".wav", ".pdf", ".zip", ".gz", ".bz2", ".7z",
		".rar", ".tar", ".woff", ".woff2", ".ttf", ".eot", ".otf", ".bin",
		".exe", ".dll", ".so", ".dylib", ".wasm",
	}
}

// ValidateForServer checks the fields required to run the webhook server.
func (c *Config) ValidateForServer() error {
	if c.GitHub.AppID == 0 {
		return errors.New("github.app_id is required")
	}
	if c.GitHub.WebhookSecret == "" {
		return errors.New("github.webhook_secret is required")
	}
	if _, err := os.Stat(c.GitHub.PrivateKeyPath); os.IsNotExist(err) {
		return fmt.Errorf("github private key not found at path: %s", c.GitHub.PrivateKeyPath)
	}
	return c.validateAI()
}

// ValidateForCLI checks the fields required for a local CLI run.
func (c *Config) ValidateForCLI() error {
	return c.validateAI()
}

func (c *Config) validateAI() error {
	switch c.AI.Provider {
	case "local":
	case "openai", "anthropic":
		if c.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required for %s provider", c.AI.Provider)
		}
	default:
		return fmt.Errorf("unsupported ai.provider: %s", c.AI.Provider)
	}
	if c.AI.MinConfidence < 0 || c.AI.MinConfidence > 1 {
		return errors.New("ai.min_confidence must be in [0,1]")
	}
	return nil
}

// GetDSN builds the Postgres connection string for the history store.
func (db *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host,
		db.Port,
		db.Username,
		db.Password,
		db.Database,
		db.SSLMode,
	)
}
