package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `json:"database"`
	LLM       LLMConfig       `json:"llm"`
	Embedding EmbeddingConfig `json:"embedding"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Cache     CacheConfig     `json:"cache"`
	Logging   LoggingConfig   `json:"logging"`
	Debug     DebugConfig     `json:"debug"`
}

// DatabaseConfig describes the target database the questions are answered against
type DatabaseConfig struct {
	URL             string `json:"url"                env:"DATABASE_URL"`
	Schema          string `json:"schema"             env:"NL2SQL_DB_SCHEMA"             envDefault:"public"`
	MaxConnections  int    `json:"max_connections"    env:"NL2SQL_DB_MAX_CONNECTIONS"    envDefault:"4"`
	MaxIdleConns    int    `json:"max_idle_conns"     env:"NL2SQL_DB_MAX_IDLE_CONNS"     envDefault:"2"`
	ConnMaxLifetime string `json:"conn_max_lifetime"  env:"NL2SQL_DB_CONN_MAX_LIFETIME"  envDefault:"30m"`
	QueryTimeout    string `json:"query_timeout"      env:"NL2SQL_DB_QUERY_TIMEOUT"      envDefault:"30s"`
}

// LLMConfig represents the completion service configuration
type LLMConfig struct {
	Provider        string  `json:"provider"         env:"NL2SQL_LLM_PROVIDER"         envDefault:"openai"` // openai, anthropic, ollama, local
	Model           string  `json:"model"            env:"NL2SQL_LLM_MODEL"            envDefault:"gpt-4"`
	EnrichmentModel string  `json:"enrichment_model" env:"NL2SQL_LLM_ENRICHMENT_MODEL" envDefault:"gpt-3.5-turbo"`
	APIKey          string  `json:"-"                env:"OPENAI_API_KEY"`
	BaseURL         string  `json:"base_url"         env:"NL2SQL_LLM_BASE_URL"`
	Temperature     float64 `json:"temperature"      env:"NL2SQL_LLM_TEMPERATURE"      envDefault:"0"`
	MaxTokens       int     `json:"max_tokens"       env:"NL2SQL_LLM_MAX_TOKENS"       envDefault:"1000"`
	Timeout         string  `json:"timeout"          env:"NL2SQL_LLM_TIMEOUT"          envDefault:"60s"`
}

// EmbeddingConfig represents the embedding provider configuration
type EmbeddingConfig struct {
	Provider   string `json:"provider"   env:"NL2SQL_EMBEDDING_PROVIDER"   envDefault:"openai"` // openai, disabled
	Model      string `json:"model"      env:"NL2SQL_EMBEDDING_MODEL"      envDefault:"text-embedding-3-small"`
	Dimensions int    `json:"dimensions" env:"NL2SQL_EMBEDDING_DIMENSIONS" envDefault:"1536"`
	BaseURL    string `json:"base_url"   env:"NL2SQL_EMBEDDING_BASE_URL"`
}

// PipelineConfig holds the knobs of the generation pipeline
type PipelineConfig struct {
	MaxTokens      int `json:"max_tokens"       env:"NL2SQL_MAX_TOKENS"        envDefault:"4000"`
	TokensPerTable int `json:"tokens_per_table" env:"NL2SQL_TOKENS_PER_TABLE"  envDefault:"800"`
	TopK           int `json:"top_k"            env:"NL2SQL_TOP_K"             envDefault:"3"`
	MaxRows        int `json:"max_rows"         env:"NL2SQL_MAX_ROWS"          envDefault:"100"`
}

// CacheConfig represents on-disk locations for the digest artifacts
type CacheConfig struct {
	Directory  string `json:"directory"   env:"NL2SQL_CACHE_DIR"   envDefault:".cache"`
	IndexPath  string `json:"index_path"  env:"NL2SQL_INDEX_PATH"  envDefault:".cache/schema_index.duckdb"`
	IgnoreFile string `json:"ignore_file" env:"NL2SQL_IGNORE_FILE" envDefault:".nlsqlignore"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level     string `json:"level"      env:"NL2SQL_LOG_LEVEL"      envDefault:"info"`   // debug, info, warn, error
	Format    string `json:"format"     env:"NL2SQL_LOG_FORMAT"     envDefault:"text"`   // text, json
	Output    string `json:"output"     env:"NL2SQL_LOG_OUTPUT"     envDefault:"stderr"` // stdout, stderr, file
	File      string `json:"file"       env:"NL2SQL_LOG_FILE"       envDefault:".cache/logs/nl2sql.log"`
	AddSource bool   `json:"add_source" env:"NL2SQL_LOG_ADD_SOURCE" envDefault:"false"`
}

// DebugConfig represents debug configuration
type DebugConfig struct {
	Enabled     bool   `json:"enabled"      env:"NL2SQL_DEBUG"        envDefault:"false"`
	Verbose     bool   `json:"verbose"      env:"NL2SQL_VERBOSE"      envDefault:"false"`
	MetricsAddr string `json:"metrics_addr" env:"NL2SQL_METRICS_ADDR"`
}

// DefaultConfig returns the configuration built from defaults only
func DefaultConfig() *Config {
	cfg := &Config{}
	// An empty environment cannot fail to parse.
	_ = env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}})

	return cfg
}

// LoadConfig loads configuration from file, environment variables, and command-line flags
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides.
// Precedence, lowest first: defaults, config file, environment (.env included), flags.
func LoadConfigWithOverrides(flagOverrides map[string]any) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if flagOverrides != nil {
		if err := applyFlagOverrides(config, flagOverrides); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadDotEnv loads a .env file when present; existing variables win
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	return godotenv.Load(path)
}

// loadConfigFromFile loads configuration from a JSON file. Values set through
// the environment keep precedence over the file.
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	var present map[string]bool
	if raw := make(map[string]any); json.Unmarshal(data, &raw) == nil {
		present = presentKeys(raw, "")
	}

	mergeConfigs(config, &fileConfig, func(envKey, jsonPath string) bool {
		if envKey != "" {
			if _, set := os.LookupEnv(envKey); set {
				return false
			}
		}

		return present[jsonPath]
	})

	return nil
}

// presentKeys flattens the keys of a decoded JSON object into dotted paths
func presentKeys(raw map[string]any, prefix string) map[string]bool {
	keys := make(map[string]bool)

	for k, v := range raw {
		path := prefix + k
		keys[path] = true

		if nested, ok := v.(map[string]any); ok {
			for nk := range presentKeys(nested, path+".") {
				keys[nk] = true
			}
		}
	}

	return keys
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]any) error {
	for key, value := range overrides {
		switch key {
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "log-format":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Format = str
			}
		case "verbose":
			if b, ok := value.(bool); ok && b {
				config.Debug.Verbose = b
			}
		case "debug":
			if b, ok := value.(bool); ok && b {
				config.Debug.Enabled = b
				config.Logging.Level = "debug"
			}
		case "cache-dir":
			if str, ok := value.(string); ok && str != "" {
				config.Cache.Directory = str
			}
		case "ignore-file":
			if str, ok := value.(string); ok && str != "" {
				config.Cache.IgnoreFile = str
			}
		case "metrics-addr":
			if str, ok := value.(string); ok && str != "" {
				config.Debug.MetricsAddr = str
			}
		default:
			return fmt.Errorf("unknown flag override: %s", key)
		}
	}

	return nil
}

// mergeConfigs copies the fields of source into target for which keep
// reports true. keep receives the field's env key and dotted json path.
func mergeConfigs(target, source *Config, keep func(envKey, jsonPath string) bool) {
	var mergeValues func(t, s reflect.Value, prefix string)
	mergeValues = func(t, s reflect.Value, prefix string) {
		for i := range s.NumField() {
			field := s.Type().Field(i)
			name := strings.Split(field.Tag.Get("json"), ",")[0]

			if name == "-" {
				continue
			}

			path := prefix + name
			if field.Type.Kind() == reflect.Struct {
				mergeValues(t.Field(i), s.Field(i), path+".")
				continue
			}

			if keep(field.Tag.Get("env"), path) {
				t.Field(i).Set(s.Field(i))
			}
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem(), "")
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	validProviders := map[string]bool{
		"openai": true, "anthropic": true, "ollama": true, "local": true,
	}
	if !validProviders[strings.ToLower(config.LLM.Provider)] {
		return fmt.Errorf(
			"invalid llm provider: %s (must be openai, anthropic, ollama, or local)",
			config.LLM.Provider,
		)
	}

	for name, value := range map[string]string{
		"database query timeout":       config.Database.QueryTimeout,
		"database connection lifetime": config.Database.ConnMaxLifetime,
		"llm timeout":                  config.LLM.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %s", name, value)
		}
	}

	if config.Pipeline.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive: %d", config.Pipeline.MaxTokens)
	}

	if config.Pipeline.TokensPerTable <= 0 {
		return fmt.Errorf("tokens per table must be positive: %d", config.Pipeline.TokensPerTable)
	}

	if config.Pipeline.TopK <= 0 {
		return fmt.Errorf("top k must be positive: %d", config.Pipeline.TopK)
	}

	if config.Database.MaxConnections <= 0 {
		return fmt.Errorf(
			"database max connections must be positive: %d",
			config.Database.MaxConnections,
		)
	}

	return nil
}

// RequireDatabase reports whether the target database is configured
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	return nil
}

// RequireLLM reports whether the completion and embedding services can be reached
func (c *Config) RequireLLM() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "ollama", "local":
		return nil
	}

	if c.LLM.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}

	return nil
}

// QueryTimeout returns the parsed database query timeout
func (c *Config) QueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Database.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}

	return d
}

// LLMTimeout returns the parsed completion request timeout
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 60 * time.Second
	}

	return d
}

// RedactedDatabaseURL returns the database URL with any password masked
func (c *Config) RedactedDatabaseURL() string {
	return RedactURL(c.Database.URL)
}

// RedactURL masks the password component of a connection URL
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}

	return u.Redacted()
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("NL2SQL_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "nl2sql", "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Cache.Directory = expandPath(c.Cache.Directory)
	c.Cache.IndexPath = expandPath(c.Cache.IndexPath)
	c.Cache.IgnoreFile = expandPath(c.Cache.IgnoreFile)
	c.Logging.File = expandPath(c.Logging.File)
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Cache.Directory,
		filepath.Dir(c.Cache.IndexPath),
	}

	if strings.EqualFold(c.Logging.Output, "file") {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
