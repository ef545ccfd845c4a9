package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the flowscribe configuration.
type Config struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"baseURL,omitempty"`
	Models      ModelConfig   `yaml:"models"`
	Image       ImageConfig   `yaml:"image"`
	Report      ReportConfig  `yaml:"report"`
	Cache       CacheConfig   `yaml:"cache"`
	Log         LogConfig     `yaml:"log"`
	Privacy     PrivacyConfig `yaml:"privacy"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"maxRetries"`
	MetricsFile string        `yaml:"metricsFile,omitempty"`
	SecretsFile string        `yaml:"secretsFile"`
}

// ModelConfig names the model used for each kind of call.
type ModelConfig struct {
	Chat   string `yaml:"chat"`
	Vision string `yaml:"vision"`
	Image  string `yaml:"image"`
}

// ImageConfig controls image generation.
type ImageConfig struct {
	Size           string `yaml:"size"`
	Quality        string `yaml:"quality"`
	Variations     int    `yaml:"variations"`
	ResponseFormat string `yaml:"responseFormat"`
}

// ReportConfig controls where and how the report is written.
type ReportConfig struct {
	Out           string `yaml:"out"`
	Format        string `yaml:"format"`
	ImageDir      string `yaml:"imageDir"`
	AnalyzeVideos bool   `yaml:"analyzeVideos"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir,omitempty"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PrivacyConfig controls redaction of flow data sent to the provider.
type PrivacyConfig struct {
	RedactSecrets bool `yaml:"redactSecrets"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider: "openai",
		Models: ModelConfig{
			Chat:   "gpt-4o-mini",
			Vision: "gpt-4o",
			Image:  "dall-e-3",
		},
		Image: ImageConfig{
			Size:           "1024x1024",
			Quality:        "standard",
			Variations:     3,
			ResponseFormat: "url",
		},
		Report: ReportConfig{
			Out:      "REPORT.md",
			Format:   "markdown",
			ImageDir: ".",
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".cache",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
		},
		Timeout:     2 * time.Minute,
		MaxRetries:  2,
		SecretsFile: "secrets.yaml",
	}
}

// ConfigDir returns the platform-appropriate config directory for flowscribe.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "flowscribe"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "flowscribe"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "flowscribe"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "flowscribe"), nil
	default:
		return filepath.Join(home, ".config", "flowscribe"), nil
	}
}

// ConfigPath returns the full path to the config file. FLOWSCRIBE_CONFIG
// takes precedence over the config directory.
func ConfigPath() (string, error) {
	if p := os.Getenv("FLOWSCRIBE_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile returns the defaults overlaid with the config file. Keys absent
// from the file keep their default. A missing file is not an error.
func LoadFile() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKeys maps environment variables to SetField keys.
var envKeys = []struct {
	env string
	key string
}{
	{"FLOWSCRIBE_PROVIDER", "provider"},
	{"FLOWSCRIBE_BASE_URL", "baseURL"},
	{"FLOWSCRIBE_CHAT_MODEL", "models.chat"},
	{"FLOWSCRIBE_VISION_MODEL", "models.vision"},
	{"FLOWSCRIBE_IMAGE_MODEL", "models.image"},
	{"FLOWSCRIBE_IMAGE_VARIATIONS", "image.variations"},
	{"FLOWSCRIBE_FORMAT", "report.format"},
	{"FLOWSCRIBE_CACHE_ENABLED", "cache.enabled"},
	{"FLOWSCRIBE_CACHE_DIR", "cache.dir"},
	{"FLOWSCRIBE_LOG_LEVEL", "log.level"},
	{"FLOWSCRIBE_LOG_FORMAT", "log.format"},
	{"FLOWSCRIBE_TIMEOUT", "timeout"},
	{"FLOWSCRIBE_MAX_RETRIES", "maxRetries"},
	{"FLOWSCRIBE_METRICS_FILE", "metricsFile"},
}

func mergeEnv(cfg *Config) error {
	for _, e := range envKeys {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, e.key, v); err != nil {
			return fmt.Errorf("%s: %w", e.env, err)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for k, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, k, v); err != nil {
			return fmt.Errorf("flag override: %w", err)
		}
	}
	return nil
}

// Keys returns every key accepted by SetField.
func Keys() []string {
	return []string{
		"provider", "baseURL",
		"models.chat", "models.vision", "models.image",
		"image.size", "image.quality", "image.variations", "image.responseFormat",
		"report.out", "report.format", "report.imageDir", "report.analyzeVideos",
		"cache.enabled", "cache.dir",
		"log.level", "log.format",
		"privacy.redactSecrets",
		"timeout", "maxRetries", "metricsFile", "secretsFile",
	}
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "provider":
		cfg.Provider = value
	case "baseURL":
		cfg.BaseURL = value
	case "models.chat":
		cfg.Models.Chat = value
	case "models.vision":
		cfg.Models.Vision = value
	case "models.image":
		cfg.Models.Image = value
	case "image.size":
		cfg.Image.Size = value
	case "image.quality":
		cfg.Image.Quality = value
	case "image.variations":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("image.variations must be an integer: %w", err)
		}
		if n < 1 {
			return fmt.Errorf("image.variations must be at least 1, got %d", n)
		}
		cfg.Image.Variations = n
	case "image.responseFormat":
		if value != "url" && value != "b64_json" {
			return fmt.Errorf("image.responseFormat must be url or b64_json, got %q", value)
		}
		cfg.Image.ResponseFormat = value
	case "report.out":
		cfg.Report.Out = value
	case "report.format":
		cfg.Report.Format = value
	case "report.imageDir":
		cfg.Report.ImageDir = value
	case "report.analyzeVideos":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("report.analyzeVideos must be a boolean: %w", err)
		}
		cfg.Report.AnalyzeVideos = b
	case "cache.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cache.enabled must be a boolean: %w", err)
		}
		cfg.Cache.Enabled = b
	case "cache.dir":
		cfg.Cache.Dir = value
	case "log.level":
		cfg.Log.Level = value
	case "log.format":
		cfg.Log.Format = value
	case "privacy.redactSecrets":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("privacy.redactSecrets must be a boolean: %w", err)
		}
		cfg.Privacy.RedactSecrets = b
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("timeout must be a duration: %w", err)
		}
		cfg.Timeout = d
	case "maxRetries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxRetries must be an integer: %w", err)
		}
		if n < 0 {
			return fmt.Errorf("maxRetries must not be negative, got %d", n)
		}
		cfg.MaxRetries = n
	case "metricsFile":
		cfg.MetricsFile = value
	case "secretsFile":
		cfg.SecretsFile = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// ErrNoAPIKey is returned by LoadAPIKey when no key is configured.
var ErrNoAPIKey = errors.New("no API key: set OPENAI_API_KEY or openai-key in the secrets file")

// LoadAPIKey returns the provider API key from OPENAI_API_KEY or, failing
// that, the openai-key entry of the YAML secrets file at path.
func LoadAPIKey(path string) (string, error) {
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		return k, nil
	}
	if path == "" {
		return "", ErrNoAPIKey
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoAPIKey
		}
		return "", fmt.Errorf("reading secrets file: %w", err)
	}
	var secrets struct {
		OpenAIKey string `yaml:"openai-key"`
	}
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return "", fmt.Errorf("parsing secrets file %s: %w", path, err)
	}
	if secrets.OpenAIKey == "" {
		return "", ErrNoAPIKey
	}
	return secrets.OpenAIKey, nil
}
