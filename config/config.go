package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/msaldanha/plasticine/persistent"
)

// DefaultCacheTime is how long cached data stays valid unless configured otherwise.
const DefaultCacheTime = 7 * 24 * time.Hour

var shortNamePattern = regexp.MustCompile(`[a-zA-Z]_*`)

type Config struct {
	App struct {
		Title        string `yaml:"title"`
		ShortName    string `yaml:"short_name"`
		Mode         string `yaml:"mode"`
		APIURL       string `yaml:"api_url"`
		APIURLPrefix string `yaml:"api_url_prefix"`
		UploadURL    string `yaml:"upload_url"`
	} `yaml:"app"`

	Server struct {
		Address       string `yaml:"address"`
		Secret        string `yaml:"secret"`
		StaticDir     string `yaml:"static_dir"`
		AdminPassword string `yaml:"admin_password"`
	} `yaml:"server"`

	Storage struct {
		DBFile              string        `yaml:"db_file"`
		Bucket              string        `yaml:"bucket"`
		DefaultCacheTime    time.Duration `yaml:"default_cache_time"`
		PermissionCacheType string        `yaml:"permission_cache_type"`
	} `yaml:"storage"`

	HTTP struct {
		Timeout              time.Duration `yaml:"timeout"`
		AuthenticationScheme string        `yaml:"authentication_scheme"`
		Retries              int           `yaml:"retries"`
	} `yaml:"http"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

func Default() *Config {
	cfg := &Config{}

	cfg.App.Title = "Plasticine Admin"
	cfg.App.ShortName = "plasticine_admin"
	cfg.App.Mode = "production"
	cfg.App.APIURLPrefix = "/api"

	cfg.Server.Address = ":8080"
	cfg.Server.StaticDir = "dist"

	cfg.Storage.DBFile = "plasticine.db"
	cfg.Storage.Bucket = "local"
	cfg.Storage.DefaultCacheTime = DefaultCacheTime
	cfg.Storage.PermissionCacheType = persistent.Local.String()

	cfg.HTTP.Timeout = 10 * time.Second
	cfg.HTTP.Retries = 2

	cfg.Log.Level = "info"

	return cfg
}

func (c *Config) Validate() error {
	var errors []string

	if c.App.ShortName == "" {
		errors = append(errors, "app short name is required")
	}
	if c.Server.Address == "" {
		errors = append(errors, "server address is required")
	}
	if c.Storage.DBFile == "" {
		errors = append(errors, "storage db file is required")
	}
	if c.Storage.Bucket == "" {
		errors = append(errors, "storage bucket is required")
	}
	if c.Storage.DefaultCacheTime < 0 {
		errors = append(errors, "storage default cache time cannot be negative")
	}
	if _, er := persistent.ParseCacheType(c.Storage.PermissionCacheType); er != nil {
		errors = append(errors, fmt.Sprintf("storage permission cache type: %v", er))
	}
	if c.HTTP.Timeout <= 0 {
		errors = append(errors, "http timeout must be positive")
	}
	if c.HTTP.Retries < 0 {
		errors = append(errors, "http retries cannot be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// ValidShortName reports whether the short name is usable as part of generated
// identifiers. An invalid one is only worth a warning.
func (c *Config) ValidShortName() bool {
	return shortNamePattern.MatchString(c.App.ShortName)
}

// StoragePrefix namespaces every storage key of this app and mode. The trailing
// separator keeps "APP__PROD" from matching keys of "APP__PROD2".
func (c *Config) StoragePrefix() string {
	return strings.ToUpper(fmt.Sprintf("%s__%s__", c.App.ShortName, c.App.Mode))
}

func (c *Config) PermissionCacheType() persistent.CacheType {
	t, er := persistent.ParseCacheType(c.Storage.PermissionCacheType)
	if er != nil {
		return persistent.Local
	}
	return t
}

// GlobEnv returns the variables exposed to the browser through the runtime config file.
func (c *Config) GlobEnv() map[string]string {
	return map[string]string{
		"VITE_GLOB_APP_TITLE":      c.App.Title,
		"VITE_GLOB_APP_SHORT_NAME": c.App.ShortName,
		"VITE_GLOB_API_URL":        c.App.APIURL,
		"VITE_GLOB_API_URL_PREFIX": c.App.APIURLPrefix,
		"VITE_GLOB_UPLOAD_URL":     c.App.UploadURL,
	}
}

func LoadFromFile(path string) (*Config, error) {
	data, er := os.ReadFile(path)
	if er != nil {
		return nil, fmt.Errorf("failed to read config file: %w", er)
	}

	cfg := Default()
	if er := yaml.Unmarshal(data, cfg); er != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", er)
	}
	return cfg, nil
}

// Load reads CONFIG_FILE (config.yaml by default) when present, applies environment
// overrides and validates the result.
func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config
	if _, er := os.Stat(configPath); er == nil {
		cfg, er = LoadFromFile(configPath)
		if er != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, er)
		}
	} else {
		cfg = Default()
	}

	if er := applyEnvOverrides(cfg); er != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", er)
	}

	if er := cfg.Validate(); er != nil {
		return nil, er
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("VITE_GLOB_APP_TITLE"); val != "" {
		cfg.App.Title = val
	}
	if val := os.Getenv("VITE_GLOB_APP_SHORT_NAME"); val != "" {
		cfg.App.ShortName = val
	}
	if val := os.Getenv("VITE_GLOB_API_URL"); val != "" {
		cfg.App.APIURL = val
	}
	if val := os.Getenv("VITE_GLOB_API_URL_PREFIX"); val != "" {
		cfg.App.APIURLPrefix = val
	}
	if val := os.Getenv("VITE_GLOB_UPLOAD_URL"); val != "" {
		cfg.App.UploadURL = val
	}
	if val := os.Getenv("APP_MODE"); val != "" {
		cfg.App.Mode = val
	}

	if val := os.Getenv("SERVER_ADDRESS"); val != "" {
		cfg.Server.Address = val
	}
	if val := os.Getenv("SERVER_SECRET"); val != "" {
		cfg.Server.Secret = val
	}
	if val := os.Getenv("SERVER_STATIC_DIR"); val != "" {
		cfg.Server.StaticDir = val
	}
	if val := os.Getenv("SERVER_ADMIN_PASSWORD"); val != "" {
		cfg.Server.AdminPassword = val
	}

	if val := os.Getenv("STORAGE_DB_FILE"); val != "" {
		cfg.Storage.DBFile = val
	}
	if val := os.Getenv("STORAGE_DEFAULT_CACHE_TIME"); val != "" {
		d, er := time.ParseDuration(val)
		if er != nil {
			return fmt.Errorf("invalid STORAGE_DEFAULT_CACHE_TIME (expected duration like '168h'): %w", er)
		}
		cfg.Storage.DefaultCacheTime = d
	}
	if val := os.Getenv("STORAGE_PERMISSION_CACHE_TYPE"); val != "" {
		cfg.Storage.PermissionCacheType = val
	}

	if val := os.Getenv("HTTP_TIMEOUT"); val != "" {
		d, er := time.ParseDuration(val)
		if er != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT: %w", er)
		}
		cfg.HTTP.Timeout = d
	}
	if val := os.Getenv("HTTP_AUTHENTICATION_SCHEME"); val != "" {
		cfg.HTTP.AuthenticationScheme = val
	}
	if val := os.Getenv("HTTP_RETRIES"); val != "" {
		n, er := strconv.Atoi(val)
		if er != nil {
			return fmt.Errorf("invalid HTTP_RETRIES: %w", er)
		}
		cfg.HTTP.Retries = n
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	if val := os.Getenv("LOG_DEVELOPMENT"); val != "" {
		cfg.Log.Development = val == "true" || val == "1"
	}

	return nil
}
