package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Providers   map[string]ProviderConfig `json:"providers"`
}

type BasicConfig struct {
	ServerAddress     string `json:"server_address"`
	FileBaseDir       string `json:"file_base_dir"`
	TempFileTTL       int    `json:"temp_file_ttl"`       // minutes
	TempCleanInterval int    `json:"temp_clean_interval"` // minutes
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

// Provider names understood by the dispatch layer.
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
)

// Default returns a configuration with the built-in provider endpoints and
// model names. Loaded files override these field by field.
func Default() *Config {
	return &Config{
		Providers: map[string]ProviderConfig{
			ProviderGemini: {
				Model: "gemini-2.5-flash",
			},
			ProviderOpenAI: {
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o",
			},
			ProviderDeepSeek: {
				BaseURL: "https://api.deepseek.com",
				Model:   "deepseek-chat",
			},
		},
	}
}

// Load reads configuration from the provided path (defaults to config.json)
// and fills in provider defaults for anything the file leaves out.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		// No file is fine: API keys can come from the environment alone.
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	for _, db := range []string{"sqlite3", "sqlite"} {
		if dbCfg, ok := cfg.Databases[db]; ok && dbCfg.DSN != "" && !filepath.IsAbs(dbCfg.DSN) {
			dbCfg.DSN = filepath.Join(filepath.Dir(absPath), dbCfg.DSN)
			cfg.Databases[db] = dbCfg
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := Default()
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	for name, def := range defaults.Providers {
		got := c.Providers[name]
		if got.BaseURL == "" {
			got.BaseURL = def.BaseURL
		}
		if got.Model == "" {
			got.Model = def.Model
		}
		c.Providers[name] = got
	}
}

// Provider returns the configuration for a provider name, falling back to
// the built-in defaults for unknown names.
func (c *Config) Provider(name string) ProviderConfig {
	if c != nil && c.Providers != nil {
		if p, ok := c.Providers[name]; ok {
			return p
		}
	}
	return Default().Providers[name]
}
