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
	Embedding   EmbeddingConfig           `json:"embedding"`
	Pinecone    PineconeConfig            `json:"pinecone"`
}

type BasicConfig struct {
	ServerAddress   string `json:"server_address"`
	FileBaseDir     string `json:"file_base_dir"`
	MaxUploadSize   int64  `json:"max_upload_size"`
	HistoryTTLHours int    `json:"history_ttl_hours"`
	HistoryWindow   int    `json:"history_window"`
	TopK            int    `json:"top_k"`
	LLMProvider     string `json:"llm_provider"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
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

type EmbeddingConfig struct {
	BaseURL    string `json:"base_url"`
	Model      string `json:"model"`
	APIKey     string `json:"api_key"`
	Dimensions int    `json:"dimensions"`
}

type PineconeConfig struct {
	IndexHost string `json:"index_host"`
	APIKey    string `json:"api_key"`
	Namespace string `json:"namespace"`
}

// Load reads configuration from the provided path (defaults to config.json).
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
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()

	if _, ok := cfg.Providers[cfg.BasicConfig.LLMProvider]; !ok {
		return nil, fmt.Errorf("provider %s not configured", cfg.BasicConfig.LLMProvider)
	}
	if cfg.Pinecone.IndexHost == "" {
		return nil, fmt.Errorf("pinecone index_host must be configured")
	}

	for name, db := range cfg.Databases {
		if db.DSN != "" && !filepath.IsAbs(db.DSN) && name != "mysql" {
			db.DSN = filepath.Join(filepath.Dir(absPath), db.DSN)
			cfg.Databases[name] = db
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = ":8080"
	}
	if c.BasicConfig.FileBaseDir == "" {
		c.BasicConfig.FileBaseDir = "./data/uploads"
	}
	if c.BasicConfig.MaxUploadSize <= 0 {
		c.BasicConfig.MaxUploadSize = 10 << 20
	}
	if c.BasicConfig.HistoryTTLHours <= 0 {
		c.BasicConfig.HistoryTTLHours = 24
	}
	if c.BasicConfig.HistoryWindow <= 0 {
		c.BasicConfig.HistoryWindow = 5
	}
	if c.BasicConfig.TopK <= 0 {
		c.BasicConfig.TopK = 5
	}
	if c.BasicConfig.LLMProvider == "" {
		c.BasicConfig.LLMProvider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
}
