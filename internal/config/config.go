// Package config provides configuration loading and structs for the Otoshimono server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Services ServicesConfig `yaml:"services"`
	Vector   VectorConfig   `yaml:"vector"`
	Matching MatchingConfig `yaml:"matching"`
}

// VectorConfig selects the vector index backend.
type VectorConfig struct {
	IndexType string `yaml:"index_type"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database and indices. VectorsPath and
// IDsPath are a pair: the binary vector file and its id list are written and
// loaded together.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
	VectorsPath    string `yaml:"vectors_path"`
	IDsPath        string `yaml:"ids_path"`
}

// ServicesConfig holds endpoints for the external embedding and vision services.
type ServicesConfig struct {
	EmbeddingURL string `yaml:"embedding_url"`
	VisionURL    string `yaml:"vision_url"`
	Dimensions   int    `yaml:"dimensions"`
	CacheSize    int    `yaml:"cache_size"`
}

// MatchingConfig holds the tunable matching parameters. These are reloaded
// live when the config file changes.
type MatchingConfig struct {
	ImageWeight       float64 `yaml:"image_weight"`
	TextWeight        float64 `yaml:"text_weight"`
	MinDescriptionLen int     `yaml:"min_description_len"`
	TopK              int     `yaml:"top_k"`
	MinScore          float64 `yaml:"min_score"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorsPath = expandPath(cfg.Storage.VectorsPath, configDir)
	cfg.Storage.IDsPath = expandPath(cfg.Storage.IDsPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
