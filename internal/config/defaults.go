package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/otoshimono/data/db/items.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/otoshimono/data/indices/bleve"
	}
	if cfg.Storage.VectorsPath == "" {
		cfg.Storage.VectorsPath = "/usr/local/var/otoshimono/data/indices/vectors.bin"
	}
	if cfg.Storage.IDsPath == "" {
		cfg.Storage.IDsPath = "/usr/local/var/otoshimono/data/indices/vectors.ids"
	}
	if cfg.Services.EmbeddingURL == "" {
		cfg.Services.EmbeddingURL = "http://localhost:8081"
	}
	if cfg.Services.VisionURL == "" {
		cfg.Services.VisionURL = "http://localhost:8082"
	}
	if cfg.Services.Dimensions == 0 {
		cfg.Services.Dimensions = 512
	}
	if cfg.Services.CacheSize == 0 {
		cfg.Services.CacheSize = 10000
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "flat"
	}
	if cfg.Matching.ImageWeight == 0 && cfg.Matching.TextWeight == 0 {
		cfg.Matching.ImageWeight = 0.6
		cfg.Matching.TextWeight = 0.4
	}
	if cfg.Matching.MinDescriptionLen == 0 {
		cfg.Matching.MinDescriptionLen = 5
	}
	if cfg.Matching.TopK == 0 {
		cfg.Matching.TopK = 5
	}
	if cfg.Matching.MinScore == 0 {
		cfg.Matching.MinScore = 0.3
	}
}
