// Package main is the Otoshimono CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/otoshimono/otoshimono/internal/cli"
	"github.com/otoshimono/otoshimono/internal/config"
	"github.com/otoshimono/otoshimono/internal/embedding"
	"github.com/otoshimono/otoshimono/internal/keyword"
	"github.com/otoshimono/otoshimono/internal/matching"
	"github.com/otoshimono/otoshimono/internal/models"
	"github.com/otoshimono/otoshimono/internal/server"
	"github.com/otoshimono/otoshimono/internal/storage"
	"github.com/otoshimono/otoshimono/internal/vector"
	"github.com/otoshimono/otoshimono/internal/vision"
	"github.com/otoshimono/otoshimono/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/otoshimono/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "otoshimono server" from the project dir uses the project's config.
// Returns the config and the path that was actually loaded (for the reload watcher).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "report":
		runReport()
	case "items":
		runItems()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("otoshimono version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	mock := fs.Bool("mock-embedder", false, "use the deterministic mock embedder instead of the embedding service")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, *mock)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	engine := matching.NewEngine(
		components.Store,
		components.Embedder,
		components.VectorIndex,
		components.Tagger,
		components.KeywordIndex,
		paramsFromConfig(&cfg.Matching),
		logger,
	)
	if components.LoadFailed {
		// Artifacts on disk disagree with each other. Serve reads, refuse
		// matching until someone repairs or removes them and restarts.
		engine.MarkPoisoned()
		logger.Error("vector index artifacts inconsistent, matching disabled",
			zap.String("vectors_path", cfg.Storage.VectorsPath),
			zap.String("ids_path", cfg.Storage.IDsPath),
		)
	}

	reloadWatcher := config.NewWatcher(resolvedConfigPath, func(newCfg *config.Config) {
		engine.UpdateParams(paramsFromConfig(&newCfg.Matching))
	}, logger)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := reloadWatcher.Start(watchCtx); err != nil {
		logger.Warn("config reload watcher failed to start", zap.Error(err))
	}
	defer reloadWatcher.Stop()

	srv := server.NewServer(engine, components.Store, components.KeywordIndex, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if !engine.Poisoned() {
		if err := components.VectorIndex.Save(cfg.Storage.VectorsPath, cfg.Storage.IDsPath); err != nil {
			logger.Warn("vector index save failed",
				zap.String("vectors_path", cfg.Storage.VectorsPath),
				zap.Error(err))
		}
	} else {
		logger.Warn("skipping vector index save, artifacts are inconsistent")
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runReport() {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	reportType := fs.String("type", "", `report type: "lost" or "found"`)
	category := fs.String("category", "", "item category (default: general)")
	description := fs.String("description", "", "item description")
	location := fs.String("location", "", "where the item was lost or found")
	image := fs.String("image", "", "image path or URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *reportType == "" || *location == "" || *image == "" {
		fmt.Println("Usage: otoshimono report -type <lost|found> -location <where> -image <path-or-url> [-description ...] [-category ...]")
		os.Exit(1)
	}
	format, ok := parseOutputFormat(*outputFormat)
	if !ok {
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	report := &models.Report{
		ReportType:  *reportType,
		Category:    *category,
		Description: *description,
		Location:    *location,
		ImageSource: *image,
	}
	body, err := json.Marshal(report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encode failed: %v\n", err)
		os.Exit(1)
	}
	resp, err := http.Post(*serverURL+"/api/v1/report", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Report failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out models.ReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Decode failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteReportResponse(os.Stdout, &out, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runItems() {
	fs := flag.NewFlagSet("items", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	reportType := fs.String("type", "", `filter by report type: "lost" or "found"`)
	query := fs.String("q", "", "keyword search over descriptions, locations, and labels")
	limit := fs.Int("limit", 20, "number of items")
	offset := fs.Int("offset", 0, "listing offset")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, ok := parseOutputFormat(*outputFormat)
	if !ok {
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	// One positional argument fetches a single item by id.
	if fs.NArg() >= 1 {
		item, err := getItemViaHTTP(*serverURL, fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Get item failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteItems(os.Stdout, []*models.Item{item}, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var items []*models.Item
	var err error
	if *query != "" {
		items, err = searchItemsViaHTTP(*serverURL, *query, *limit)
	} else {
		items, err = listItemsViaHTTP(*serverURL, *reportType, *offset, *limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "List items failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteItems(os.Stdout, items, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func getItemViaHTTP(serverURL, id string) (*models.Item, error) {
	resp, err := http.Get(serverURL + "/api/v1/items/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var item models.Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &item, nil
}

func listItemsViaHTTP(serverURL, reportType string, offset, limit int) ([]*models.Item, error) {
	q := url.Values{}
	if reportType != "" {
		q.Set("type", reportType)
	}
	q.Set("offset", fmt.Sprint(offset))
	q.Set("limit", fmt.Sprint(limit))
	resp, err := http.Get(serverURL + "/api/v1/items?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Items []*models.Item `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Items, nil
}

func searchItemsViaHTTP(serverURL, query string, limit int) ([]*models.Item, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", fmt.Sprint(limit))
	resp, err := http.Get(serverURL + "/api/v1/items/search?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Items []*models.Item `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Items, nil
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	EmbeddingDimensions int     `json:"embedding_dimensions,omitempty"`
	ImageWeight         float64 `json:"image_weight,omitempty"`
	TextWeight          float64 `json:"text_weight,omitempty"`
	TopK                int     `json:"top_k,omitempty"`
	MinScore            float64 `json:"min_score,omitempty"`
	DatabasePath        string  `json:"database_path,omitempty"`
	BleveIndexPath      string  `json:"bleve_index_path,omitempty"`
	VectorsPath         string  `json:"vectors_path,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Items            int64                 `json:"items"`
	VectorIndexSize  int                   `json:"vector_index_size"`
	MatchingDegraded bool                  `json:"matching_degraded"`
	DiskUsageBytes   *int64                `json:"disk_usage_bytes,omitempty"`
	Config           *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	status, err := statusViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("items:              %d   # count of reported items\n", status.Items)
		fmt.Printf("vector_index_size:  %d   # count of vectors in matching index\n", status.VectorIndexSize)
		fmt.Printf("matching_degraded:  %t\n", status.MatchingDegraded)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:   %d   # storage + indices on disk\n", *status.DiskUsageBytes)
		}
		if status.Config != nil {
			fmt.Println()
			fmt.Println("# configuration")
			if status.Config.EmbeddingDimensions > 0 {
				fmt.Printf("embedding_dims:     %d\n", status.Config.EmbeddingDimensions)
			}
			fmt.Printf("image_weight:       %g\n", status.Config.ImageWeight)
			fmt.Printf("text_weight:        %g\n", status.Config.TextWeight)
			fmt.Printf("top_k:              %d\n", status.Config.TopK)
			fmt.Printf("min_score:          %g\n", status.Config.MinScore)
			if status.Config.DatabasePath != "" {
				fmt.Printf("database_path:      %s\n", status.Config.DatabasePath)
			}
			if status.Config.BleveIndexPath != "" {
				fmt.Printf("bleve_index_path:   %s\n", status.Config.BleveIndexPath)
			}
			if status.Config.VectorsPath != "" {
				fmt.Printf("vectors_path:       %s\n", status.Config.VectorsPath)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func parseOutputFormat(s string) (cli.OutputFormat, bool) {
	switch s {
	case "json":
		return cli.OutputJSON, true
	case "text", "":
		return cli.OutputText, true
	default:
		return cli.OutputText, false
	}
}

func paramsFromConfig(m *config.MatchingConfig) matching.Params {
	return matching.Params{
		ImageWeight:       m.ImageWeight,
		TextWeight:        m.TextWeight,
		MinDescriptionLen: m.MinDescriptionLen,
		TopK:              m.TopK,
		MinScore:          m.MinScore,
	}
}

// Components holds initialized services.
type Components struct {
	Store        storage.Store
	Embedder     embedding.Embedder
	VectorIndex  vector.VectorIndex
	Tagger       vision.Tagger
	KeywordIndex keyword.ItemIndex

	// LoadFailed is set when persisted index artifacts were present but
	// inconsistent. The index starts empty in that case.
	LoadFailed bool
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.Tagger != nil {
		_ = c.Tagger.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, mockEmbedder bool) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var embedder embedding.Embedder
	if mockEmbedder {
		embedder = embedding.NewMockEmbedder(cfg.Services.Dimensions)
		logger.Warn("using mock embedder, matches will not be meaningful")
	} else {
		remote, err := embedding.NewRemoteEmbedder(
			cfg.Services.EmbeddingURL,
			cfg.Services.Dimensions,
			cfg.Services.CacheSize,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		embedder = remote
	}

	vectorIndex, err := vector.NewVectorIndex(cfg.Vector.IndexType, cfg.Services.Dimensions)
	if err != nil {
		// Fall back to the flat index if the configured backend is unavailable.
		if cfg.Vector.IndexType != string(vector.IndexTypeFlat) && cfg.Vector.IndexType != "" {
			logger.Warn("failed to create vector index, falling back to flat",
				zap.String("requested_type", cfg.Vector.IndexType),
				zap.Error(err))
			vectorIndex, err = vector.NewVectorIndex(string(vector.IndexTypeFlat), cfg.Services.Dimensions)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize vector index: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to initialize vector index: %w", err)
		}
	}

	loadFailed := false
	if loadErr := vectorIndex.Load(cfg.Storage.VectorsPath, cfg.Storage.IDsPath); loadErr != nil {
		if errors.Is(loadErr, vector.ErrIntegrity) {
			loadFailed = true
		} else {
			logger.Warn("vector index load skipped",
				zap.String("vectors_path", cfg.Storage.VectorsPath),
				zap.Error(loadErr))
		}
	}
	logger.Info("vector index initialized",
		zap.String("type", cfg.Vector.IndexType),
		zap.Int("size", vectorIndex.Size()),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()))

	// Ids travel with the vectors, so a size difference does not corrupt the
	// mapping, but it usually means an earlier shutdown skipped the save.
	if count, countErr := store.CountItems(context.Background()); countErr == nil && int(count) != vectorIndex.Size() {
		logger.Warn("item store and vector index sizes differ",
			zap.Int64("items", count),
			zap.Int("vectors", vectorIndex.Size()))
	}

	var tagger vision.Tagger
	if cfg.Services.VisionURL != "" {
		remoteTagger, err := vision.NewRemoteTagger(cfg.Services.VisionURL)
		if err != nil {
			logger.Warn("failed to initialize vision tagger, annotations disabled", zap.Error(err))
			tagger = vision.NopTagger{}
		} else {
			tagger = remoteTagger
		}
	} else {
		tagger = vision.NopTagger{}
	}

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	return &Components{
		Store:        store,
		Embedder:     embedder,
		VectorIndex:  vectorIndex,
		Tagger:       tagger,
		KeywordIndex: keywordIndex,
		LoadFailed:   loadFailed,
	}, nil
}

func printUsage() {
	fmt.Println(`otoshimono - Lost & found item matching service

Usage:
  otoshimono server [flags]           Start the HTTP server
  otoshimono report [flags]           Submit a lost or found report
  otoshimono items [flags] [item-id]  List, search, or fetch reported items
  otoshimono status [flags]           Show item/index status
  otoshimono version                  Show version
  otoshimono help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/otoshimono/config.yaml)
  --debug            Enable debug logging
  --mock-embedder    Use the deterministic mock embedder (no embedding service needed)

Report Flags:
  --server string       Server URL (default: http://localhost:8080)
  --type string         Report type: lost or found (required)
  --location string     Where the item was lost or found (required)
  --image string        Image path or URL (required)
  --description string  Item description
  --category string     Item category (default: general)
  --output string       Output format: text or json (default: text)

Items Flags:
  --server string    Server URL (default: http://localhost:8080)
  --type string      Filter by report type: lost or found
  --q string         Keyword search over descriptions, locations, and labels
  --limit int        Number of items (default: 20)
  --offset int       Listing offset (default: 0)
  --output string    Output format: text or json (default: text)

Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Examples:
  otoshimono server
  otoshimono report --type found --location "central station" --image found-keys.jpg --description "silver keychain with three keys"
  otoshimono report --type lost --location "north exit" --image my-keys.jpg --output json
  otoshimono items --type found
  otoshimono items --q keychain
  otoshimono items FOUND-KEYS-AB12CD34
  otoshimono status --output json`)
}
