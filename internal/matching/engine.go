package matching

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/otoshimono/otoshimono/internal/embedding"
	"github.com/otoshimono/otoshimono/internal/fusion"
	"github.com/otoshimono/otoshimono/internal/itemid"
	"github.com/otoshimono/otoshimono/internal/keyword"
	"github.com/otoshimono/otoshimono/internal/models"
	"github.com/otoshimono/otoshimono/internal/storage"
	"github.com/otoshimono/otoshimono/internal/vector"
	"github.com/otoshimono/otoshimono/internal/vision"
)

// DefaultTopK is the number of candidates retrieved per lost-report search.
const DefaultTopK = 5

// Params are the tunable matching parameters. They can be updated at runtime
// (config hot reload) without restarting the engine.
type Params struct {
	ImageWeight       float64
	TextWeight        float64
	MinDescriptionLen int
	TopK              int
	MinScore          float64
}

// ApplyDefaults fills zero values with the defaults.
func (p *Params) ApplyDefaults() {
	if p.ImageWeight == 0 && p.TextWeight == 0 {
		p.ImageWeight = fusion.DefaultImageWeight
		p.TextWeight = fusion.DefaultTextWeight
	}
	if p.MinDescriptionLen == 0 {
		p.MinDescriptionLen = fusion.DefaultMinDescriptionLen
	}
	if p.TopK == 0 {
		p.TopK = DefaultTopK
	}
	if p.MinScore == 0 {
		p.MinScore = DefaultMinScore
	}
}

// Engine sequences one report through fusion, search, ranking, persistence,
// and index insertion. The search for a lost report runs strictly before the
// report's own vector is inserted, so an item can never match itself; the
// metadata write happens strictly before the vector insert, so a failed
// persistence never leaves an orphan vector.
type Engine struct {
	store        storage.Store
	embedder     embedding.Embedder
	index        vector.VectorIndex
	tagger       vision.Tagger
	keywordIndex keyword.ItemIndex
	ranker       *Ranker
	logger       *zap.Logger

	paramsMu sync.RWMutex
	params   Params

	poisonMu sync.RWMutex
	poisoned bool
}

// NewEngine creates a matching engine. tagger and keywordIndex may be nil;
// item annotation and keyword browse indexing are then skipped.
func NewEngine(
	store storage.Store,
	embedder embedding.Embedder,
	index vector.VectorIndex,
	tagger vision.Tagger,
	keywordIndex keyword.ItemIndex,
	params Params,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	params.ApplyDefaults()
	return &Engine{
		store:        store,
		embedder:     embedder,
		index:        index,
		tagger:       tagger,
		keywordIndex: keywordIndex,
		ranker:       NewRanker(logger),
		logger:       logger,
		params:       params,
	}
}

// UpdateParams replaces the matching parameters (config hot reload).
func (e *Engine) UpdateParams(params Params) {
	params.ApplyDefaults()
	e.paramsMu.Lock()
	e.params = params
	e.paramsMu.Unlock()
	e.logger.Info("matching parameters updated",
		zap.Float64("image_weight", params.ImageWeight),
		zap.Float64("text_weight", params.TextWeight),
		zap.Int("top_k", params.TopK),
		zap.Float64("min_score", params.MinScore),
	)
}

// Params returns the current matching parameters.
func (e *Engine) Params() Params {
	e.paramsMu.RLock()
	defer e.paramsMu.RUnlock()
	return e.params
}

// MarkPoisoned takes the matching path out of service after an integrity
// failure. There is no way back except a restart with repaired artifacts.
func (e *Engine) MarkPoisoned() {
	e.poisonMu.Lock()
	e.poisoned = true
	e.poisonMu.Unlock()
}

// Poisoned reports whether the matching path refuses service.
func (e *Engine) Poisoned() bool {
	e.poisonMu.RLock()
	defer e.poisonMu.RUnlock()
	return e.poisoned
}

// IndexSize returns the number of entries in the vector index.
func (e *Engine) IndexSize() int {
	return e.index.Size()
}

// HandleReport processes one lost/found report end to end and returns the
// response for the HTTP layer. For lost reports the response carries matches
// against previously stored found items; found reports perform no search.
func (e *Engine) HandleReport(ctx context.Context, report *models.Report) (*models.ReportResponse, error) {
	if err := report.Validate(); err != nil {
		return nil, err
	}
	if e.Poisoned() {
		return nil, fmt.Errorf("%w: matching is out of service", vector.ErrIntegrity)
	}
	params := e.Params()

	id := itemid.New(report.ReportType, report.Category)

	imageVec, err := e.embedder.EmbedImage(ctx, report.ImageSource)
	if err != nil {
		return nil, fmt.Errorf("embed image: %w", err)
	}
	textPrompt := fmt.Sprintf("a photo of %s at %s", report.Description, report.Location)
	textVec, err := e.embedder.EmbedText(ctx, textPrompt)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	policy := fusion.NewPolicy(params.ImageWeight, params.TextWeight, params.MinDescriptionLen)
	queryVec := policy.Fuse(imageVec, textVec, report.Description)

	// Search before this report's own vector exists in the index.
	var matches []*models.Match
	if report.ReportType == models.ReportTypeLost {
		hits, err := e.index.Search(ctx, queryVec, params.TopK)
		if err != nil {
			return nil, fmt.Errorf("search index: %w", err)
		}
		var skipped []SkippedHit
		matches, skipped = e.ranker.Rank(HitsFromIndex(hits), report.ReportType, params.MinScore)
		for _, s := range skipped {
			e.logger.Warn("hit skipped during ranking",
				zap.String("item_id", s.ItemID), zap.String("reason", s.Reason))
		}
	}

	item := &models.Item{
		ID:          id,
		ReportType:  report.ReportType,
		Category:    report.Category,
		Description: report.Description,
		Location:    report.Location,
		ImageSource: report.ImageSource,
	}
	if e.tagger != nil {
		ann, err := e.tagger.Analyze(ctx, report.ImageSource)
		if err != nil {
			// Annotations are metadata only; a vision failure never fails a report.
			e.logger.Warn("image annotation failed", zap.String("item_id", id), zap.Error(err))
		} else {
			item.Labels = ann.Labels
			item.Colors = ann.Colors
			item.DetectedText = ann.DetectedText
		}
	}

	// Metadata first, vector second: a failed store write must not leave an
	// orphan vector behind.
	if err := e.store.PutItem(ctx, item); err != nil {
		return nil, fmt.Errorf("persist item: %w", err)
	}
	if err := e.index.Insert(ctx, id, queryVec); err != nil {
		if errors.Is(err, vector.ErrIntegrity) {
			e.MarkPoisoned()
		}
		return nil, fmt.Errorf("insert vector: %w", err)
	}

	if e.keywordIndex != nil {
		if err := e.keywordIndex.Index(ctx, item); err != nil {
			e.logger.Warn("keyword indexing failed", zap.String("item_id", id), zap.Error(err))
		}
	}

	resp := &models.ReportResponse{
		Status: "success",
		ItemID: id,
	}
	if report.ReportType == models.ReportTypeLost {
		resp.Message = "Lost item reported successfully"
		resp.Matches = matches
	} else {
		resp.Message = "Found item reported successfully"
	}
	e.logger.Info("report processed",
		zap.String("item_id", id),
		zap.String("report_type", report.ReportType),
		zap.Int("matches", len(matches)),
	)
	return resp, nil
}
