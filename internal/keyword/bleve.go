package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/otoshimono/otoshimono/internal/models"
)

// BleveIndex implements ItemIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// bleveItem is the flattened document shape stored in Bleve. Labels are
// joined into one text field so a query like "red keychain" can match
// vision labels alongside the description.
type bleveItem struct {
	ItemID       string `json:"item_id"`
	ReportType   string `json:"report_type"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	Labels       string `json:"labels"`
	DetectedText string `json:"detected_text"`
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// opened and reused so items survive restarts without re-indexing.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so short item
	// descriptions match the literal words people type.
	textFieldMapping.Analyzer = standard.Name
	for _, field := range []string{"category", "description", "location", "labels", "detected_text"} {
		docMapping.AddFieldMappingsAt(field, textFieldMapping)
	}
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("item_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("report_type", keywordFieldMapping)
	im.AddDocumentMapping("item", docMapping)
	im.DefaultType = "item"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes an item by its id. Re-indexing the same id overwrites.
func (b *BleveIndex) Index(ctx context.Context, item *models.Item) error {
	return b.index.Index(item.ID, &bleveItem{
		ItemID:       item.ID,
		ReportType:   item.ReportType,
		Category:     item.Category,
		Description:  item.Description,
		Location:     item.Location,
		Labels:       strings.Join(item.Labels, " "),
		DetectedText: item.DetectedText,
	})
}

// Search runs a match query over the item text fields and returns up to
// limit results by descending Bleve score.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]*ItemResult, error) {
	if limit <= 0 {
		limit = 10
	}
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	results := make([]*ItemResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		results = append(results, &ItemResult{ItemID: hit.ID, Score: hit.Score})
	}
	return results, nil
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
