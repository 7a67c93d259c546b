package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/otoshimono/otoshimono/internal/embedding"
	"github.com/otoshimono/otoshimono/internal/models"
	"github.com/otoshimono/otoshimono/internal/storage"
	"github.com/otoshimono/otoshimono/internal/vector"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var report models.Report
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := report.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("report request",
		zap.String("report_type", report.ReportType),
		zap.String("category", report.Category),
		zap.String("location", report.Location),
	)
	resp, err := s.engine.HandleReport(r.Context(), &report)
	if err != nil {
		switch {
		case errors.Is(err, embedding.ErrInvalidImage):
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, vector.ErrIntegrity):
			s.logger.Error("report refused, index integrity failure", zap.Error(err))
			s.respondError(w, http.StatusServiceUnavailable, "matching temporarily unavailable")
		default:
			s.logger.Error("report handling failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := s.store.GetItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "item not found")
			return
		}
		s.logger.Error("get item failed", zap.String("item_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	reportType := r.URL.Query().Get("type")
	if reportType != "" && reportType != models.ReportTypeLost && reportType != models.ReportTypeFound {
		s.respondError(w, http.StatusBadRequest, `type must be "lost" or "found"`)
		return
	}
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	items, err := s.store.ListItems(r.Context(), reportType, offset, limit)
	if err != nil {
		s.logger.Error("list items failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []*models.Item{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"offset": offset,
		"limit":  limit,
	})
}

func (s *Server) handleItemSearch(w http.ResponseWriter, r *http.Request) {
	if s.keywordIndex == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword search not enabled")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := queryInt(r, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	s.logger.Debug("item search request", zap.String("query", query), zap.Int("limit", limit))
	results, err := s.keywordIndex.Search(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("item search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Resolve hits against the metadata store; an id indexed but since
	// missing from the store is dropped.
	items := make([]*models.Item, 0, len(results))
	for _, res := range results {
		item, err := s.store.GetItem(r.Context(), res.ItemID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.logger.Warn("search hit missing from store", zap.String("item_id", res.ItemID))
				continue
			}
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		items = append(items, item)
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query": query,
		"items": items,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemCount, err := s.store.CountItems(ctx)
	if err != nil {
		s.logger.Error("status: count items failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	params := s.engine.Params()
	resp := map[string]interface{}{
		"items":             itemCount,
		"vector_index_size": s.engine.IndexSize(),
		"matching_degraded": s.engine.Poisoned(),
	}

	configInfo := map[string]interface{}{
		"embedding_dimensions": s.config.Services.Dimensions,
		"image_weight":         params.ImageWeight,
		"text_weight":          params.TextWeight,
		"top_k":                params.TopK,
		"min_score":            params.MinScore,
		"database_path":        s.config.Storage.DatabasePath,
		"bleve_index_path":     s.config.Storage.BleveIndexPath,
		"vectors_path":         s.config.Storage.VectorsPath,
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.BleveIndexPath,
		s.config.Storage.VectorsPath,
		s.config.Storage.IDsPath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
