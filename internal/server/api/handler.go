package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/hlog"

	"reddot-watch/newswire/internal/models"
	"reddot-watch/newswire/internal/process"
	"reddot-watch/newswire/internal/server/pagination"
)

const defaultLimit = 50
const maxLimit = 500

// retryAfterSeconds is sent with 503 responses when no news is available.
const retryAfterSeconds = 30

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewsService is the news pipeline as seen by the HTTP layer.
type NewsService interface {
	GetCachedNews(ctx context.Context) *models.NewsCacheEntry
	IsFresh(entry *models.NewsCacheEntry) bool
	Refresh(ctx context.Context, onEnriched func([]models.NewsItem)) process.Result
	EnrichImages(ctx context.Context, items []models.NewsItem) []models.NewsItem
	StoreEnriched(ctx context.Context, enriched []models.NewsItem)
}

// NewsResponse is the body of GET /v1/news.
type NewsResponse struct {
	Items      []models.NewsItem `json:"items"`
	NextCursor *string           `json:"next_cursor,omitempty"`
	Total      int               `json:"total"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Fresh      bool              `json:"fresh"`
	Cached     bool              `json:"cached"`
}

// RefreshResponse is the body of POST /v1/news/refresh.
type RefreshResponse struct {
	RunID      string            `json:"run_id"`
	Items      []models.NewsItem `json:"items"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	DurationMS int64             `json:"duration_ms"`
}

// EnrichResponse is the body of POST /v1/news/enrich.
type EnrichResponse struct {
	Items    []models.NewsItem `json:"items"`
	Enriched int               `json:"enriched"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// NewsHandler serves the news endpoints.
type NewsHandler struct {
	news      NewsService
	refresher *BackgroundRefresher
}

// NewNewsHandler creates a new handler instance.
func NewNewsHandler(news NewsService, refresher *BackgroundRefresher) *NewsHandler {
	return &NewsHandler{
		news:      news,
		refresher: refresher,
	}
}

// GetNews serves the cached news list immediately and revalidates it in
// the background. Without a cache it fetches synchronously; when that
// yields nothing it responds 503.
func (h *NewsHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	ctx := r.Context()

	query := r.URL.Query()
	limitStr := query.Get("limit")
	cursorStr := query.Get("cursor")

	limit := defaultLimit
	if limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit <= 0 || parsedLimit > maxLimit {
			log.Warn().Err(err).Str("limit", limitStr).Msg("Invalid 'limit' parameter value")
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid 'limit' parameter: must be between 1 and %d", maxLimit), false)
			return
		}
		limit = parsedLimit
	}

	var after *pagination.Position
	if cursorStr != "" {
		pos, err := pagination.DecodeCursor(cursorStr)
		if err != nil {
			log.Warn().Err(err).Str("cursor", cursorStr).Msg("Invalid 'cursor' parameter")
			writeError(w, r, http.StatusBadRequest, "Invalid 'cursor' parameter", false)
			return
		}
		after = &pos
	}

	var (
		items     []models.NewsItem
		updatedAt time.Time
		fresh     bool
		cached    bool
	)

	if entry := h.news.GetCachedNews(ctx); entry != nil {
		items = entry.Items
		updatedAt = time.UnixMilli(entry.UpdatedAt).UTC()
		fresh = h.news.IsFresh(entry)
		cached = true

		started := h.refresher.Revalidate(ctx)
		log.Debug().
			Bool("fresh", fresh).
			Bool("revalidating", started).
			Msg("Serving cached news")
	} else {
		log.Info().Msg("No cached news, fetching")
		result := h.news.Refresh(ctx, h.refresher.StoreEnriched(ctx))
		if len(result.Items) == 0 {
			log.Warn().Int("failed", result.Failed).Msg("No news available")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
			writeError(w, r, http.StatusServiceUnavailable, "No news available right now, try again shortly", true)
			return
		}
		items = result.Items
		updatedAt = time.Now().UTC()
		fresh = true
	}

	page, next := pagination.Page(items, limit, after)

	response := NewsResponse{
		Items:     page,
		Total:     len(items),
		UpdatedAt: updatedAt,
		Fresh:     fresh,
		Cached:    cached,
	}
	if next != nil {
		cursor := pagination.EncodeCursor(*next)
		response.NextCursor = &cursor
	}

	writeJSON(w, r, http.StatusOK, response)
}

// RefreshNews runs a full fetch and returns its result.
func (h *NewsHandler) RefreshNews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result := h.news.Refresh(ctx, h.refresher.StoreEnriched(ctx))

	writeJSON(w, r, http.StatusOK, RefreshResponse{
		RunID:      result.RunID,
		Items:      result.Items,
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		DurationMS: result.Duration.Milliseconds(),
	})
}

// EnrichNews backfills images on the cached list and stores the result.
func (h *NewsHandler) EnrichNews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entry := h.news.GetCachedNews(ctx)
	if entry == nil {
		writeError(w, r, http.StatusNotFound, "No cached news to enrich", true)
		return
	}

	enriched := h.news.EnrichImages(ctx, entry.Items)
	h.news.StoreEnriched(ctx, enriched)

	added := 0
	for i := range enriched {
		if enriched[i].HasImage() && !entry.Items[i].HasImage() {
			added++
		}
	}

	writeJSON(w, r, http.StatusOK, EnrichResponse{Items: enriched, Enriched: added})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	log := hlog.FromRequest(r)

	jsonBytes, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling JSON response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(jsonBytes); err != nil {
		log.Error().Err(err).Msg("Error writing JSON response body to client")
		return
	}
	log.Debug().Int("bytes_written", len(jsonBytes)).Msg("Response completed")
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string, retryable bool) {
	writeJSON(w, r, status, ErrorResponse{Error: message, Retryable: retryable})
}
