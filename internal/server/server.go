package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"reddot-watch/newswire/internal/models"
	"reddot-watch/newswire/internal/process"
	"reddot-watch/newswire/internal/server/api"
	"reddot-watch/newswire/internal/sources"
)

// Options holds the server's dependencies.
type Options struct {
	Processor *process.NewsProcessor
	Gatherer  prometheus.Gatherer // Serves /metrics when set
	APIKey    string
	Logger    zerolog.Logger
}

// apiKeyMiddleware checks for the X-API-Key header and validates it against the provided key.
// If key is empty, it allows all requests.
func apiKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			reqApiKey := r.Header.Get("X-API-Key")
			if reqApiKey == "" {
				http.Error(w, "API key required", http.StatusUnauthorized)
				return
			}

			if reqApiKey != apiKey {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// accessLogMiddleware sets up request-scoped logging and logs one line per request.
func accessLogMiddleware(logger zerolog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		hlog.NewHandler(logger),
		hlog.RequestIDHandler("req_id", "Request-Id"),
		hlog.MethodHandler("method"),
		hlog.URLHandler("url"),
		hlog.RemoteAddrHandler("remote_addr"),
		hlog.UserAgentHandler("user_agent"),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("HTTP Request")
		}),
	}
}

// NewRouter builds the HTTP handler. The returned refresher owns background
// cache revalidation and must be waited on at shutdown.
func NewRouter(opts Options) (http.Handler, *api.BackgroundRefresher) {
	refresher := api.NewBackgroundRefresher(opts.Processor)
	newsHandler := api.NewNewsHandler(opts.Processor, refresher)

	r := chi.NewRouter()
	r.Use(accessLogMiddleware(opts.Logger)...)
	if opts.APIKey != "" {
		r.Use(apiKeyMiddleware(opts.APIKey))
	}

	r.Get("/health", healthCheckHandler)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/news", newsHandler.GetNews)
		r.Post("/news/refresh", newsHandler.RefreshNews)
		r.Post("/news/enrich", newsHandler.EnrichNews)
		r.Get("/sources", exportSourcesHandler(opts.Processor.Sources()))
	})
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return r, refresher
}

// RunServer starts the HTTP server with graceful shutdown support.
// It warms the news cache in the background and handles OS signals for clean termination.
func RunServer(opts Options, listenAddr string) error {
	// Add service identifier to the logger
	opts.Logger = opts.Logger.With().Str("service", "newswire-api").Logger()
	logger := opts.Logger

	if opts.Processor == nil {
		return errors.New("news processor cannot be nil")
	}

	h, refresher := NewRouter(opts)
	if opts.APIKey != "" {
		logger.Info().Msg("API key authentication enabled")
	} else {
		logger.Info().Msg("API key authentication disabled")
	}

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second, // Cold requests wait for a full fetch
		IdleTimeout:       120 * time.Second,
	}

	refresher.Revalidate(context.Background())

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", listenAddr).Msg("API Server starting")
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Error().Err(err).Msg("Server failed to start")
		return err

	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
			if err := httpServer.Close(); err != nil {
				logger.Error().Err(err).Msg("HTTP server force close error")
			}
		} else {
			logger.Info().Msg("HTTP server shutdown complete.")
		}
		if err := <-serverErr; err != nil {
			logger.Error().Err(err).Msg("ListenAndServe error during shutdown")
		}
	}

	refresher.Wait()
	opts.Processor.Wait()
	logger.Info().Msg("Server exiting.")
	return nil
}

// healthCheckHandler responds to health check requests with a simple 200 OK.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error().Err(err).Msg("Error writing health check response")
	}
}

// exportSourcesHandler returns a handler function that exports the configured sources as a CSV file
func exportSourcesHandler(feedSources []models.FeedSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := hlog.FromRequest(r)

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=sources.csv")

		if err := sources.WriteCSV(w, feedSources); err != nil {
			log.Error().Err(err).Msg("Error writing sources CSV")
			return
		}

		log.Info().Int("source_count", len(feedSources)).Msg("Exported sources as CSV")
	}
}
