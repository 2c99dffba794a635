package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"aktis-collector-monday/internal/common"
	"aktis-collector-monday/internal/handlers"
	"aktis-collector-monday/internal/interfaces"
	"aktis-collector-monday/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/ternarybob/arbor"
)

// webServer exposes status, run history, on-demand exports, ticket metrics
// and the live run-event stream
type webServer struct {
	config      *common.Config
	pipeline    *Pipeline
	storage     interfaces.RunStore
	server      *http.Server
	logger      arbor.ILogger
	apiHandlers *handlers.APIHandlers
	wsHub       *handlers.WebSocketHub
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.RWMutex
	running     bool
	startTime   time.Time
}

// NewWebServer creates a new web server instance. Run events of pipeline are
// broadcast to websocket clients.
func NewWebServer(cfg *common.Config, pipeline *Pipeline, storage interfaces.RunStore, logger arbor.ILogger) (interfaces.WebService, error) {
	wsHub := handlers.NewWebSocketHub(logger)
	pipeline.WithEvents(wsHub)

	apiHandlers := handlers.NewAPIHandlers(cfg, pipeline, storage, NewTicketMetrics(cfg.Metrics.ClosedStates), logger)

	ws := &webServer{
		config:      cfg,
		pipeline:    pipeline,
		storage:     storage,
		logger:      logger,
		apiHandlers: apiHandlers,
		wsHub:       wsHub,
	}
	ws.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Collector.Port),
		Handler:           ws.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return ws, nil
}

func (ws *webServer) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(ws.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(nil))

	r.Get("/health", ws.apiHandlers.HealthHandler)
	r.Get("/version", ws.apiHandlers.VersionHandler)
	r.Get("/status", ws.apiHandlers.StatusHandler)
	r.Get("/runs", ws.apiHandlers.RunsHandler)
	r.Post("/export", ws.apiHandlers.ExportHandler)

	perMinute := ws.config.Metrics.RateLimitPerMinute
	if perMinute > 0 {
		r.With(httprate.LimitByIP(perMinute, time.Minute)).Get("/metrics", ws.apiHandlers.MetricsHandler)
	} else {
		r.Get("/metrics", ws.apiHandlers.MetricsHandler)
	}

	r.Get("/ws", ws.wsHub.WebSocketHandler)

	return r
}

// Handler returns the router, used by tests
func (ws *webServer) Handler() http.Handler {
	return ws.server.Handler
}

// Start starts listening and, when export_interval is set, the export ticker
func (ws *webServer) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	ws.mu.Lock()
	ws.running = true
	ws.startTime = time.Now()
	ws.cancel = cancel
	ws.mu.Unlock()

	go func() {
		ws.logger.Info().Int("port", ws.config.Collector.Port).Msg("Starting web server")
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.logger.Error().Err(err).Msg("Web server error")
		}
	}()

	if interval := ws.config.Collector.ExportInterval; interval > 0 {
		ws.wg.Add(1)
		go ws.scheduleExports(runCtx, time.Duration(interval)*time.Minute)
	}

	return nil
}

func (ws *webServer) scheduleExports(ctx context.Context, interval time.Duration) {
	defer ws.wg.Done()

	ws.logger.Info().Dur("interval", interval).Msg("Scheduled exports enabled")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := ws.pipeline.Run(ctx); err != nil {
				ws.logger.Warn().Err(err).Msg("Scheduled export failed")
			}
			ws.cleanupLedger()
		}
	}
}

func (ws *webServer) cleanupLedger() {
	if ws.storage == nil {
		return
	}
	removed, err := ws.storage.CleanupOldRuns(ws.config.Storage.RetentionDays)
	if err != nil {
		ws.logger.Warn().Err(err).Msg("Run ledger cleanup failed")
		return
	}
	if removed > 0 {
		ws.logger.Info().Int("removed", removed).Msg("Removed old runs from ledger")
	}
}

// Stop stops the web server
func (ws *webServer) Stop() error {
	ws.mu.Lock()
	ws.running = false
	cancel := ws.cancel
	ws.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	ws.logger.Info().Msg("Shutting down web server")
	err := ws.server.Shutdown(ctx)
	ws.wsHub.Stop()
	ws.wg.Wait()
	return err
}

// IsRunning returns true if the web server is running
func (ws *webServer) IsRunning() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.running
}
