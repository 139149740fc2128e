package web

import (
	"context"
	"net/http"
	"time"

	"sheet-agent/config"
	"sheet-agent/web/handlers"
	"sheet-agent/web/middleware"
	"sheet-agent/web/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router  *gin.Engine
	agent   services.Answerer
	store   *services.SessionStore
	limiter *middleware.SessionRateLimiter
	logger  *zap.Logger
	config  *config.Config
}

func NewServer(agent services.Answerer, store *services.SessionStore, logger *zap.Logger, config *config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.MaxMultipartMemory = config.MaxUploadBytes() + 1<<20

	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		c.Set("logger", logger)
		start := time.Now()
		c.Next()
		logger.Debug("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	})

	server := &Server{
		router: router,
		agent:  agent,
		store:  store,
		limiter: middleware.NewSessionRateLimiter(middleware.RateLimiterConfig{
			QuestionsPerMinute: config.RateLimitQuestionsPerMin,
			FilesPerHour:       config.RateLimitFilesPerHour,
			BurstSize:          config.RateLimitBurstSize,
			CleanupInterval:    10 * time.Minute,
			IdleTTL:            time.Hour,
		}, logger),
		logger: logger,
		config: config,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	uploads := services.NewUploadService(s.config.MaxUploadBytes(), s.logger)
	h := handlers.NewAnalysisHandler(s.agent, uploads, s.store, s.config.PreviewRows, s.logger)

	s.router.GET("/healthz", h.Healthz)

	app := s.router.Group("/")
	app.Use(middleware.SessionMiddleware(s.store))
	app.GET("/", h.Index)
	app.POST("/upload", middleware.RateLimitMiddleware(s.limiter, middleware.LimitFile), h.Upload)
	app.POST("/sheet", h.SelectSheet)
	app.POST("/ask", middleware.RateLimitMiddleware(s.limiter, middleware.LimitQuestion), h.Ask)
	app.POST("/reset", h.Reset)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.limiter.Stop()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down web server")
	s.limiter.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
