// Package apihttp serves the latest ranking result, ad-hoc ranking runs and metrics over HTTP.
package apihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sigrank/internal/logger"
	"sigrank/internal/pipeline"
	"sigrank/internal/store"
	"sigrank/internal/telemetry"

	"github.com/gin-gonic/gin"
)

const defaultAddr = ":9992"

type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig lists the server dependencies. Engine and Store are optional; the routes that
// need them answer 503 when they are missing.
type ServerConfig struct {
	Addr    string
	State   *State
	Engine  *pipeline.Engine
	Store   store.Store
	Metrics *telemetry.Metrics
	// MaxBody caps the POST /api/rank payload in bytes.
	MaxBody int64
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.State == nil {
		return nil, errors.New("http server requires a result state")
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		res, ok := cfg.State.Get()
		body := gin.H{"status": "ok", "has_result": ok}
		if ok {
			body["run_id"] = res.RunID
			body["as_of"] = res.AsOf
		}
		c.JSON(http.StatusOK, body)
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	NewRouter(cfg).Register(router.Group("/api"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("http server listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
