package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/duynguyendang/kpextract/pkg/extract"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Server holds the state for the REST API server.
type Server struct {
	extractor extract.Extractor
	timeout   time.Duration
	router    *gin.Engine
}

// NewServer creates a new Server around a process-wide extractor. A non-zero
// timeout bounds each extraction call.
func NewServer(extractor extract.Extractor, timeout time.Duration) *Server {
	r := gin.New()
	r.Use(requestID(), accessLog(), gin.CustomRecovery(recoverPanic))
	s := &Server{
		extractor: extractor,
		timeout:   timeout,
		router:    r,
	}
	s.setupRoutes()
	return s
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.POST("/extract", s.handleExtract)
}

// Health check
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
