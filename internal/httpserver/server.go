package httpserver

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lokiship/lokiship/internal/metrics"
)

// Server serves /metrics and /healthz for one pipeline.
type Server struct {
	addr      string
	src       metrics.Source
	labels    map[string]string
	startTime time.Time
}

// NewServer creates a server for src. labels are attached to every sample.
func NewServer(addr string, src metrics.Source, labels map[string]string) *Server {
	return &Server{
		addr:      addr,
		src:       src,
		labels:    labels,
		startTime: time.Now(),
	}
}

// Handler returns the gin engine with all routes registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/metrics", s.handleMetrics)
	r.GET("/healthz", s.handleHealth)
	return r
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	slog.Info("httpserver: listening", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleMetrics(c *gin.Context) {
	var buf bytes.Buffer
	if err := metrics.Write(&buf, s.src, s.labels); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render metrics"})
		return
	}
	c.Data(http.StatusOK, metrics.ContentType, buf.Bytes())
}

func (s *Server) handleHealth(c *gin.Context) {
	st := s.src.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
		"stats": gin.H{
			"submitted": st.Submitted,
			"dropped":   st.Dropped,
			"delivered": st.Delivered,
			"failed":    st.Failed,
			"requests":  st.Requests,
			"queued":    st.Queued,
		},
	})
}
