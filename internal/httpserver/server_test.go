package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lokiship/lokiship/internal/metrics"
	"github.com/lokiship/lokiship/internal/shipper"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedSource shipper.Stats

func (f fixedSource) Stats() shipper.Stats { return shipper.Stats(f) }

func newTestServer() *Server {
	return NewServer("", fixedSource{Submitted: 4, Delivered: 3, Failed: 1, Requests: 4}, map[string]string{"app": "api"})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestServer().Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Status string           `json:"status"`
		Uptime string           `json:"uptime"`
		Stats  map[string]int64 `json:"stats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if body.Stats["delivered"] != 3 || body.Stats["failed"] != 1 {
		t.Errorf("stats = %v", body.Stats)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestServer().Handler()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != metrics.ContentType {
		t.Errorf("content type = %q, want %q", ct, metrics.ContentType)
	}
	body := w.Body.String()
	for _, want := range []string{
		`lokiship_events_delivered_total{app="api"} 3`,
		`lokiship_events_failed_total{app="api"} 1`,
		"# TYPE lokiship_queue_depth gauge",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestHealthEndpoint_WrongMethod(t *testing.T) {
	r := newTestServer().Handler()

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("health POST status = %d, want 405 or 404", w.Code)
	}
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	srv := NewServer(addr, fixedSource{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
