package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/lokiship/lokiship/internal/config"
	"github.com/lokiship/lokiship/internal/encoding"
	"github.com/lokiship/lokiship/internal/logsource"
	"github.com/lokiship/lokiship/pkg/types"
)

func TestBuild_ShipsParsedLines(t *testing.T) {
	var (
		mu      sync.Mutex
		streams []encoding.Stream
		agents  []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		req, err := encoding.Decode(r.Header.Get("Content-Type"), r.Header.Get("Content-Encoding"), body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		streams = append(streams, req.Streams...)
		agents = append(agents, r.Header.Get("User-Agent"))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg, err := config.Parse([]byte(`
loki:
  endpoint: "` + srv.URL + `/loki/api/v1/push"
  format: protobuf
  labels:
    app: agent-test
  instance_label: true
filter:
  level: info
  modules:
    noisy: error
`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	handler, closer, err := build(cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	p := logsource.NewParser(cfg.Input.ModuleKey)
	for _, line := range []string{
		`{"level":"info","msg":"kept","module":"api"}`,
		`{"level":"warn","msg":"filtered","module":"noisy"}`,
		`plain text line`,
	} {
		l := p.Parse(line)
		handler.LogEvent(l.Module, l.Event)
	}
	closer.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	var lines []string
	for _, s := range streams {
		if s.Labels["app"] != "agent-test" || s.Labels["instance"] == "" {
			t.Errorf("labels: got %v", s.Labels)
		}
		if s.Labels[types.LevelLabel] != "info" {
			t.Errorf("level label: got %q", s.Labels[types.LevelLabel])
		}
		for _, e := range s.Entries {
			lines = append(lines, e.Line)
		}
	}
	if len(lines) != 2 || lines[0] != "kept" || lines[1] != "plain text line" {
		t.Errorf("lines: got %q", lines)
	}
	for _, ua := range agents {
		if ua != "lokiship/"+version {
			t.Errorf("User-Agent: got %q", ua)
		}
	}
}
