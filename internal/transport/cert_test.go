package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lokiship/lokiship/internal/config"
)

func TestCheckCert_PlainHTTP(t *testing.T) {
	if cs := CheckCert(context.Background(), config.LokiConfig{Endpoint: "http://localhost:3100/loki/api/v1/push"}); cs != nil {
		t.Errorf("expected nil for http endpoint, got %+v", cs)
	}
}

func TestCheckCert_SelfSigned(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	strict := CheckCert(context.Background(), config.LokiConfig{Endpoint: srv.URL + "/loki/api/v1/push"})
	if strict == nil || strict.Status != CertUnreachable {
		t.Fatalf("strict check: got %+v, want unreachable", strict)
	}

	lax := CheckCert(context.Background(), config.LokiConfig{
		Endpoint: srv.URL + "/loki/api/v1/push",
		TLS:      config.TLSConfig{InsecureSkipVerify: true},
	})
	if lax == nil {
		t.Fatal("expected a status for https endpoint")
	}
	// httptest certificates are valid until 2084.
	if lax.Status != CertValid {
		t.Errorf("status: got %q, want %q", lax.Status, CertValid)
	}
	if lax.NotAfter.IsZero() || lax.Left <= 0 {
		t.Errorf("expiry not populated: %+v", lax)
	}
}

func TestCheckCert_Unreachable(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	cs := CheckCert(context.Background(), config.LokiConfig{Endpoint: url, TLS: config.TLSConfig{InsecureSkipVerify: true}})
	if cs == nil || cs.Status != CertUnreachable {
		t.Errorf("got %+v, want unreachable", cs)
	}
}
