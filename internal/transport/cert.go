package transport

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"time"

	"github.com/lokiship/lokiship/internal/config"
)

// ExpiryWarning is how close to NotAfter a certificate counts as expiring.
const ExpiryWarning = 30 * 24 * time.Hour

// Certificate states reported by CheckCert.
const (
	CertValid       = "valid"
	CertExpiring    = "expiring"
	CertExpired     = "expired"
	CertUnreachable = "unreachable"
)

// CertStatus describes the leaf certificate presented by the push endpoint.
type CertStatus struct {
	Endpoint string
	Status   string
	Issuer   string
	NotAfter time.Time
	Left     time.Duration
}

// CheckCert dials the endpoint in cfg and inspects its TLS certificate.
// Returns nil for plain-HTTP endpoints. Verification follows
// cfg.TLS.InsecureSkipVerify, so a self-signed endpoint that the pipeline
// would reject reports unreachable.
func CheckCert(ctx context.Context, cfg config.LokiConfig) *CertStatus {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme != "https" {
		return nil
	}

	cs := &CertStatus{Endpoint: cfg.Endpoint, Status: CertUnreachable}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	tlsCfg, err := tlsConfig(cfg)
	if err != nil {
		return cs
	}
	tlsCfg.ServerName = u.Hostname()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	dialer := &tls.Dialer{NetDialer: &net.Dialer{}, Config: tlsCfg}
	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		return cs
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		return cs
	}

	leaf := peerCerts[0]
	cs.NotAfter = leaf.NotAfter.UTC()
	cs.Issuer = leaf.Issuer.CommonName
	cs.Left = time.Until(leaf.NotAfter)

	switch {
	case cs.Left <= 0:
		cs.Status = CertExpired
	case cs.Left <= ExpiryWarning:
		cs.Status = CertExpiring
	default:
		cs.Status = CertValid
	}
	return cs
}
