// Package transport builds the HTTP client used to push to Loki.
//
// NewClient(cfg) honours cfg.Timeout and cfg.Auth:
//   - mtls    client certificate plus optional CA bundle
//   - apikey  arbitrary header carrying a key read from the environment
//   - bearer  Authorization: Bearer <token>
//   - basic   HTTP basic auth with a password read from the environment
//
// Every request also carries a User-Agent naming the agent build.
//
// CheckCert probes an https endpoint once at startup and reports whether its
// leaf certificate is valid, expiring within 30 days, expired or unreachable.
package transport
