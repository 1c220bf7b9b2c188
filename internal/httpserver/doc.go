// Package httpserver exposes the agent's own health and counters over HTTP.
//
//	GET /metrics  Prometheus text exposition of the pipeline counters
//	GET /healthz  {"status":"ok","uptime":...,"stats":{...}}
//
// The listener is optional and only started when metrics.listen is set.
package httpserver
