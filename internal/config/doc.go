// Package config loads and watches the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{Loki, Filter, Input, Metrics}: full tree parsed from YAML
//   - LokiConfig: endpoint, tenant_id, format, compression, timeout,
//     batch_size, labels, instance_label, auth, tls
//   - AuthConfig: mode (mtls|apikey|bearer|basic|none), cert/key/ca files,
//     header, key_env, token_env, username, password_env; Key(), Token() and
//     Password() resolve secrets from environment variables
//   - FilterConfig: default level, per-module levels, optional env variable
//     holding a directive string
//   - InputConfig, MetricsConfig: stdin reader and /metrics listener
//
// Load(path) reads the YAML file, applies defaults (json format, 10s timeout,
// batch size 1, info level, "module" key, 1 MiB lines), then validates
// required fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify on the file's directory so that
// editors which save via rename keep triggering reloads. The agent only
// hot-reloads the severity filter; the pipeline itself is fixed at startup.
package config
