// Package lokilog ships log records to Grafana Loki without blocking the
// goroutine that logs them.
//
// A Builder collects static labels, the severity filter and the wire
// settings, and Build starts one background dispatcher:
//
//	logger, closer, err := lokilog.NewBuilder().
//		Label("app", "checkout").
//		FilterLevel(filter.Info).
//		FilterModule("db", filter.Debug).
//		Build("http://localhost:3100/loki/api/v1/push")
//	if err != nil {
//		return err
//	}
//	defer closer.Shutdown()
//	slog.New(logger).Info("server started", "port", 8080)
//
// Logger is a slog.Handler. Every enabled record becomes one Loki entry in
// the stream {<static labels>, level="<severity>"}; record attributes travel
// as structured metadata. Shutdown flushes everything logged before it and
// may be called any number of times from any goroutine.
package lokilog
