// Package metrics renders pipeline counters in the Prometheus text
// exposition format.
//
// Families(stats, labels) builds one dto.MetricFamily per counter:
//
//	lokiship_events_submitted_total  counter  accepted by the queue
//	lokiship_events_dropped_total    counter  discarded after shutdown
//	lokiship_events_delivered_total  counter  acknowledged by Loki
//	lokiship_events_failed_total     counter  lost to failed pushes
//	lokiship_requests_total          counter  push requests issued
//	lokiship_queue_depth             gauge    events waiting right now
//
// Write encodes them with expfmt for the /metrics handler.
package metrics
