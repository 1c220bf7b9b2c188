// Package types defines the shared in-memory types of the log pipeline:
// severities, captured log events and label sets. They are independent of
// the wire encodings in internal/encoding.
//
// An Event is immutable once it has been submitted; ownership moves from the
// producer to the dispatcher goroutine with the hand-off.
package types
