// Package filter decides whether a log occurrence passes the severity
// threshold before it is handed to the pipeline.
//
// A Filter holds a default threshold plus per-module overrides. The most
// specific module prefix wins. Directive strings use the familiar
// "warn,db=debug,http=off" syntax; FromEnv reads such a string from an
// environment variable and is the only place the environment is consulted.
//
// Filters are immutable after construction. Callers that hot-reload swap the
// whole *Filter.
package filter
