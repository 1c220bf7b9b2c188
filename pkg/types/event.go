package types

import "time"

// Event is one captured log occurrence.
//
// The timestamp is taken once when the event is created and never
// recomputed, so delivery latency does not skew it. Metadata holds
// per-entry key/values; keys are unique.
type Event struct {
	Level     Level
	Timestamp time.Time
	Metadata  map[string]string
	Message   string
}

// NewEvent captures an event at the current time. The metadata map is
// copied so the caller may keep mutating its own map.
func NewEvent(level Level, message string, metadata map[string]string) *Event {
	return NewEventAt(time.Now(), level, message, metadata)
}

// NewEventAt is NewEvent with an explicit timestamp, for producers that
// already know when the occurrence happened.
func NewEventAt(ts time.Time, level Level, message string, metadata map[string]string) *Event {
	var md map[string]string
	if len(metadata) > 0 {
		md = make(map[string]string, len(metadata))
		for k, v := range metadata {
			md[k] = v
		}
	}
	return &Event{
		Level:     level,
		Timestamp: ts,
		Metadata:  md,
		Message:   message,
	}
}

// MetadataFromPairs folds alternating key/value strings into a map.
// A repeated key keeps the last value; a trailing key without a value is
// stored with an empty value.
func MetadataFromPairs(kv ...string) map[string]string {
	if len(kv) == 0 {
		return nil
	}
	md := make(map[string]string, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			md[kv[i]] = kv[i+1]
		} else {
			md[kv[i]] = ""
		}
	}
	return md
}
