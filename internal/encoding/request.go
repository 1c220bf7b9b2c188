package encoding

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lokiship/lokiship/pkg/types"
)

// Formats.
const (
	FormatJSON     = "json"
	FormatProtobuf = "protobuf"
)

// Compressions.
const (
	CompressionNone   = "none"
	CompressionGzip   = "gzip"
	CompressionSnappy = "snappy"
)

// Content types sent with each format.
const (
	ContentTypeJSON     = "application/json"
	ContentTypeProtobuf = "application/x-protobuf"
)

// ErrUnsupported is returned for unknown formats and for format/compression
// pairs Loki does not accept.
var ErrUnsupported = errors.New("encoding: unsupported format")

// PushRequest is the logical body of one push: one or more streams.
type PushRequest struct {
	Streams []Stream
}

// Stream is a run of entries sharing one label set.
type Stream struct {
	Labels  types.Labels
	Entries []Entry
}

// Entry is one log line with its timestamp and structured metadata.
type Entry struct {
	Timestamp time.Time
	Line      string
	Metadata  map[string]string
}

// EntryFromEvent copies the deliverable parts of ev.
func EntryFromEvent(ev *types.Event) Entry {
	return Entry{
		Timestamp: ev.Timestamp,
		Line:      ev.Message,
		Metadata:  ev.Metadata,
	}
}

// Payload is an encoded request body plus the headers describing it.
type Payload struct {
	Body            []byte
	ContentType     string
	ContentEncoding string
}

// Encoder produces request bodies. Implementations are used from the single
// dispatcher goroutine and need not be safe for concurrent use.
type Encoder interface {
	Encode(req *PushRequest) (*Payload, error)
}

// New returns the encoder for format and compression. An empty compression
// picks the format default: none for json, snappy for protobuf.
func New(format, compression string) (Encoder, error) {
	switch format {
	case FormatJSON, "":
		switch compression {
		case "", CompressionNone:
			return &jsonEncoder{}, nil
		case CompressionGzip:
			return &jsonEncoder{gzip: true}, nil
		}
	case FormatProtobuf:
		switch compression {
		case "", CompressionSnappy:
			return &protoEncoder{snappy: true}, nil
		case CompressionNone:
			return &protoEncoder{}, nil
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupported, format)
	}
	return nil, fmt.Errorf("%w: %s with %s compression", ErrUnsupported, format, compression)
}

// Decode parses a body produced by one of the encoders, selecting the
// format from its content type and content encoding.
func Decode(contentType, contentEncoding string, body []byte) (*PushRequest, error) {
	switch contentType {
	case ContentTypeJSON:
		return decodeJSON(body, contentEncoding == CompressionGzip)
	case ContentTypeProtobuf:
		return decodeProto(body, contentEncoding == CompressionSnappy)
	}
	return nil, fmt.Errorf("%w: content type %q", ErrUnsupported, contentType)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
