package encoding

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/valyala/fastjson"

	"github.com/lokiship/lokiship/pkg/types"
)

type jsonEncoder struct {
	gzip bool
}

// Body shape of POST /loki/api/v1/push. Each value is a [ts, line] or
// [ts, line, metadata] tuple.
type jsonPush struct {
	Streams []jsonStream `json:"streams"`
}

type jsonStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]any           `json:"values"`
}

func (e *jsonEncoder) Encode(req *PushRequest) (*Payload, error) {
	push := jsonPush{Streams: make([]jsonStream, 0, len(req.Streams))}
	for _, s := range req.Streams {
		labels := make(map[string]string, len(s.Labels))
		for k, v := range s.Labels {
			labels[validUTF8(k)] = validUTF8(v)
		}

		values := make([][]any, 0, len(s.Entries))
		for _, en := range s.Entries {
			tuple := []any{strconv.FormatInt(en.Timestamp.UnixNano(), 10), validUTF8(en.Line)}
			if len(en.Metadata) > 0 {
				md := make(map[string]string, len(en.Metadata))
				for k, v := range en.Metadata {
					md[validUTF8(k)] = validUTF8(v)
				}
				tuple = append(tuple, md)
			}
			values = append(values, tuple)
		}
		push.Streams = append(push.Streams, jsonStream{Stream: labels, Values: values})
	}

	// Map keys are emitted sorted, so bodies are deterministic.
	body, err := json.MarshalNoEscape(push)
	if err != nil {
		return nil, fmt.Errorf("encoding: marshal json: %w", err)
	}

	p := &Payload{Body: body, ContentType: ContentTypeJSON}
	if e.gzip {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return nil, fmt.Errorf("encoding: gzip: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("encoding: gzip: %w", err)
		}
		p.Body = buf.Bytes()
		p.ContentEncoding = CompressionGzip
	}
	return p, nil
}

// validUTF8 replaces invalid byte sequences with U+FFFD. Loki stores lines
// as UTF-8 and JSON strings cannot carry raw bytes.
func validUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "\uFFFD")
}

func decodeJSON(body []byte, gzipped bool) (*PushRequest, error) {
	if gzipped {
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("encoding: gunzip: %w", err)
		}
		defer zr.Close()
		if body, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("encoding: gunzip: %w", err)
		}
	}

	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("encoding: parse json: %w", err)
	}

	req := &PushRequest{}
	for i, sv := range v.GetArray("streams") {
		labels, err := stringMap(sv.Get("stream"))
		if err != nil {
			return nil, fmt.Errorf("encoding: streams[%d].stream: %w", i, err)
		}
		s := Stream{Labels: types.Labels(labels)}
		for j, tv := range sv.GetArray("values") {
			en, err := decodeJSONEntry(tv)
			if err != nil {
				return nil, fmt.Errorf("encoding: streams[%d].values[%d]: %w", i, j, err)
			}
			s.Entries = append(s.Entries, en)
		}
		req.Streams = append(req.Streams, s)
	}
	return req, nil
}

func decodeJSONEntry(v *fastjson.Value) (Entry, error) {
	tuple, err := v.Array()
	if err != nil {
		return Entry{}, err
	}
	if len(tuple) < 2 || len(tuple) > 3 {
		return Entry{}, fmt.Errorf("want 2 or 3 elements, got %d", len(tuple))
	}
	tsRaw, err := tuple[0].StringBytes()
	if err != nil {
		return Entry{}, fmt.Errorf("timestamp: %w", err)
	}
	ns, err := strconv.ParseInt(string(tsRaw), 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("timestamp: %w", err)
	}
	line, err := tuple[1].StringBytes()
	if err != nil {
		return Entry{}, fmt.Errorf("line: %w", err)
	}
	en := Entry{Timestamp: time.Unix(0, ns), Line: string(line)}
	if len(tuple) == 3 {
		if en.Metadata, err = stringMap(tuple[2]); err != nil {
			return Entry{}, fmt.Errorf("metadata: %w", err)
		}
	}
	return en, nil
}

func stringMap(v *fastjson.Value) (map[string]string, error) {
	if v == nil {
		return map[string]string{}, nil
	}
	obj, err := v.Object()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, obj.Len())
	var visitErr error
	obj.Visit(func(key []byte, val *fastjson.Value) {
		s, err := val.StringBytes()
		if err != nil && visitErr == nil {
			visitErr = fmt.Errorf("key %q: %w", key, err)
			return
		}
		out[string(key)] = string(s)
	})
	return out, visitErr
}
