package encoding

import (
	"fmt"

	"github.com/klauspost/compress/snappy"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/lokiship/lokiship/pkg/types"
)

// Field numbers of logproto.PushRequest and its nested messages.
const (
	fieldPushStreams protowire.Number = 1

	fieldStreamLabels  protowire.Number = 1
	fieldStreamEntries protowire.Number = 2

	fieldEntryTimestamp protowire.Number = 1
	fieldEntryLine      protowire.Number = 2
	fieldEntryMetadata  protowire.Number = 3

	fieldPairName  protowire.Number = 1
	fieldPairValue protowire.Number = 2
)

type protoEncoder struct {
	snappy bool
	buf    []byte
}

func (e *protoEncoder) Encode(req *PushRequest) (*Payload, error) {
	b := e.buf[:0]
	var err error
	for _, s := range req.Streams {
		var sb []byte
		sb = protowire.AppendTag(sb, fieldStreamLabels, protowire.BytesType)
		sb = protowire.AppendString(sb, s.Labels.String())
		for _, en := range s.Entries {
			var eb []byte
			if eb, err = appendEntry(eb, en); err != nil {
				return nil, err
			}
			sb = protowire.AppendTag(sb, fieldStreamEntries, protowire.BytesType)
			sb = protowire.AppendBytes(sb, eb)
		}
		b = protowire.AppendTag(b, fieldPushStreams, protowire.BytesType)
		b = protowire.AppendBytes(b, sb)
	}
	e.buf = b

	p := &Payload{ContentType: ContentTypeProtobuf}
	if e.snappy {
		p.Body = snappy.Encode(nil, b)
		p.ContentEncoding = CompressionSnappy
	} else {
		p.Body = append([]byte(nil), b...)
	}
	return p, nil
}

func appendEntry(b []byte, en Entry) ([]byte, error) {
	ts, err := proto.Marshal(timestamppb.New(en.Timestamp))
	if err != nil {
		return nil, fmt.Errorf("encoding: marshal timestamp: %w", err)
	}
	b = protowire.AppendTag(b, fieldEntryTimestamp, protowire.BytesType)
	b = protowire.AppendBytes(b, ts)
	b = protowire.AppendTag(b, fieldEntryLine, protowire.BytesType)
	b = protowire.AppendString(b, en.Line)
	for _, k := range sortedKeys(en.Metadata) {
		var pb []byte
		pb = protowire.AppendTag(pb, fieldPairName, protowire.BytesType)
		pb = protowire.AppendString(pb, k)
		pb = protowire.AppendTag(pb, fieldPairValue, protowire.BytesType)
		pb = protowire.AppendString(pb, en.Metadata[k])
		b = protowire.AppendTag(b, fieldEntryMetadata, protowire.BytesType)
		b = protowire.AppendBytes(b, pb)
	}
	return b, nil
}

func decodeProto(body []byte, snappied bool) (*PushRequest, error) {
	if snappied {
		var err error
		if body, err = snappy.Decode(nil, body); err != nil {
			return nil, fmt.Errorf("encoding: snappy: %w", err)
		}
	}
	req := &PushRequest{}
	err := eachField(body, func(num protowire.Number, v []byte) error {
		if num != fieldPushStreams {
			return nil
		}
		s, err := decodeStream(v)
		if err != nil {
			return err
		}
		req.Streams = append(req.Streams, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("encoding: parse protobuf: %w", err)
	}
	return req, nil
}

func decodeStream(b []byte) (Stream, error) {
	var s Stream
	err := eachField(b, func(num protowire.Number, v []byte) error {
		switch num {
		case fieldStreamLabels:
			labels, err := types.ParseLabels(string(v))
			if err != nil {
				return err
			}
			s.Labels = labels
		case fieldStreamEntries:
			en, err := decodeEntry(v)
			if err != nil {
				return err
			}
			s.Entries = append(s.Entries, en)
		}
		return nil
	})
	return s, err
}

func decodeEntry(b []byte) (Entry, error) {
	var en Entry
	err := eachField(b, func(num protowire.Number, v []byte) error {
		switch num {
		case fieldEntryTimestamp:
			var ts timestamppb.Timestamp
			if err := proto.Unmarshal(v, &ts); err != nil {
				return err
			}
			en.Timestamp = ts.AsTime()
		case fieldEntryLine:
			en.Line = string(v)
		case fieldEntryMetadata:
			var name, value string
			err := eachField(v, func(num protowire.Number, v []byte) error {
				switch num {
				case fieldPairName:
					name = string(v)
				case fieldPairValue:
					value = string(v)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if en.Metadata == nil {
				en.Metadata = make(map[string]string)
			}
			en.Metadata[name] = value
		}
		return nil
	})
	return en, err
}

// eachField walks the top-level fields of a message, handing length-delimited
// values to fn and skipping every other wire type.
func eachField(b []byte, fn func(num protowire.Number, v []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if err := fn(num, v); err != nil {
			return err
		}
	}
	return nil
}
