// Package encoding turns push requests into request bodies for the Loki
// push API and back.
//
// Two formats are supported and one is chosen per deployment:
//
//   - json: {"streams":[{"stream":{...},"values":[["<ns>","<line>",{meta}]]}]}
//     marshalled with goccy/go-json (strict JSON escapes, invalid UTF-8
//     replaced), optionally gzip-compressed.
//   - protobuf: logproto.PushRequest written field by field with protowire,
//     snappy block-compressed by default.
//
// Decode inverts either format; JSON bodies are parsed with fastjson. The pipeline only encodes; decoding exists
// for tests and for Loki test doubles.
package encoding
