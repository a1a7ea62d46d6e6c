package api

import "encoding/json"

// jsonCodec is a grpc/encoding.Codec over plain Go structs. The service
// is dispatched through a hand-built grpc.ServiceDesc rather than
// protoc-generated message types (no .proto toolchain is available in
// this build environment — see DESIGN.md), so wire messages are ordinary
// JSON-tagged structs instead of generated proto.Message values.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "json" }
