// Package api implements the gRPC transport boundary (spec.md §6 External
// interfaces): the Authentication interface and the Resource-engine
// client interface, exposed over mTLS. The wire service is dispatched
// through a hand-built grpc.ServiceDesc carried over a JSON grpc.Codec,
// rather than protoc-generated stubs (see DESIGN.md for why), so the
// request/response shapes stay plain Go structs.
package api
