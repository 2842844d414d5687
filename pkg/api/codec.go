// Package api defines the Splitwiser RPC surface: request and response
// messages, the Connect procedures serving them, and typed clients.
//
// Messages are plain Go structs carried as JSON by Codec, so any Connect or
// plain-HTTP client can talk to the server with Content-Type: application/json.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"connectrpc.com/connect"
)

// Codec marshals messages as JSON. It is registered under the name "json",
// replacing Connect's protobuf-only JSON codec.
type Codec struct{}

// Name implements connect.Codec.
func (Codec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal implements connect.Codec. An empty body decodes to the zero message.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}

// unaryClient builds a typed client for one procedure.
func unaryClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts []connect.ClientOption) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](httpClient, baseURL+procedure, clientOptions(opts)...)
}

// serviceMux routes the procedures of one service.
type serviceMux struct {
	mux  *http.ServeMux
	opts []connect.HandlerOption
}

func newServiceMux(opts []connect.HandlerOption) *serviceMux {
	return &serviceMux{mux: http.NewServeMux(), opts: handlerOptions(opts)}
}

func handle[Req, Res any](m *serviceMux, procedure string, fn func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error)) {
	m.mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, m.opts...))
}
