// Package streamproto implements the byte-stream abstraction spec.md lists
// as an out-of-scope external collaborator (§1: "byte-stream abstraction
// (seek/read/length)"), plus a small registry of named protocols mirroring
// the C ABI's registerStreamProtocol/createStreamHandleFromCustomStream
// pair (spec §6).
//
// Grounded in the teacher's server, which dispatches incoming connections by
// a protocol tag at the HTTP layer (server/server.go's "/ws" mux route
// alongside the QUIC/WebTransport listener in server/client.go) — generalized
// here from "dispatch an inbound connection by path" to "open an outbound
// byte stream by protocol name", registered in a lookup table instead of a
// mux.
package streamproto

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Stream is the seek/read/length contract a Buffer or StreamingGenerator
// reads raw encoded bytes through (spec §6 custom stream protocol: "length
// >= 0 plus non-null seek_cb signals a seekable stream").
type Stream interface {
	io.ReadCloser

	// Seek repositions the stream, matching io.Seeker's semantics exactly.
	// Implementations that cannot seek return ErrUnsupportedSeek.
	Seek(offset int64, whence int) (int64, error)

	// Length returns the stream's total byte length, or -1 if unknown (a
	// live or chunked network source).
	Length() int64
}

// ErrUnsupportedSeek is returned by Stream implementations backed by a
// non-seekable transport (e.g. a live WebSocket or QUIC stream).
var ErrUnsupportedSeek = errors.New("streamproto: stream does not support seeking")

// OpenFunc opens a Stream for path under whatever protocol registered it.
// param carries protocol-specific options (spec §6's "param" argument to
// the custom stream open callback).
type OpenFunc func(path string, param map[string]string) (Stream, error)

// Registry holds named stream protocols. The zero value is usable; Default
// is pre-populated with the engine's built-in protocols.
type Registry struct {
	mu    sync.RWMutex
	open  map[string]OpenFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{open: make(map[string]OpenFunc)}
}

// Register installs (or replaces) the opener for protocol name (spec §6
// "registerStreamProtocol(name, open_cb, userdata)").
func (r *Registry) Register(name string, open OpenFunc) {
	r.mu.Lock()
	r.open[name] = open
	r.mu.Unlock()
}

// Open opens path under protocol, returning an error if protocol was never
// registered.
func (r *Registry) Open(protocol, path string, param map[string]string) (Stream, error) {
	r.mu.RLock()
	open, ok := r.open[protocol]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("streamproto: unknown protocol %q", protocol)
	}
	return open(path, param)
}

// Default returns a Registry with the engine's built-in protocols
// registered: file, memory, ws, quic.
func Default() *Registry {
	r := NewRegistry()
	r.Register("file", openFile)
	r.Register("memory", openMemory)
	r.Register("ws", openWebSocket)
	r.Register("quic", openQUIC)
	return r
}
