package streamproto

import (
	"bytes"
	"sync"
)

// memoryBlobs backs the "memory" protocol: byte slices registered by name
// so a stream can be opened by path the way "file" opens by filesystem
// path, without requiring callers to pass raw bytes through param (spec §6
// createStreamHandleFromMemory's simpler sibling, NewMemoryStream, is the
// direct path most callers want instead).
var memoryBlobs = struct {
	mu   sync.RWMutex
	data map[string][]byte
}{data: make(map[string][]byte)}

// RegisterMemoryBlob makes data openable under the "memory" protocol as
// path name. Re-registering the same name replaces the previous blob.
func RegisterMemoryBlob(name string, data []byte) {
	memoryBlobs.mu.Lock()
	memoryBlobs.data[name] = data
	memoryBlobs.mu.Unlock()
}

func openMemory(path string, _ map[string]string) (Stream, error) {
	memoryBlobs.mu.RLock()
	data, ok := memoryBlobs.data[path]
	memoryBlobs.mu.RUnlock()
	if !ok {
		return nil, errUnknownBlob(path)
	}
	return NewMemoryStream(data), nil
}

// memoryStream is a Stream over an in-memory byte slice; always seekable,
// fixed length.
type memoryStream struct {
	r *bytes.Reader
}

// NewMemoryStream wraps data directly as a Stream (spec §6
// createBufferFromMemory's byte-stream equivalent), bypassing the registry
// entirely — most embedding hosts that already hold the bytes in memory
// want this rather than registering a named blob first.
func NewMemoryStream(data []byte) Stream {
	return &memoryStream{r: bytes.NewReader(data)}
}

func (s *memoryStream) Read(p []byte) (int, error)                  { return s.r.Read(p) }
func (s *memoryStream) Close() error                                { return nil }
func (s *memoryStream) Seek(offset int64, whence int) (int64, error) { return s.r.Seek(offset, whence) }
func (s *memoryStream) Length() int64                               { return s.r.Size() }

type errUnknownBlob string

func (e errUnknownBlob) Error() string { return "streamproto: no memory blob registered as " + string(e) }
