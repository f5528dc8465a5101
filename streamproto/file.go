package streamproto

import "os"

// fileStream wraps an *os.File as a Stream; param is ignored (local files
// need no protocol-specific options).
type fileStream struct {
	f *os.File
}

func openFile(path string, _ map[string]string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &fileStream{f: f}, nil
}

func (s *fileStream) Read(p []byte) (int, error) { return s.f.Read(p) }
func (s *fileStream) Close() error                { return s.f.Close() }

func (s *fileStream) Seek(offset int64, whence int) (int64, error) {
	return s.f.Seek(offset, whence)
}

func (s *fileStream) Length() int64 {
	info, err := s.f.Stat()
	if err != nil {
		return -1
	}
	return info.Size()
}
