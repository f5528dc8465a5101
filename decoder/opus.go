package decoder

import (
	"bufio"
	"encoding/binary"
	"io"

	"gopkg.in/hraban/opus.v2"
)

// opusPacketReader is the minimal framing an OpusDecoder needs from a
// stream: a sequence of length-prefixed Opus packets. Ogg/WebM demuxing is
// out of scope here (the teacher never demuxes a container either — it
// always hands raw Opus packets straight to opus.Decoder, client/audio.go's
// dec.Decode(f.OpusData, pcm)); callers that need container support supply
// their own packetReader that already strips the container framing.
type packetReader interface {
	// NextPacket returns the next Opus packet's bytes, or io.EOF.
	NextPacket() ([]byte, error)
	// SeekToFrame repositions to the packet containing framePos, returning
	// false if the underlying source cannot seek.
	SeekToFrame(framePos int64) (bool, error)
	// FrameCount returns the total decodable frame count, or -1 if unknown.
	FrameCount() int64
}

// OpusDecoder decodes a stream of length-prefixed Opus packets using
// gopkg.in/hraban/opus.v2, mirroring the teacher's per-sender decoder
// construction (client/audio.go: "d, err := opus.NewDecoder(sampleRate,
// channels)") but built for sequential file/stream playback instead of
// live per-sender RTP decode.
type OpusDecoder struct {
	dec        *opus.Decoder
	sampleRate int
	channels   int
	reader     packetReader
	framePos   int64
	scratchPCM []float32
}

// NewOpusDecoder constructs an OpusDecoder reading packets from reader at
// the given Opus sample rate/channel count (both must match the stream's
// encoding parameters; Opus does not self-describe them in the packet
// stream).
func NewOpusDecoder(reader packetReader, sampleRate, channels int) (*OpusDecoder, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, err
	}
	return &OpusDecoder{
		dec:        dec,
		sampleRate: sampleRate,
		channels:   channels,
		reader:     reader,
	}, nil
}

func (d *OpusDecoder) SampleRate() int { return d.sampleRate }
func (d *OpusDecoder) Channels() int   { return d.channels }
func (d *OpusDecoder) Duration() int64 { return d.reader.FrameCount() }

// ReadFrames decodes packets until out is filled or the stream ends.
// Packet-loss concealment (nil packet data) is not used here since this
// path reads from a complete local/remote stream rather than lossy RTP —
// unlike the live-call decode path in client/audio.go, there is no gap to
// conceal.
func (d *OpusDecoder) ReadFrames(out []float32) (int, error) {
	framesWanted := len(out) / d.channels
	written := 0
	for written < framesWanted {
		packet, err := d.reader.NextPacket()
		if err == io.EOF {
			return written, io.EOF
		}
		if err != nil {
			return written, err
		}
		if cap(d.scratchPCM) < framesWanted*d.channels {
			d.scratchPCM = make([]float32, framesWanted*d.channels)
		}
		pcm := d.scratchPCM[:framesWanted*d.channels]
		n, err := d.dec.DecodeFloat32(packet, pcm)
		if err != nil {
			return written, err
		}
		copy(out[written*d.channels:], pcm[:n*d.channels])
		written += n
		d.framePos += int64(n)
	}
	return written, nil
}

// Seek delegates to the packet reader's seek support.
func (d *OpusDecoder) Seek(framePos int64) (bool, error) {
	ok, err := d.reader.SeekToFrame(framePos)
	if ok {
		d.framePos = framePos
	}
	return ok, err
}

// Close releases the packet reader if it implements io.Closer.
func (d *OpusDecoder) Close() error {
	if c, ok := d.reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// filePacketReader reads a simple length-prefixed Opus packet stream (a
// 4-byte big-endian length followed by that many packet bytes, repeated)
// from an io.ReadSeeker.
type filePacketReader struct {
	rs         io.ReadSeeker
	br         *bufio.Reader
	frameCount int64
}

// NewFilePacketReader wraps rs, a length-prefixed Opus packet stream whose
// total frame count is already known (e.g. from a sidecar index).
func NewFilePacketReader(rs io.ReadSeeker, frameCount int64) packetReader {
	return &filePacketReader{rs: rs, br: bufio.NewReader(rs), frameCount: frameCount}
}

func (f *filePacketReader) NextPacket() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(f.br, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	packet := make([]byte, n)
	if _, err := io.ReadFull(f.br, packet); err != nil {
		return nil, err
	}
	return packet, nil
}

func (f *filePacketReader) SeekToFrame(framePos int64) (bool, error) {
	if _, err := f.rs.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	f.br.Reset(f.rs)
	// A full implementation would consult a packet index to seek directly
	// to the packet containing framePos; this minimal reader only supports
	// seeking to the start of the stream.
	return framePos == 0, nil
}

func (f *filePacketReader) FrameCount() int64 { return f.frameCount }
