package decoder

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/zlib"
)

// zlibSuffix terminates every message of a zlib-stream connection (Z_SYNC_FLUSH).
var zlibSuffix = []byte{0x00, 0x00, 0xff, 0xff}

const inflateTimeout = 5 * time.Second

type result struct {
	event *Event
	err   error
}

// streamDecoder keeps one zlib context for the whole connection. Compressed
// bytes are pushed through a pipe into a goroutine that owns the inflater, so
// the sticky EOF of an idle deflate reader never happens.
type streamDecoder struct {
	mu      sync.Mutex
	buffer  []byte
	writer  *io.PipeWriter
	results chan result
	done    chan struct{}
	once    sync.Once
	err     error
}

// NewStream returns a decoder for a compress=zlib-stream connection.
func NewStream() FrameDecoder {
	reader, writer := io.Pipe()

	d := &streamDecoder{
		writer:  writer,
		results: make(chan result, 1),
		done:    make(chan struct{}),
	}

	go d.inflate(reader)

	return d
}

func (d *streamDecoder) inflate(reader *io.PipeReader) {
	z, err := zlib.NewReader(reader)
	if err != nil {
		d.fail(reader, err)
		return
	}
	defer z.Close()

	decoder := json.NewDecoder(z)

	for {
		e, err := decodeEvent(decoder)
		if err != nil {
			d.fail(reader, err)
			return
		}

		select {
		case d.results <- result{event: e}:
		case <-d.done:
			return
		}
	}
}

func (d *streamDecoder) fail(reader *io.PipeReader, err error) {
	reader.CloseWithError(err)

	select {
	case d.results <- result{err: err}:
	case <-d.done:
	}
}

func (d *streamDecoder) Decode(_ int, data []byte) (*Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return nil, d.err
	}

	d.buffer = append(d.buffer, data...)
	if !bytes.HasSuffix(d.buffer, zlibSuffix) {
		return nil, nil
	}

	frame := d.buffer
	d.buffer = nil

	if _, err := d.writer.Write(frame); err != nil {
		d.err = fmt.Errorf("%w: %w", ErrDecode, err)
		return nil, d.err
	}

	select {
	case r := <-d.results:
		if r.err != nil {
			d.err = fmt.Errorf("%w: %w", ErrDecode, r.err)
			return nil, d.err
		}
		return r.event, nil

	case <-time.After(inflateTimeout):
		d.err = fmt.Errorf("%w: inflate timed out", ErrDecode)
		return nil, d.err
	}
}

func (d *streamDecoder) Close() error {
	d.once.Do(func() {
		close(d.done)
		d.writer.Close()
	})
	return nil
}
