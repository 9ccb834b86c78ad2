package decoder

import (
	"bytes"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeText(t *testing.T) {
	e, err := New().Decode(websocket.TextMessage, []byte(`{"op":0,"s":42,"t":"MESSAGE_CREATE","d":{"id":"1"}}`))
	require.NoError(t, err)

	assert.Equal(t, 0, e.Operation)
	require.NotNil(t, e.Sequence)
	assert.Equal(t, int64(42), *e.Sequence)
	assert.Equal(t, "MESSAGE_CREATE", e.Type)
	assert.JSONEq(t, `{"id":"1"}`, string(e.RawData))
}

func TestDecodeNullSequence(t *testing.T) {
	e, err := New().Decode(websocket.TextMessage, []byte(`{"op":10,"s":null,"t":null,"d":{"heartbeat_interval":41250}}`))
	require.NoError(t, err)
	assert.Nil(t, e.Sequence)
	assert.Equal(t, 10, e.Operation)
}

func TestDecodeBinaryZlib(t *testing.T) {
	var buf bytes.Buffer
	z := zlib.NewWriter(&buf)
	_, err := z.Write([]byte(`{"op":11}`))
	require.NoError(t, err)
	require.NoError(t, z.Close())

	e, err := New().Decode(websocket.BinaryMessage, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 11, e.Operation)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := New().Decode(websocket.BinaryMessage, []byte("not zlib"))
	assert.ErrorIs(t, err, ErrDecode)

	_, err = New().Decode(websocket.TextMessage, []byte("{"))
	assert.ErrorIs(t, err, ErrDecode)
}

// streamWriter compresses messages the way a zlib-stream gateway does: one
// zlib context, a sync flush after every message.
type streamWriter struct {
	buf bytes.Buffer
	z   *zlib.Writer
}

func newStreamWriter(t *testing.T) *streamWriter {
	w := &streamWriter{}
	z, err := zlib.NewWriterLevel(&w.buf, flate.DefaultCompression)
	require.NoError(t, err)
	w.z = z
	return w
}

func (w *streamWriter) message(t *testing.T, payload string) []byte {
	_, err := w.z.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, w.z.Flush())

	out := append([]byte(nil), w.buf.Bytes()...)
	w.buf.Reset()
	return out
}

func TestStreamDecoder(t *testing.T) {
	d := NewStream()
	defer d.Close()

	w := newStreamWriter(t)

	first := w.message(t, `{"op":10,"d":{"heartbeat_interval":41250}}`)
	e, err := d.Decode(websocket.BinaryMessage, first)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, 10, e.Operation)

	second := w.message(t, `{"op":0,"s":1,"t":"READY","d":{"session_id":"abc123"}}`)
	half := len(second) / 2

	e, err = d.Decode(websocket.BinaryMessage, second[:half])
	require.NoError(t, err)
	assert.Nil(t, e, "partial frame must not yield an event")

	e, err = d.Decode(websocket.BinaryMessage, second[half:])
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "READY", e.Type)

	third := w.message(t, `{"op":11}`)
	e, err = d.Decode(websocket.BinaryMessage, third)
	require.NoError(t, err)
	assert.Equal(t, 11, e.Operation)
}

func TestStreamDecoderCorrupt(t *testing.T) {
	d := NewStream()
	defer d.Close()

	_, err := d.Decode(websocket.BinaryMessage, append([]byte("garbage"), zlibSuffix...))
	require.ErrorIs(t, err, ErrDecode)

	_, err = d.Decode(websocket.BinaryMessage, append([]byte("more"), zlibSuffix...))
	assert.ErrorIs(t, err, ErrDecode, "a broken stream stays broken")
}
