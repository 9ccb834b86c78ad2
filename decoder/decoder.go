// Package decoder turns raw gateway frames into event envelopes.
package decoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
	"github.com/json-iterator/go"
	"github.com/klauspost/compress/zlib"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrDecode wraps every failure to turn a frame into an Event.
var ErrDecode = errors.New("decoder: undecodable frame")

// Event is the envelope every gateway frame carries.
type Event struct {
	Operation int                 `json:"op"`
	Sequence  *int64              `json:"s"`
	Type      string              `json:"t"`
	RawData   jsoniter.RawMessage `json:"d"`
}

// FrameDecoder decodes frames of a single connection, in arrival order.
// Decode returns a nil Event and a nil error when the frame is only part of
// a message.
type FrameDecoder interface {
	Decode(messageType int, data []byte) (*Event, error)
	Close() error
}

type messageDecoder struct{}

// New returns a decoder for text frames and binary frames that each carry one
// complete zlib message.
func New() FrameDecoder {
	return messageDecoder{}
}

func (messageDecoder) Decode(messageType int, data []byte) (*Event, error) {
	var reader io.Reader = bytes.NewReader(data)

	if messageType == websocket.BinaryMessage {
		z, err := zlib.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		defer z.Close()

		reader = z
	}

	e, err := decodeEvent(json.NewDecoder(reader))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return e, nil
}

func (messageDecoder) Close() error { return nil }

func decodeEvent(decoder *jsoniter.Decoder) (*Event, error) {
	var e Event
	if err := decoder.Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}
