package classifier

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/JaimeStill/glimpse/internal/classifications"
)

// maxMessageSize bounds a single framed message.
const maxMessageSize = 32 << 20

// Request asks the worker to classify one JPEG image.
type Request struct {
	ID       uint64 `msgpack:"id"`
	Image    []byte `msgpack:"image"`
	Width    int    `msgpack:"width"`
	Height   int    `msgpack:"height"`
	Rotation int    `msgpack:"rotation"`
}

// Response carries the labels for a Request, or an error message.
type Response struct {
	ID              uint64                           `msgpack:"id"`
	Classifications []classifications.Classification `msgpack:"classifications"`
	Error           string                           `msgpack:"error,omitempty"`
}

// writeMessage writes v as msgpack behind a 4-byte big-endian length prefix.
func writeMessage(w io.Writer, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if len(data) > maxMessageSize {
		return fmt.Errorf("message too large: %d bytes", len(data))
	}

	frame := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// readMessage reads one length-prefixed msgpack message into v.
func readMessage(r io.Reader, v any) error {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return err
	}

	n := binary.BigEndian.Uint32(prefix[:])
	if n > maxMessageSize {
		return fmt.Errorf("message too large: %d bytes", n)
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("read message body: %w", err)
	}

	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	return nil
}
