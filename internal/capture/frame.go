package capture

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"time"
)

// ErrFrameClosed is returned when a frame is used after Close.
var ErrFrameClosed = errors.New("frame already closed")

// Frame is one JPEG image read from the camera. Its buffer is borrowed from
// the source pool and returned by Close.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	TraceID   string

	data     []byte
	rotation int
	buf      *[]byte
	pool     *sync.Pool
	closed   atomic.Bool
}

// Data returns the encoded JPEG bytes. The slice is invalid after Close.
func (f *Frame) Data() []byte {
	if f.closed.Load() {
		return nil
	}
	return f.data
}

// Decode decodes the JPEG payload.
func (f *Frame) Decode() (image.Image, error) {
	if f.closed.Load() {
		return nil, ErrFrameClosed
	}
	return jpeg.Decode(bytes.NewReader(f.data))
}

// Rotation is the clockwise rotation in degrees that makes the frame upright.
func (f *Frame) Rotation() int {
	return f.rotation
}

// Close releases the frame buffer. Only the first call has an effect.
func (f *Frame) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return ErrFrameClosed
	}
	f.data = nil
	if f.pool != nil && f.buf != nil {
		f.pool.Put(f.buf)
		f.buf = nil
	}
	return nil
}
