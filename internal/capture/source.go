// Package capture reads camera frames from an ffmpeg MJPEG pipe.
package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	initialFrameBuffer = 256 << 10
	maxFrameSize       = 16 << 20
)

// ErrSourceUnavailable indicates the camera input or ffmpeg binary is missing.
var ErrSourceUnavailable = errors.New("camera source unavailable")

// Stats counts frames read from the pipe.
type Stats struct {
	Captured uint64 `json:"captured"`
	Dropped  uint64 `json:"dropped"`
}

// Source runs ffmpeg and emits decoded-on-demand JPEG frames. Frames the
// consumer is not ready for are dropped and released immediately.
type Source struct {
	cfg    *Config
	logger *slog.Logger
	frames chan *Frame
	pool   sync.Pool

	seq     atomic.Uint64
	dropped atomic.Uint64

	done chan struct{}
	err  error
}

// NewSource creates a Source from a finalized Config.
func NewSource(cfg *Config, logger *slog.Logger) *Source {
	return &Source{
		cfg:    cfg,
		logger: logger.With("system", "capture"),
		frames: make(chan *Frame, cfg.Buffer),
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, 0, initialFrameBuffer)
				return &b
			},
		},
		done: make(chan struct{}),
	}
}

// Frames returns the frame channel. It is closed when capture stops.
func (s *Source) Frames() <-chan *Frame {
	return s.frames
}

// Done is closed after the ffmpeg process exits and Frames is closed.
func (s *Source) Done() <-chan struct{} {
	return s.done
}

// Err reports why capture stopped. Valid after Done is closed.
func (s *Source) Err() error {
	<-s.done
	return s.err
}

// Stats returns a snapshot of the capture counters.
func (s *Source) Stats() Stats {
	return Stats{
		Captured: s.seq.Load(),
		Dropped:  s.dropped.Load(),
	}
}

// Start launches ffmpeg. Cancelling ctx stops the process.
func (s *Source) Start(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.cfg.FFmpeg, Args(s.cfg)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffmpeg: %v", ErrSourceUnavailable, err)
	}

	s.logger.Info("capture started", "input", s.cfg.Input, "fps", s.cfg.FPS, "pid", cmd.Process.Pid)

	go s.logStderr(stderr)

	go func() {
		readErr := s.read(ctx, stdout)
		waitErr := cmd.Wait()

		switch {
		case ctx.Err() != nil:
			s.err = nil
		case readErr != nil:
			s.err = readErr
		case waitErr != nil:
			s.err = fmt.Errorf("ffmpeg exited: %w", waitErr)
		}

		close(s.frames)
		s.logger.Info("capture stopped", "captured", s.seq.Load(), "dropped", s.dropped.Load(), "error", s.err)
		close(s.done)
	}()

	return nil
}

// read splits r into frames and sends them without blocking.
func (s *Source) read(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialFrameBuffer), maxFrameSize)
	scanner.Split(splitJPEG)

	for scanner.Scan() {
		frame := s.newFrame(scanner.Bytes())

		select {
		case s.frames <- frame:
		case <-ctx.Done():
			frame.Close()
			return nil
		default:
			s.dropped.Add(1)
			s.logger.Debug("dropping frame, consumer busy", "seq", frame.Seq)
			frame.Close()
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read frames: %w", err)
	}
	return nil
}

func (s *Source) newFrame(token []byte) *Frame {
	buf := s.pool.Get().(*[]byte)
	*buf = append((*buf)[:0], token...)

	return &Frame{
		Seq:       s.seq.Add(1),
		Timestamp: time.Now(),
		TraceID:   uuid.NewString(),
		data:      *buf,
		rotation:  s.cfg.Rotation,
		buf:       buf,
		pool:      &s.pool,
	}
}

func (s *Source) logStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			s.logger.Warn("ffmpeg", "output", line)
		}
	}
}

// Args builds the ffmpeg argument list for cfg.
func Args(cfg *Config) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}

	if cfg.Realtime {
		args = append(args, "-re")
	}
	if cfg.Format != "" {
		args = append(args, "-f", cfg.Format)
	}

	return append(args,
		"-i", cfg.Input,
		"-vf", "fps="+strconv.Itoa(cfg.FPS),
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", strconv.Itoa(cfg.Quality),
		"-",
	)
}

// Preflight verifies that ffmpeg is installed and, for local inputs, that the
// device or file exists.
func Preflight(cfg *Config) error {
	if _, err := exec.LookPath(cfg.FFmpeg); err != nil {
		return fmt.Errorf("%w: %s not found", ErrSourceUnavailable, cfg.FFmpeg)
	}
	if strings.Contains(cfg.Input, "://") || cfg.Format != "" && !strings.HasPrefix(cfg.Input, "/") {
		return nil
	}
	if _, err := os.Stat(cfg.Input); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return nil
}
