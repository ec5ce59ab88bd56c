// Package classifier runs the image classification model in a worker
// subprocess and exchanges length-prefixed msgpack messages with it over
// stdin and stdout.
package classifier

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/JaimeStill/glimpse/internal/classifications"
)

var (
	// ErrNotStarted indicates Classify was called before Start.
	ErrNotStarted = errors.New("classifier worker not started")
	// ErrTimeout indicates the worker did not answer within the configured timeout.
	ErrTimeout = errors.New("classifier worker timeout")
	// ErrWorkerExited indicates the worker process ended mid-request.
	ErrWorkerExited = errors.New("classifier worker exited")
	// ErrClassification wraps an error reported by the worker itself.
	ErrClassification = errors.New("classification failed")
)

const stopGrace = 2 * time.Second

type process struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	responses chan Response
	exited    chan struct{}
}

// Worker classifies images through a long-running subprocess. Requests are
// serialized. A worker that times out or exits is killed and respawned on
// the next request.
type Worker struct {
	cfg     *Config
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	proc   *process
	nextID uint64
}

// New creates a Worker from a finalized Config.
func New(cfg *Config, logger *slog.Logger) *Worker {
	return &Worker{
		cfg:     cfg,
		timeout: cfg.TimeoutDuration(),
		logger:  logger.With("system", "classifier"),
	}
}

// Start spawns the worker process. ctx bounds the lifetime of every process
// the Worker spawns.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.ctx = ctx
	p, err := w.spawn()
	if err != nil {
		return err
	}
	w.proc = p
	return nil
}

// Classify encodes img as JPEG and waits for the worker's labels.
func (w *Worker) Classify(ctx context.Context, img image.Image, rotation int) ([]classifications.Classification, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: w.cfg.Quality}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx == nil {
		return nil, ErrNotStarted
	}

	if w.proc == nil {
		p, err := w.spawn()
		if err != nil {
			return nil, err
		}
		w.proc = p
	}
	p := w.proc

	w.nextID++
	req := Request{
		ID:       w.nextID,
		Image:    buf.Bytes(),
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
		Rotation: rotation,
	}

	if err := writeMessage(p.stdin, req); err != nil {
		w.kill()
		return nil, err
	}

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	for {
		select {
		case resp, ok := <-p.responses:
			if !ok {
				w.proc = nil
				return nil, ErrWorkerExited
			}
			if resp.ID != req.ID {
				w.logger.Debug("discarding stale response", "id", resp.ID, "want", req.ID)
				continue
			}
			if resp.Error != "" {
				return nil, fmt.Errorf("%w: %s", ErrClassification, resp.Error)
			}
			return resp.Classifications, nil
		case <-timer.C:
			w.logger.Warn("classifier timed out, restarting worker", "timeout", w.timeout)
			w.kill()
			return nil, ErrTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Stop closes the worker's stdin and waits briefly for it to exit before
// killing it.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.proc
	if p == nil {
		return
	}
	w.proc = nil

	p.stdin.Close()
	select {
	case <-p.exited:
	case <-time.After(stopGrace):
		w.logger.Warn("classifier did not exit, killing")
		p.cmd.Process.Kill()
		<-p.exited
	}
	w.logger.Info("classifier stopped")
}

func (w *Worker) spawn() (*process, error) {
	cmd := exec.CommandContext(w.ctx, w.cfg.Command, w.cfg.Args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker %s: %w", w.cfg.Command, err)
	}

	p := &process{
		cmd:       cmd,
		stdin:     stdin,
		responses: make(chan Response, 4),
		exited:    make(chan struct{}),
	}

	var pipes sync.WaitGroup
	pipes.Go(func() { w.readResponses(stdout, p.responses) })
	pipes.Go(func() { w.logStderr(stderr) })

	go func() {
		pipes.Wait()
		if err := cmd.Wait(); err != nil && w.ctx.Err() == nil {
			w.logger.Warn("classifier process exited", "pid", cmd.Process.Pid, "error", err)
		}
		close(p.exited)
	}()

	w.logger.Info("classifier started", "command", w.cfg.Command, "pid", cmd.Process.Pid)
	return p, nil
}

func (w *Worker) readResponses(r io.Reader, out chan<- Response) {
	defer close(out)
	for {
		var resp Response
		if err := readMessage(r, &resp); err != nil {
			if !errors.Is(err, io.EOF) {
				w.logger.Warn("classifier read failed", "error", err)
			}
			return
		}

		select {
		case out <- resp:
		default:
			w.logger.Debug("dropping unread response", "id", resp.ID)
		}
	}
}

func (w *Worker) logStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		w.logger.Debug("classifier", "output", scanner.Text())
	}
}

// kill terminates the current process; the caller holds mu.
func (w *Worker) kill() {
	if w.proc == nil {
		return
	}
	w.proc.stdin.Close()
	w.proc.cmd.Process.Kill()
	w.proc = nil
}
