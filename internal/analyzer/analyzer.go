// Package analyzer subsamples camera frames, crops the sampled ones, and
// hands them to a classifier.
package analyzer

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/JaimeStill/glimpse/internal/classifications"
)

// Frame is a single captured camera frame. Close returns its buffer to the
// capture pipeline.
type Frame interface {
	Decode() (image.Image, error)
	Rotation() int
	Close() error
}

// Classifier labels an image. rotation is the clockwise rotation in degrees
// needed to bring the image upright.
type Classifier interface {
	Classify(ctx context.Context, img image.Image, rotation int) ([]classifications.Classification, error)
}

// ResultFunc receives the classifications for a processed frame.
type ResultFunc func([]classifications.Classification)

// Stats counts frames by outcome.
type Stats struct {
	Seen      uint64 `json:"seen"`
	Processed uint64 `json:"processed"`
	Skipped   uint64 `json:"skipped"`
	Failed    uint64 `json:"failed"`
}

// Analyzer processes every Interval-th frame it is given.
type Analyzer struct {
	interval   uint64
	cropWidth  int
	cropHeight int
	classifier Classifier
	onResults  ResultFunc
	logger     *slog.Logger

	counter   atomic.Uint64
	processed atomic.Uint64
	skipped   atomic.Uint64
	failed    atomic.Uint64
}

// New creates an Analyzer from a finalized Config.
func New(cfg *Config, classifier Classifier, onResults ResultFunc, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		interval:   uint64(cfg.Interval),
		cropWidth:  cfg.CropWidth,
		cropHeight: cfg.CropHeight,
		classifier: classifier,
		onResults:  onResults,
		logger:     logger.With("system", "analyzer"),
	}
}

// Analyze handles one frame. The frame is always closed before Analyze
// returns. When the frame is sampled and classification succeeds the result
// callback runs synchronously on the calling goroutine.
func (a *Analyzer) Analyze(ctx context.Context, frame Frame) {
	defer a.release(frame)

	n := a.counter.Add(1) - 1
	if n%a.interval != 0 {
		a.skipped.Add(1)
		return
	}

	results, err := a.process(ctx, frame)
	if err != nil {
		a.failed.Add(1)
		a.logger.Warn("frame analysis failed", "frame", n, "error", err)
		return
	}

	a.processed.Add(1)
	if a.onResults != nil {
		a.onResults(results)
	}
}

// Stats returns a snapshot of the frame counters.
func (a *Analyzer) Stats() Stats {
	return Stats{
		Seen:      a.counter.Load(),
		Processed: a.processed.Load(),
		Skipped:   a.skipped.Load(),
		Failed:    a.failed.Load(),
	}
}

func (a *Analyzer) process(ctx context.Context, frame Frame) (results []classifications.Classification, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("classifier panic: %v", v)
		}
	}()

	img, err := frame.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	cropped := CenterCrop(img, a.cropWidth, a.cropHeight)

	results, err = a.classifier.Classify(ctx, cropped, frame.Rotation())
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	return results, nil
}

func (a *Analyzer) release(frame Frame) {
	if err := frame.Close(); err != nil {
		a.logger.Debug("frame release failed", "error", err)
	}
}
