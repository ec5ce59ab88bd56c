package app

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"sync"

	"github.com/JaimeStill/glimpse/internal/analyzer"
	"github.com/JaimeStill/glimpse/internal/classifications"
)

// snapshotter keeps a JPEG of the last image handed to the classifier so it
// can be attached to a comment.
type snapshotter struct {
	next    analyzer.Classifier
	quality int

	mu   sync.Mutex
	last []byte
}

func newSnapshotter(next analyzer.Classifier, quality int) *snapshotter {
	return &snapshotter{next: next, quality: quality}
}

func (s *snapshotter) Classify(ctx context.Context, img image.Image, rotation int) ([]classifications.Classification, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err == nil {
		s.mu.Lock()
		s.last = buf.Bytes()
		s.mu.Unlock()
	}
	return s.next.Classify(ctx, img, rotation)
}

// Latest returns the most recent snapshot, or nil before the first frame.
func (s *snapshotter) Latest() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
