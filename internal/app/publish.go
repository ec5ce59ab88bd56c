package app

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/JaimeStill/glimpse/internal/classifications"
	"github.com/JaimeStill/glimpse/pkg/broker"
)

// Publisher broadcasts ranked results. *broker.Publisher satisfies it.
type Publisher interface {
	Publish(subtopic string, payload []byte) error
}

// ResultMessage is the payload published for each processed frame.
type ResultMessage struct {
	DeviceID        string                           `json:"device_id"`
	Timestamp       time.Time                        `json:"timestamp"`
	Classifications []classifications.Classification `json:"classifications"`
}

func (a *App) publish(ranked []classifications.Classification) {
	if a.publisher == nil {
		return
	}

	payload, err := json.Marshal(ResultMessage{
		DeviceID:        a.cfg.DeviceID,
		Timestamp:       a.now().UTC(),
		Classifications: ranked,
	})
	if err != nil {
		a.logger.Error("encode result message failed", "error", err)
		return
	}

	if err := a.publisher.Publish(a.cfg.DeviceID, payload); err != nil {
		if errors.Is(err, broker.ErrNotConnected) {
			a.logger.Debug("result not published, broker offline")
			return
		}
		a.logger.Warn("publish results failed", "error", err)
	}
}
