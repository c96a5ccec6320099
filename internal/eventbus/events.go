package eventbus

import (
	"context"

	logx "prensabot/pkg/logx"
)

// Event types published by the daemon.
const (
	TypeRunStarted     = "run.started"
	TypeRunFinished    = "run.finished"
	TypeConfigReloaded = "config.reloaded"
)

// RunStartedData accompanies TypeRunStarted.
type RunStartedData struct {
	Trigger string `json:"trigger"`
	Sources int    `json:"sources"`
}

// RunFinishedData accompanies TypeRunFinished.
type RunFinishedData struct {
	Trigger    string  `json:"trigger"`
	OK         bool    `json:"ok"`
	Sources    int     `json:"sources"`
	Found      int     `json:"found"`
	Sent       int     `json:"sent"`
	Failures   int     `json:"failures"`
	StateSaved bool    `json:"state_saved"`
	ElapsedSec float64 `json:"elapsed_sec"`
}

// ConfigReloadedData accompanies TypeConfigReloaded.
type ConfigReloadedData struct {
	Sections []string `json:"sections"`
}

// Mirror drains bus events into debug logs until ctx is canceled. Meant to
// run under a supervisor goroutine in daemon mode.
func Mirror(ctx context.Context, bus Bus, log logx.Logger) {
	if bus == nil {
		return
	}
	ch, unsub := bus.Subscribe(32)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			log.Debug("event", logx.String("type", ev.Type), logx.Any("data", ev.Data))
		}
	}
}
