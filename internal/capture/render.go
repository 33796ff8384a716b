package capture

import (
	"image"

	"github.com/rs/zerolog"

	"gate-access-service/internal/domain/access"
)

// Renderer draws the frame, the located region and the active status.
// region and status are nil when there is nothing to show.
type Renderer interface {
	Render(frame *access.Frame, region *image.Rectangle, status *Status)
}

type NopRenderer struct{}

func (NopRenderer) Render(*access.Frame, *image.Rectangle, *Status) {}

// LogRenderer writes status changes to the log for headless deployments.
type LogRenderer struct {
	log  zerolog.Logger
	last string
}

func NewLogRenderer(log zerolog.Logger) *LogRenderer {
	return &LogRenderer{log: log.With().Str("component", "display").Logger()}
}

func (r *LogRenderer) Render(_ *access.Frame, _ *image.Rectangle, status *Status) {
	msg := ""
	if status != nil {
		msg = status.Message
	}
	if msg == r.last {
		return
	}
	r.last = msg
	if msg == "" {
		r.log.Debug().Msg("status cleared")
		return
	}
	r.log.Info().
		Str("outcome", string(status.Outcome)).
		Bool("sanctioned", status.Sanctioned).
		Time("until", status.Until).
		Msg(msg)
}
