// Package vision holds the replaceable acquisition, localization and OCR
// stages that feed the access decision engine.
package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

var ErrDeviceUnsupported = errors.New("device cameras require the gocv build tag")

type Camera interface {
	Name() string
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

type Localizer interface {
	// Localize returns the first plate-shaped region of img.
	Localize(img image.Image) (image.Rectangle, bool)
}

type OCR interface {
	ExtractText(ctx context.Context, region image.Image) (string, error)
}

// OpenCamera builds a camera from its configured source: "none" disables it,
// an http(s) URL is a snapshot endpoint, an integer is a capture device index.
func OpenCamera(name, source string, log zerolog.Logger) (Camera, error) {
	source = strings.TrimSpace(source)
	switch {
	case source == "" || strings.EqualFold(source, "none"):
		return nil, nil
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return NewHTTPCamera(name, source, nil), nil
	}

	index, err := strconv.Atoi(source)
	if err != nil {
		return nil, fmt.Errorf("camera %s: unrecognized source %q", name, source)
	}
	return openDevice(name, index, log)
}

// FullFrameLocalizer treats the whole frame as the plate region. It suits
// cameras that are already framed on the plate.
type FullFrameLocalizer struct{}

func (FullFrameLocalizer) Localize(img image.Image) (image.Rectangle, bool) {
	if img == nil {
		return image.Rectangle{}, false
	}
	b := img.Bounds()
	return b, !b.Empty()
}
