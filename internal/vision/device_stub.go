//go:build !gocv

package vision

import (
	"fmt"

	"github.com/rs/zerolog"
)

func openDevice(name string, index int, _ zerolog.Logger) (Camera, error) {
	return nil, fmt.Errorf("camera %s (device %d): %w", name, index, ErrDeviceUnsupported)
}

// DefaultLocalizer is the localizer used when no contour detector is compiled in.
func DefaultLocalizer() Localizer {
	return FullFrameLocalizer{}
}
