//go:build gocv

package vision

import (
	"context"
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// DeviceCamera reads frames from a local capture device.
type DeviceCamera struct {
	name string
	mu   sync.Mutex
	vc   *gocv.VideoCapture
	mat  gocv.Mat
	log  zerolog.Logger
}

func openDevice(name string, index int, log zerolog.Logger) (Camera, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("camera %s: open device %d: %w", name, index, err)
	}
	return &DeviceCamera{
		name: name,
		vc:   vc,
		mat:  gocv.NewMat(),
		log:  log.With().Str("camera", name).Int("device", index).Logger(),
	}, nil
}

func (c *DeviceCamera) Name() string {
	return c.name
}

// Read blocks inside OpenCV; ctx bounds how long the caller waits, not the
// device read itself.
func (c *DeviceCamera) Read(ctx context.Context) (image.Image, error) {
	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
			done <- result{err: fmt.Errorf("camera %s: empty frame", c.name)}
			return
		}
		img, err := c.mat.ToImage()
		done <- result{img: img, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("camera %s: %w", c.name, ctx.Err())
	case r := <-done:
		return r.img, r.err
	}
}

func (c *DeviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mat.Close()
	return c.vc.Close()
}

// ContourLocalizer finds the first quadrilateral among the largest edge
// contours of the frame.
type ContourLocalizer struct {
	MaxContours int
}

func DefaultLocalizer() Localizer {
	return ContourLocalizer{MaxContours: 10}
}

func (l ContourLocalizer) Localize(img image.Image) (image.Rectangle, bool) {
	if img == nil {
		return image.Rectangle{}, false
	}
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return image.Rectangle{}, false
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorRGBToGray)
	gocv.GaussianBlur(gray, &gray, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 50, 200)

	contours := gocv.FindContours(edges, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	idx := make([]int, contours.Size())
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return gocv.ContourArea(contours.At(idx[a])) > gocv.ContourArea(contours.At(idx[b]))
	})
	if l.MaxContours > 0 && len(idx) > l.MaxContours {
		idx = idx[:l.MaxContours]
	}

	for _, i := range idx {
		contour := contours.At(i)
		perimeter := gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, 0.02*perimeter, true)
		n := approx.Size()
		approx.Close()
		if n == 4 {
			return gocv.BoundingRect(contour), true
		}
	}
	return image.Rectangle{}, false
}
