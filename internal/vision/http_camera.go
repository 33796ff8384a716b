package vision

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"

	"github.com/disintegration/imaging"
)

// HTTPCamera fetches a still frame from a snapshot URL on every read.
type HTTPCamera struct {
	name   string
	url    string
	client *http.Client
}

func NewHTTPCamera(name, url string, client *http.Client) *HTTPCamera {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPCamera{name: name, url: url, client: client}
}

func (c *HTTPCamera) Name() string {
	return c.name
}

func (c *HTTPCamera) Read(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("camera %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("camera %s: unexpected status %d", c.name, resp.StatusCode)
	}

	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("camera %s: decode snapshot: %w", c.name, err)
	}
	return img, nil
}

func (c *HTTPCamera) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
