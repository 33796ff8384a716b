package vision

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullFrameLocalizer(t *testing.T) {
	img := imaging.New(40, 20, color.White)

	r, ok := FullFrameLocalizer{}.Localize(img)
	assert.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 40, 20), r)

	_, ok = FullFrameLocalizer{}.Localize(nil)
	assert.False(t, ok)
}

func TestOpenCamera(t *testing.T) {
	log := zerolog.Nop()

	cam, err := OpenCamera("secondary", "none", log)
	require.NoError(t, err)
	assert.Nil(t, cam)

	cam, err = OpenCamera("primary", "http://127.0.0.1:1/snapshot.jpg", log)
	require.NoError(t, err)
	require.NotNil(t, cam)
	assert.Equal(t, "primary", cam.Name())

	_, err = OpenCamera("primary", "rtsp-ish", log)
	assert.Error(t, err)
}

func TestHTTPCameraRead(t *testing.T) {
	var body bytes.Buffer
	require.NoError(t, imaging.Encode(&body, imaging.New(16, 8, color.Black), imaging.JPEG))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/snapshot.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(body.Bytes())
	}))
	defer srv.Close()

	cam := NewHTTPCamera("primary", srv.URL+"/snapshot.jpg", srv.Client())
	img, err := cam.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.NoError(t, cam.Close())

	missing := NewHTTPCamera("primary", srv.URL+"/missing", srv.Client())
	_, err = missing.Read(context.Background())
	assert.Error(t, err)
}

func TestHTTPCameraTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPCamera("primary", srv.URL, srv.Client()).Read(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func fakeTesseract(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "tesseract")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func TestTesseractExtractText(t *testing.T) {
	path := fakeTesseract(t, `cat > /dev/null; echo " abc-123 "`)

	ocr := NewTesseract(path, "", 0)
	assert.Equal(t, []string{"stdin", "stdout", "-l", "eng", "--psm", "7"}, ocr.Args())

	text, err := ocr.ExtractText(context.Background(), imaging.New(10, 10, color.White))
	require.NoError(t, err)
	assert.Equal(t, "abc-123", text)
}

func TestTesseractFailure(t *testing.T) {
	path := fakeTesseract(t, `cat > /dev/null; echo "no language" >&2; exit 1`)

	_, err := NewTesseract(path, "eng", 11).ExtractText(context.Background(), imaging.New(10, 10, color.White))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no language")
}
