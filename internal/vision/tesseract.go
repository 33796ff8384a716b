package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// Tesseract runs the tesseract CLI on a plate region, piping the image
// through stdin and reading the text from stdout.
type Tesseract struct {
	path string
	lang string
	psm  int
}

func NewTesseract(path, lang string, psm int) *Tesseract {
	if lang == "" {
		lang = "eng"
	}
	if psm <= 0 {
		psm = 7
	}
	return &Tesseract{path: path, lang: lang, psm: psm}
}

func (t *Tesseract) Args() []string {
	return []string{"stdin", "stdout", "-l", t.lang, "--psm", strconv.Itoa(t.psm)}
}

func (t *Tesseract) ExtractText(ctx context.Context, region image.Image) (string, error) {
	var input bytes.Buffer
	if err := imaging.Encode(&input, imaging.Grayscale(region), imaging.PNG); err != nil {
		return "", fmt.Errorf("encode region: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.path, t.Args()...)
	cmd.Stdin = &input
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("tesseract: %w", ctx.Err())
		}
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
