package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gate-access-service/internal/domain/access"
	"gate-access-service/internal/utils"
	"gate-access-service/internal/vision"
)

var (
	ErrAcquisition = errors.New("frame acquisition failed")
	ErrNoCandidate = errors.New("no plate candidate")
	ErrStopped     = errors.New("capture loop is not running")
)

const (
	SourceCamera   = "camera"
	SourceExternal = "external"
)

const (
	primaryCam = iota
	secondaryCam
)

type Processor interface {
	Process(ctx context.Context, ev access.DetectionEvent) (*access.Decision, error)
}

type Deps struct {
	Primary   vision.Camera
	Secondary vision.Camera // nil when the site has a single camera
	Localizer vision.Localizer
	OCR       vision.OCR
	Processor Processor
	Renderer  Renderer
	Board     *StatusBoard
	Now       func() time.Time
}

type Config struct {
	Interval      time.Duration
	CameraTimeout time.Duration
	OCRTimeout    time.Duration
}

type submission struct {
	raw    string
	source string
	reply  chan submitResult
}

type submitResult struct {
	decision *access.Decision
	err      error
}

// Coordinator runs the acquire, localize, read, resolve cycle. Ticks never
// overlap: Run is the only goroutine that touches cameras or lastGood.
type Coordinator struct {
	cameras   [2]vision.Camera
	localizer vision.Localizer
	ocr       vision.OCR
	processor Processor
	renderer  Renderer
	board     *StatusBoard
	now       func() time.Time
	cfg       Config
	log       zerolog.Logger

	lastGood    [2]*access.Frame
	submissions chan submission
	running     chan struct{}
}

func NewCoordinator(deps Deps, cfg Config, log zerolog.Logger) *Coordinator {
	if deps.Localizer == nil {
		deps.Localizer = vision.FullFrameLocalizer{}
	}
	if deps.Renderer == nil {
		deps.Renderer = NopRenderer{}
	}
	if deps.Board == nil {
		deps.Board = NewStatusBoard(5 * time.Second)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 200 * time.Millisecond
	}
	return &Coordinator{
		cameras:     [2]vision.Camera{deps.Primary, deps.Secondary},
		localizer:   deps.Localizer,
		ocr:         deps.OCR,
		processor:   deps.Processor,
		renderer:    deps.Renderer,
		board:       deps.Board,
		now:         deps.Now,
		cfg:         cfg,
		log:         log.With().Str("component", "capture").Logger(),
		submissions: make(chan submission),
		running:     make(chan struct{}),
	}
}

func (c *Coordinator) Board() *StatusBoard {
	return c.board
}

// LastFrames returns the most recent successful frame of each camera.
// Only safe to call from the loop goroutine or while Run is not active.
func (c *Coordinator) LastFrames() (primary, secondary *access.Frame) {
	return c.lastGood[primaryCam], c.lastGood[secondaryCam]
}

// Tick performs one full cycle. It returns ErrAcquisition when either
// camera fails and ErrNoCandidate when nothing plate-like was read.
func (c *Coordinator) Tick(ctx context.Context) (*access.Decision, error) {
	now := c.now()

	if err := c.acquire(ctx, now); err != nil {
		return nil, err
	}
	primary := c.lastGood[primaryCam]

	region, ok := c.localizer.Localize(primary.Image)
	if !ok {
		c.render(primary, nil, now)
		return nil, fmt.Errorf("%w: no plate region", ErrNoCandidate)
	}

	raw, err := c.readText(ctx, primary.Image, region)
	if err != nil {
		c.render(primary, &region, now)
		return nil, err
	}

	d, err := c.resolve(ctx, raw, SourceCamera, region, now)
	c.render(primary, &region, now)
	return d, err
}

// acquire reads every configured camera. A successful read replaces that
// camera's last good frame even when the other camera fails.
func (c *Coordinator) acquire(ctx context.Context, now time.Time) error {
	var errs []error
	for i, cam := range c.cameras {
		if cam == nil {
			continue
		}
		img, err := c.readCamera(ctx, cam)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.lastGood[i] = &access.Frame{Camera: cam.Name(), Image: img, CapturedAt: now}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrAcquisition, errors.Join(errs...))
	}
	if c.lastGood[primaryCam] == nil {
		return fmt.Errorf("%w: primary camera not configured", ErrAcquisition)
	}
	return nil
}

func (c *Coordinator) readCamera(ctx context.Context, cam vision.Camera) (image.Image, error) {
	if c.cfg.CameraTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CameraTimeout)
		defer cancel()
	}
	img, err := cam.Read(ctx)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("camera %s returned no image", cam.Name())
	}
	return img, nil
}

func (c *Coordinator) readText(ctx context.Context, img image.Image, region image.Rectangle) (string, error) {
	if c.ocr == nil {
		return "", fmt.Errorf("%w: no OCR engine", ErrNoCandidate)
	}
	if c.cfg.OCRTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.OCRTimeout)
		defer cancel()
	}
	crop := imaging.Crop(img, region)
	raw, err := c.ocr.ExtractText(ctx, crop)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return raw, nil
}

func (c *Coordinator) resolve(ctx context.Context, raw, source string, region image.Rectangle, now time.Time) (*access.Decision, error) {
	plate, ok := utils.AcceptPlate(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoCandidate, raw)
	}

	ev := access.DetectionEvent{
		ID:         uuid.New(),
		Source:     source,
		Primary:    c.lastGood[primaryCam],
		Secondary:  c.lastGood[secondaryCam],
		Region:     region,
		RawText:    raw,
		Plate:      plate,
		DetectedAt: now,
	}

	d, err := c.processor.Process(ctx, ev)
	if err != nil {
		c.board.SetMessage(fmt.Sprintf("%s: processing failed, retrying", plate), now)
		return nil, err
	}
	c.board.SetDecision(*d, now)
	return d, nil
}

func (c *Coordinator) render(frame *access.Frame, region *image.Rectangle, now time.Time) {
	var status *Status
	if s, ok := c.board.Current(now); ok {
		status = &s
	}
	c.renderer.Render(frame, region, status)
}

// Run loops until ctx is cancelled. Externally submitted detections are
// handled between ticks on the same goroutine.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	close(c.running)
	c.log.Info().Dur("interval", c.cfg.Interval).Msg("capture loop started")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("capture loop stopped")
			return nil
		case sub := <-c.submissions:
			d, err := c.handleSubmission(ctx, sub)
			sub.reply <- submitResult{decision: d, err: err}
		case <-ticker.C:
			c.runTick(ctx)
		}
	}
}

func (c *Coordinator) runTick(ctx context.Context) {
	_, err := c.Tick(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoCandidate):
		c.log.Trace().Err(err).Msg("no candidate")
	case errors.Is(err, ErrAcquisition):
		c.log.Warn().Err(err).Msg("tick aborted")
		c.board.SetMessageIfIdle("camera unavailable", c.now())
	default:
		c.log.Warn().Err(err).Msg("tick failed")
	}
}

func (c *Coordinator) handleSubmission(ctx context.Context, sub submission) (*access.Decision, error) {
	now := c.now()
	if err := c.acquire(ctx, now); err != nil {
		// Evidence falls back to the last good frames.
		c.log.Debug().Err(err).Msg("frame refresh failed for external detection")
	}
	return c.resolve(ctx, sub.raw, sub.source, image.Rectangle{}, now)
}

// Submit hands a raw plate from an external recognizer to the loop and
// waits for its decision.
func (c *Coordinator) Submit(ctx context.Context, raw, source string) (*access.Decision, error) {
	select {
	case <-c.running:
	default:
		return nil, ErrStopped
	}
	if source == "" {
		source = SourceExternal
	}

	sub := submission{raw: raw, source: source, reply: make(chan submitResult, 1)}
	select {
	case c.submissions <- sub:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-sub.reply:
		return res.decision, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
