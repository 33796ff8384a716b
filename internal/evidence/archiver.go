package evidence

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"gate-access-service/internal/domain/access"
)

var ErrNoFrames = errors.New("no frames to archive")

const (
	dayLayout  = "2006-01-02"
	timeLayout = "150405"
)

// Archiver writes the evidence frame pair of a decision under
// root/<category>[_secondary]/<YYYY-MM-DD>/<PLATE>_<HHMMSS>.<ext>.
type Archiver struct {
	fs     afero.Fs
	root   string
	ext    string
	format imaging.Format
	loc    *time.Location
	log    zerolog.Logger
}

func NewArchiver(fs afero.Fs, root, ext string, loc *time.Location, log zerolog.Logger) (*Archiver, error) {
	if ext == "" {
		ext = "jpg"
	}
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return nil, fmt.Errorf("unsupported evidence extension %q: %w", ext, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Archiver{
		fs:     fs,
		root:   root,
		ext:    ext,
		format: format,
		loc:    loc,
		log:    log.With().Str("component", "evidence").Logger(),
	}, nil
}

// Path returns the destination of a frame without writing anything.
func (a *Archiver) Path(plate string, outcome access.Outcome, secondary bool, now time.Time) string {
	category := outcome.Category()
	if secondary {
		category += "_secondary"
	}
	local := now.In(a.loc)
	name := fmt.Sprintf("%s_%s.%s", plate, local.Format(timeLayout), a.ext)
	return filepath.Join(a.root, category, local.Format(dayLayout), name)
}

// Archive writes whichever frames are present. A frame that is missing or
// fails to write yields a nil path; the returned error describes failures.
func (a *Archiver) Archive(plate string, outcome access.Outcome, primary, secondary *access.Frame, now time.Time) (access.Evidence, error) {
	var ev access.Evidence
	if outcome.Category() == "" {
		return ev, fmt.Errorf("outcome %s is not archived", outcome)
	}
	if !hasImage(primary) && !hasImage(secondary) {
		return ev, ErrNoFrames
	}

	var errs []error
	if hasImage(primary) {
		path, err := a.write(a.Path(plate, outcome, false, now), primary)
		if err != nil {
			errs = append(errs, fmt.Errorf("primary: %w", err))
		} else {
			ev.Primary = &path
		}
	}
	if hasImage(secondary) {
		path, err := a.write(a.Path(plate, outcome, true, now), secondary)
		if err != nil {
			errs = append(errs, fmt.Errorf("secondary: %w", err))
		} else {
			ev.Secondary = &path
		}
	}

	return ev, errors.Join(errs...)
}

func (a *Archiver) write(path string, frame *access.Frame) (string, error) {
	if err := a.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	if exists, _ := afero.Exists(a.fs, path); exists {
		// Same plate within the same second; the newer frame wins.
		a.log.Warn().Str("path", path).Msg("overwriting evidence file")
	}

	f, err := a.fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if err := imaging.Encode(f, frame.Image, a.format); err != nil {
		f.Close()
		_ = a.fs.Remove(path)
		return "", fmt.Errorf("encode frame: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = a.fs.Remove(path)
		return "", fmt.Errorf("close file: %w", err)
	}

	a.log.Debug().Str("path", path).Str("camera", frame.Camera).Msg("evidence written")
	return path, nil
}

func hasImage(f *access.Frame) bool {
	return f != nil && f.Image != nil
}
