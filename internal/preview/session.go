// Package preview renders before/after thumbnails of transform targets one
// batch at a time.
package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"retint/internal/archive"
	"retint/internal/batch"
	"retint/internal/repack"
)

// Policy decides what happens to earlier previews when a new batch is shown.
type Policy int

const (
	// PolicyReplace removes the previous batch's files before writing the
	// next batch, so the directory only ever shows one batch.
	PolicyReplace Policy = iota
	// PolicyAppend keeps every batch rendered so far.
	PolicyAppend
)

func (p Policy) String() string {
	if p == PolicyAppend {
		return "append"
	}
	return "replace"
}

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "replace":
		return PolicyReplace, nil
	case "append":
		return PolicyAppend, nil
	default:
		return PolicyReplace, fmt.Errorf("unknown preview policy %q (want replace or append)", s)
	}
}

const (
	DefaultThumbSize = 128
	thumbGap         = 8
)

type Options struct {
	Dir       string
	BatchSize int
	ThumbSize int
	Policy    Policy
	Logger    *slog.Logger
}

// Step describes the outcome of one Advance.
type Step struct {
	Range    batch.Range
	Advanced bool
	Written  []string
	Removed  []string
}

// Session walks the targets of one archive in batches.
type Session struct {
	in      *archive.Archive
	targets []int
	sched   *batch.Scheduler
	fn      repack.TransformFunc
	opts    Options
	logger  *slog.Logger
	visible []string
}

var ErrNoDir = errors.New("preview directory required")

func NewSession(in *archive.Archive, sel repack.Selector, fn repack.TransformFunc, opts Options) (*Session, error) {
	if opts.Dir == "" {
		return nil, ErrNoDir
	}
	if opts.ThumbSize <= 0 {
		opts.ThumbSize = DefaultThumbSize
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	targets := repack.Targets(in, sel)
	return &Session{
		in:      in,
		targets: targets,
		sched:   batch.New(len(targets), opts.BatchSize),
		fn:      fn,
		opts:    opts,
		logger:  logger,
	}, nil
}

func (s *Session) Total() int      { return len(s.targets) }
func (s *Session) BatchSize() int  { return s.sched.Size() }
func (s *Session) Batches() int    { return s.sched.Batches() }
func (s *Session) BatchIndex() int { return s.sched.Index() }
func (s *Session) Done() bool      { return s.sched.Done() }
func (s *Session) Remaining() int  { return s.sched.Remaining() }
func (s *Session) Policy() Policy  { return s.opts.Policy }
func (s *Session) Dir() string     { return s.opts.Dir }

// Files lists the preview files currently on disk, oldest first.
func (s *Session) Files() []string {
	return append([]string(nil), s.visible...)
}

// TargetPath returns the archive path of the i-th target.
func (s *Session) TargetPath(i int) string {
	return s.in.Entry(s.targets[i]).Path
}

// Advance renders the next batch. When every target has already been shown
// it returns a Step with Advanced false and touches nothing.
func (s *Session) Advance(ctx context.Context) (Step, error) {
	if s.sched.Done() {
		return Step{}, nil
	}

	var step Step
	if s.opts.Policy == PolicyReplace {
		removed, err := s.clear()
		step.Removed = removed
		if err != nil {
			return step, err
		}
	}

	r, ok, err := s.sched.Run(ctx, func(_ context.Context, i int) error {
		name, err := s.render(i)
		if err != nil {
			return err
		}
		s.visible = append(s.visible, name)
		step.Written = append(step.Written, name)
		return nil
	})
	step.Range = r
	step.Advanced = ok
	if err != nil {
		return step, err
	}
	s.logger.Debug("preview batch rendered", "batch", r.Index, "start", r.Start, "end", r.End, "files", len(step.Written))
	return step, nil
}

func (s *Session) clear() ([]string, error) {
	var removed []string
	for _, name := range s.visible {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove preview %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	s.visible = nil
	return removed, nil
}

func (s *Session) render(i int) (string, error) {
	entry := s.in.Entry(s.targets[i])
	before, _, err := repack.Decode(entry)
	if err != nil {
		return "", err
	}
	after, err := s.fn(before)
	if err != nil {
		return "", &repack.TransformError{Path: entry.Path, Err: err}
	}

	sheet := SideBySide(before, after, s.opts.ThumbSize)
	name := filepath.Join(s.opts.Dir, fmt.Sprintf("%04d_%s.png", i, flatten(entry.Path)))
	if err := imaging.Save(sheet, name); err != nil {
		return "", &repack.EncodeError{Path: entry.Path, Err: err}
	}
	return name, nil
}

// SideBySide places thumbnails of before and after next to each other on a
// transparent canvas.
func SideBySide(before, after image.Image, size int) *image.NRGBA {
	left := Thumbnail(before, size)
	right := Thumbnail(after, size)

	canvas := imaging.New(2*size+thumbGap, size, color.NRGBA{})
	canvas = imaging.Paste(canvas, left, centered(left.Bounds(), size, 0))
	canvas = imaging.Paste(canvas, right, centered(right.Bounds(), size, size+thumbGap))
	return canvas
}

// Thumbnail fits img into a size x size box. Images smaller than the box
// are scaled up by a whole factor with nearest-neighbor sampling so pixel
// art stays sharp.
func Thumbnail(img image.Image, size int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return imaging.New(1, 1, color.NRGBA{})
	}
	if w <= size && h <= size {
		factor := size / max(w, h)
		if factor <= 1 {
			return imaging.Clone(img)
		}
		return imaging.Resize(img, w*factor, h*factor, imaging.NearestNeighbor)
	}
	return imaging.Fit(img, size, size, imaging.Lanczos)
}

func centered(b image.Rectangle, size, offsetX int) image.Point {
	return image.Pt(offsetX+(size-b.Dx())/2, (size-b.Dy())/2)
}

func flatten(p string) string {
	p = strings.TrimSuffix(p, filepath.Ext(p))
	return strings.NewReplacer("/", "__", "\\", "__", " ", "_").Replace(p)
}
