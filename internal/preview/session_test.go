package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"retint/internal/archive"
	"retint/internal/repack"
	"retint/internal/transform"
)

func texture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 180, 60, 20, 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func packWithTargets(t *testing.T, n int) *archive.Archive {
	t.Helper()
	entries := []archive.Entry{{Path: "pack.mcmeta", Data: []byte("{}")}}
	for i := 0; i < n; i++ {
		entries = append(entries, archive.Entry{
			Path: fmt.Sprintf("assets/textures/item/t%03d.png", i),
			Data: texture(t, 16, 16),
		})
	}
	a, err := archive.New(entries)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func hueFunc(t *testing.T) repack.TransformFunc {
	t.Helper()
	fn, err := transform.Func(transform.Config{Adjust: transform.Adjustment{HueShift: 90, Saturation: 1, Brightness: 1}})
	if err != nil {
		t.Fatal(err)
	}
	return fn
}

func countPNG(t *testing.T, dir string) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		t.Fatal(err)
	}
	return len(matches)
}

func TestSessionReplacePolicy(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSession(packWithTargets(t, 5), repack.DefaultSelector(), hueFunc(t),
		Options{Dir: dir, BatchSize: 2, ThumbSize: 32})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if s.Total() != 5 || s.Batches() != 3 {
		t.Fatalf("total=%d batches=%d", s.Total(), s.Batches())
	}

	wantSizes := []int{2, 2, 1}
	for i, want := range wantSizes {
		step, err := s.Advance(context.Background())
		if err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		if !step.Advanced || len(step.Written) != want {
			t.Fatalf("advance %d: %+v", i, step)
		}
		if got := countPNG(t, dir); got != want {
			t.Fatalf("advance %d: %d files on disk, want %d", i, got, want)
		}
		if len(s.Files()) != want {
			t.Fatalf("advance %d: Files() = %v", i, s.Files())
		}
	}

	step, err := s.Advance(context.Background())
	if err != nil || step.Advanced {
		t.Fatalf("advance past end: %+v, %v", step, err)
	}
	if countPNG(t, dir) != 1 {
		t.Fatal("no-op advance must not touch previews")
	}
}

func TestSessionAppendPolicy(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSession(packWithTargets(t, 5), repack.DefaultSelector(), hueFunc(t),
		Options{Dir: dir, BatchSize: 2, ThumbSize: 32, Policy: PolicyAppend})
	if err != nil {
		t.Fatal(err)
	}
	for s.Remaining() > 0 {
		if _, err := s.Advance(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := countPNG(t, dir); got != 5 {
		t.Fatalf("%d files on disk, want 5", got)
	}
	if !s.Done() || s.BatchIndex() != 3 {
		t.Fatalf("done=%v index=%d", s.Done(), s.BatchIndex())
	}
}

func TestSessionSheetLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSession(packWithTargets(t, 1), repack.DefaultSelector(), hueFunc(t),
		Options{Dir: dir, ThumbSize: 64})
	if err != nil {
		t.Fatal(err)
	}
	step, err := s.Advance(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(step.Written[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 2*64+thumbGap || cfg.Height != 64 {
		t.Fatalf("sheet is %dx%d", cfg.Width, cfg.Height)
	}
	if filepath.Base(step.Written[0]) != "0000_assets__textures__item__t000.png" {
		t.Fatalf("unexpected name %s", filepath.Base(step.Written[0]))
	}
}

func TestSessionDecodeError(t *testing.T) {
	a, err := archive.New([]archive.Entry{{Path: "textures/item/broken.png", Data: []byte("garbage bytes")}})
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewSession(a, repack.DefaultSelector(), hueFunc(t), Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Advance(context.Background())
	var de *repack.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("got %v, want *repack.DecodeError", err)
	}
}

func TestNewSessionRequiresDir(t *testing.T) {
	a, _ := archive.New(nil)
	if _, err := NewSession(a, repack.DefaultSelector(), hueFunc(t), Options{}); !errors.Is(err, ErrNoDir) {
		t.Fatalf("got %v", err)
	}
}

func TestThumbnail(t *testing.T) {
	small := image.NewNRGBA(image.Rect(0, 0, 16, 8))
	if b := Thumbnail(small, 64).Bounds(); b.Dx() != 64 || b.Dy() != 32 {
		t.Fatalf("upscaled bounds %v", b)
	}
	large := image.NewNRGBA(image.Rect(0, 0, 300, 150))
	if b := Thumbnail(large, 100).Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("downscaled bounds %v", b)
	}
	odd := image.NewNRGBA(image.Rect(0, 0, 70, 70))
	if b := Thumbnail(odd, 100).Bounds(); b.Dx() != 70 {
		t.Fatalf("factor 1 should keep size, got %v", b)
	}
	if b := Thumbnail(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 10).Bounds(); b.Dx() != 1 {
		t.Fatalf("empty image bounds %v", b)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy("append"); err != nil || p != PolicyAppend {
		t.Fatalf("got %v %v", p, err)
	}
	if p, err := ParsePolicy(""); err != nil || p != PolicyReplace {
		t.Fatalf("got %v %v", p, err)
	}
	if _, err := ParsePolicy("merge"); err == nil {
		t.Fatal("expected error")
	}
}
