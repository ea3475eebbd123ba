package repack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"retint/internal/archive"
	"retint/internal/transform"
	"retint/pkg/imgutil"
)

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := c
			px.A = uint8((x*40 + y*20) % 256)
			img.SetNRGBA(x, y, px)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 200, 40, 40, 255
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func decodeNRGBA(t *testing.T, data []byte) *image.NRGBA {
	t.Helper()
	e := archive.Entry{Path: "x.png", Data: data}
	img, _, err := Decode(e)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return img
}

func mustArchive(t *testing.T, entries ...archive.Entry) *archive.Archive {
	t.Helper()
	a, err := archive.New(entries)
	if err != nil {
		t.Fatalf("archive.New: %v", err)
	}
	return a
}

func recolorFunc(t *testing.T, adj transform.Adjustment) TransformFunc {
	t.Helper()
	fn, err := transform.Func(transform.Config{Mode: transform.ModeRecolor, Adjust: adj})
	if err != nil {
		t.Fatalf("transform.Func: %v", err)
	}
	return fn
}

func TestRepackagePreservesEntries(t *testing.T) {
	original := pngBytes(t, 5, 3, color.NRGBA{R: 220, G: 30, B: 10})
	other := pngBytes(t, 2, 2, color.NRGBA{B: 255})
	in := mustArchive(t,
		archive.Entry{Path: "a.txt", Data: []byte("readme")},
		archive.Entry{Path: "textures/item/x.png", Data: original},
		archive.Entry{Path: "b/other.png", Data: other},
	)

	out, summary, err := Repackage(context.Background(), in, ContainsSelector("textures/item"),
		recolorFunc(t, transform.Adjustment{HueShift: 120, Saturation: 1, Brightness: 1}), Options{}, nil)
	if err != nil {
		t.Fatalf("Repackage: %v", err)
	}

	wantPaths := []string{"a.txt", "textures/item/x.png", "b/other.png"}
	gotPaths := out.Paths()
	if len(gotPaths) != len(wantPaths) {
		t.Fatalf("got paths %v", gotPaths)
	}
	for i := range wantPaths {
		if gotPaths[i] != wantPaths[i] {
			t.Fatalf("path %d: got %q, want %q", i, gotPaths[i], wantPaths[i])
		}
	}

	cmp := archive.Compare(in, out)
	if len(cmp.Changed) != 1 || cmp.Changed[0] != "textures/item/x.png" {
		t.Fatalf("changed = %v", cmp.Changed)
	}

	before := decodeNRGBA(t, original)
	after := decodeNRGBA(t, out.Entry(1).Data)
	if before.Bounds() != after.Bounds() {
		t.Fatalf("bounds changed: %v -> %v", before.Bounds(), after.Bounds())
	}
	for i := 3; i < len(before.Pix); i += 4 {
		if before.Pix[i] != after.Pix[i] {
			t.Fatalf("alpha changed at %d", i)
		}
	}

	if summary.Entries != 3 || summary.Targets != 1 || summary.Converted != 1 || summary.Passed != 2 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRepackageManyTargetsKeepsOrder(t *testing.T) {
	var entries []archive.Entry
	for i := 0; i < 40; i++ {
		entries = append(entries, archive.Entry{
			Path: fmt.Sprintf("assets/textures/item/%02d.png", i),
			Data: pngBytes(t, 2+i%3, 2, color.NRGBA{R: uint8(i * 6), G: 90, B: 30}),
		})
		entries = append(entries, archive.Entry{Path: fmt.Sprintf("assets/lang/%02d.json", i), Data: []byte("{}")})
	}
	in := mustArchive(t, entries...)

	updates := make(chan ProgressUpdate, 256)
	out, summary, err := Repackage(context.Background(), in, DefaultSelector(),
		recolorFunc(t, transform.Adjustment{Saturation: 0.5, Brightness: 1}), Options{Workers: 4}, updates)
	close(updates)
	if err != nil {
		t.Fatalf("Repackage: %v", err)
	}

	for i, p := range out.Paths() {
		if p != entries[i].Path {
			t.Fatalf("entry %d: got %q, want %q", i, p, entries[i].Path)
		}
	}
	if summary.Converted != 40 || summary.Passed != 40 {
		t.Fatalf("summary = %+v", summary)
	}

	total, processed := 0, 0
	for u := range updates {
		total += u.TotalDelta
		processed += u.ProcessedDelta
	}
	if total != 40 || processed != 40 {
		t.Fatalf("progress total=%d processed=%d", total, processed)
	}
}

func TestRepackageDecodeErrorAborts(t *testing.T) {
	in := mustArchive(t,
		archive.Entry{Path: "textures/item/good.png", Data: pngBytes(t, 2, 2, color.NRGBA{R: 10})},
		archive.Entry{Path: "textures/item/bad.png", Data: []byte("this is not a png at all")},
	)

	out, _, err := Repackage(context.Background(), in, DefaultSelector(),
		recolorFunc(t, transform.Identity()), Options{Workers: 1}, nil)
	if out != nil {
		t.Fatal("no archive may be returned on failure")
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("got %v, want *DecodeError", err)
	}
	if de.Path != "textures/item/bad.png" {
		t.Fatalf("DecodeError path = %q", de.Path)
	}
}

func TestRepackageTruncatedPNG(t *testing.T) {
	data := pngBytes(t, 8, 8, color.NRGBA{G: 200})
	in := mustArchive(t, archive.Entry{Path: "textures/item/cut.png", Data: data[:len(data)/2]})

	_, _, err := Repackage(context.Background(), in, DefaultSelector(), recolorFunc(t, transform.Identity()), Options{}, nil)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("got %v, want *DecodeError", err)
	}
}

func TestRepackageTransformError(t *testing.T) {
	in := mustArchive(t, archive.Entry{Path: "textures/item/a.png", Data: pngBytes(t, 2, 2, color.NRGBA{})})
	boom := errors.New("boom")

	_, _, err := Repackage(context.Background(), in, DefaultSelector(),
		func(*image.NRGBA) (*image.NRGBA, error) { return nil, boom }, Options{}, nil)
	var te *TransformError
	if !errors.As(err, &te) || !errors.Is(err, boom) {
		t.Fatalf("got %v, want TransformError wrapping boom", err)
	}
}

func TestRepackageCanceled(t *testing.T) {
	in := mustArchive(t, archive.Entry{Path: "textures/item/a.png", Data: pngBytes(t, 2, 2, color.NRGBA{})})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, _, err := Repackage(ctx, in, DefaultSelector(), recolorFunc(t, transform.Identity()), Options{}, nil)
	if out != nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, %v; want canceled", out, err)
	}
}

func TestRepackageNoTargets(t *testing.T) {
	in := mustArchive(t,
		archive.Entry{Path: "dir/", Dir: true},
		archive.Entry{Path: "dir/readme.md", Data: []byte("# hi")},
	)
	out, summary, err := Repackage(context.Background(), in, DefaultSelector(), recolorFunc(t, transform.Identity()), Options{}, nil)
	if err != nil {
		t.Fatalf("Repackage: %v", err)
	}
	if cmp := archive.Compare(in, out); len(cmp.Unchanged) != 2 {
		t.Fatalf("comparison %+v", cmp)
	}
	if summary.Targets != 0 || summary.Passed != 2 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRepackageJPEGTarget(t *testing.T) {
	in := mustArchive(t, archive.Entry{Path: "textures/item/photo.jpg", Data: jpegBytes(t, 8, 8)})

	out, _, err := Repackage(context.Background(), in, ContainsSelector("textures/item"),
		recolorFunc(t, transform.Adjustment{HueShift: 180, Saturation: 1, Brightness: 1}), Options{JPEGQuality: 80}, nil)
	if err != nil {
		t.Fatalf("Repackage: %v", err)
	}
	data := out.Entry(0).Data
	kind, err := imgutil.DetectHeader(data)
	if err != nil || kind != imgutil.KindJPEG {
		t.Fatalf("output kind %v, %v", kind, err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Fatalf("bounds %v", img.Bounds())
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	_, err := Encode("x.gif", image.NewNRGBA(image.Rect(0, 0, 1, 1)), imgutil.KindUnknown, 0)
	var ee *EncodeError
	if !errors.As(err, &ee) {
		t.Fatalf("got %v, want *EncodeError", err)
	}
}

func TestEncodeFallsBackToSniffedKind(t *testing.T) {
	data, err := Encode("textures/item/sprite", image.NewNRGBA(image.Rect(0, 0, 1, 1)), imgutil.KindPNG, 0)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if kind, _ := imgutil.DetectHeader(data); kind != imgutil.KindPNG {
		t.Fatalf("got %v, want png", kind)
	}
}
