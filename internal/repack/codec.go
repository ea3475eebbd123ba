package repack

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"

	"retint/internal/archive"
	"retint/pkg/imgutil"
)

var ErrUnsupportedImage = errors.New("not a PNG or JPEG image")

// Decode turns a target payload into an NRGBA image.
func Decode(entry archive.Entry) (*image.NRGBA, imgutil.Kind, error) {
	kind, err := imgutil.DetectHeader(entry.Data)
	if err != nil {
		return nil, kind, &DecodeError{Path: entry.Path, Err: err}
	}
	if kind == imgutil.KindUnknown {
		return nil, kind, &DecodeError{Path: entry.Path, Err: ErrUnsupportedImage}
	}

	img, err := imaging.Decode(bytes.NewReader(entry.Data))
	if err != nil {
		return nil, kind, &DecodeError{Path: entry.Path, Err: err}
	}
	return imaging.Clone(img), kind, nil
}

// Encode serializes img in the format named by the entry's extension,
// falling back to the sniffed kind when the extension is not recognized.
func Encode(p string, img image.Image, sniffed imgutil.Kind, quality int) ([]byte, error) {
	kind := imgutil.KindFromPath(p)
	if kind == imgutil.KindUnknown {
		kind = sniffed
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var enc imgio.Encoder
	switch kind {
	case imgutil.KindPNG:
		enc = imgio.PNGEncoder()
	case imgutil.KindJPEG:
		enc = imgio.JPEGEncoder(quality)
	default:
		return nil, &EncodeError{Path: p, Err: fmt.Errorf("no encoder for %s", kind)}
	}

	var buf bytes.Buffer
	if err := enc(&buf, img); err != nil {
		return nil, &EncodeError{Path: p, Err: err}
	}
	return buf.Bytes(), nil
}

// Convert decodes, transforms and re-encodes a single target entry. The
// returned entry keeps the path, timestamp and compression method.
func Convert(entry archive.Entry, fn TransformFunc, quality int) (archive.Entry, error) {
	img, kind, err := Decode(entry)
	if err != nil {
		return archive.Entry{}, err
	}

	out, err := fn(img)
	if err != nil {
		return archive.Entry{}, &TransformError{Path: entry.Path, Err: err}
	}
	if out == nil {
		return archive.Entry{}, &TransformError{Path: entry.Path, Err: errors.New("transform returned no image")}
	}

	data, err := Encode(entry.Path, out, kind, quality)
	if err != nil {
		return archive.Entry{}, err
	}

	converted := entry
	converted.Data = data
	return converted, nil
}
