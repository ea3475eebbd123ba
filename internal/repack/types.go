package repack

import (
	"fmt"
	"image"
	"log/slog"

	"retint/internal/archive"
)

// TransformFunc maps one decoded target image to its replacement.
type TransformFunc func(*image.NRGBA) (*image.NRGBA, error)

// DefaultJPEGQuality is used when Options.JPEGQuality is unset.
const DefaultJPEGQuality = 92

type Options struct {
	// Workers bounds concurrent decode/transform/encode. Zero means
	// runtime.NumCPU().
	Workers     int
	JPEGQuality int
	Logger      *slog.Logger
}

type Job struct {
	Index int
	Entry archive.Entry
}

type Result struct {
	Index int
	Entry archive.Entry
	Err   error
}

type Summary struct {
	Entries   int
	Targets   int
	Converted int
	Passed    int
	BytesIn   int64
	BytesOut  int64
}

type ProgressUpdate struct {
	TotalDelta     int
	ProcessedDelta int
	ErrorDelta     int
	BytesDelta     int64
	Path           string
}

// DecodeError reports a target entry whose payload is not a supported image.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Path, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a transformed image that could not be serialized.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("encode %s: %v", e.Path, e.Err) }
func (e *EncodeError) Unwrap() error { return e.Err }

// TransformError reports a failure returned by a TransformFunc.
type TransformError struct {
	Path string
	Err  error
}

func (e *TransformError) Error() string { return fmt.Sprintf("transform %s: %v", e.Path, e.Err) }
func (e *TransformError) Unwrap() error { return e.Err }
