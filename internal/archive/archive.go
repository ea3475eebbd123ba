// Package archive loads and writes zip archives as ordered, in-memory lists
// of entries.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// Entry is one archive member. Dir entries carry no data.
type Entry struct {
	Path     string
	Data     []byte
	Modified time.Time
	Method   uint16
	Dir      bool
}

// Archive is an ordered set of entries with unique paths. It is never
// modified after construction; transformations build a new Archive.
type Archive struct {
	entries []Entry
	index   map[string]int
}

// LoadError reports an input archive that could not be read. Nothing has
// been processed when it is returned.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("load archive: %v", e.Err)
	}
	return fmt.Sprintf("load archive %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

var ErrDuplicatePath = errors.New("duplicate entry path")

// New builds an archive from entries, rejecting duplicate paths. The entry
// slice is copied.
func New(entries []Entry) (*Archive, error) {
	a := &Archive{
		entries: make([]Entry, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if e.Path == "" {
			return nil, fmt.Errorf("entry %d has an empty path", i)
		}
		if _, dup := a.index[e.Path]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePath, e.Path)
		}
		a.index[e.Path] = i
		a.entries[i] = e
	}
	return a, nil
}

// Load reads the zip file at path.
func Load(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	a, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = path
		}
		return nil, err
	}
	return a, nil
}

// Parse reads a zip archive held in memory.
func Parse(data []byte) (*Archive, error) {
	return Read(bytes.NewReader(data), int64(len(data)))
}

// Read reads a zip archive of the given size from r.
func Read(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		e := Entry{
			Path:     f.Name,
			Modified: f.Modified,
			Method:   f.Method,
			Dir:      f.FileInfo().IsDir(),
		}
		if !e.Dir {
			data, err := readFile(f)
			if err != nil {
				return nil, &LoadError{Err: fmt.Errorf("%s: %w", f.Name, err)}
			}
			e.Data = data
		}
		entries = append(entries, e)
	}

	a, err := New(entries)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	return a, nil
}

func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (a *Archive) Len() int { return len(a.entries) }

// Entries returns the entries in stored order. The slice is a copy; the
// payloads are shared and must not be modified.
func (a *Archive) Entries() []Entry {
	return append([]Entry(nil), a.entries...)
}

func (a *Archive) Entry(i int) Entry { return a.entries[i] }

// Lookup finds an entry by path.
func (a *Archive) Lookup(path string) (Entry, bool) {
	i, ok := a.index[path]
	if !ok {
		return Entry{}, false
	}
	return a.entries[i], true
}

// Paths lists entry paths in stored order.
func (a *Archive) Paths() []string {
	paths := make([]string, len(a.entries))
	for i, e := range a.entries {
		paths[i] = e.Path
	}
	return paths
}

// WriteTo serializes the archive as a zip stream, entries in stored order.
func (a *Archive) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	for _, e := range a.entries {
		hdr := &zip.FileHeader{
			Name:     e.Path,
			Method:   e.Method,
			Modified: e.Modified,
		}
		if e.Dir {
			if !strings.HasSuffix(hdr.Name, "/") {
				hdr.Name += "/"
			}
			hdr.Method = zip.Store
		} else if hdr.Method != zip.Store {
			hdr.Method = zip.Deflate
		}
		if hdr.Modified.IsZero() {
			hdr.Modified = time.Now()
		}

		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return cw.n, fmt.Errorf("write %s: %w", e.Path, err)
		}
		if e.Dir {
			continue
		}
		if _, err := fw.Write(e.Data); err != nil {
			return cw.n, fmt.Errorf("write %s: %w", e.Path, err)
		}
	}

	if err := zw.Close(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// Bytes serializes the archive into memory.
func (a *Archive) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := a.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the archive to path through a temporary file in the same
// directory, so a failed write never leaves a partial archive behind.
func (a *Archive) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, "retint-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name())

	if _, err := a.WriteTo(tmpFile); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return replaceFile(tmpFile.Name(), path)
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
