package transform

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"retint/internal/colorspace"
)

// DefaultTag names the library file used when no file exists for a hue tag.
const DefaultTag = "default"

var ErrNoLibraryImage = errors.New("no replacement image for hue")

// Library is a directory of replacement textures named by hue tag, such as
// red.png or blue.jpg, with an optional default.png fallback.
type Library struct {
	dir   string
	files map[string]string
}

// OpenLibrary indexes the images in dir. Files whose base name is not a hue
// tag or DefaultTag are ignored.
func OpenLibrary(dir string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read replacement library: %w", err)
	}

	known := map[string]bool{DefaultTag: true}
	for _, tag := range colorspace.HueTags() {
		known[tag] = true
	}

	lib := &Library{dir: dir, files: make(map[string]string)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch strings.ToLower(filepath.Ext(name)) {
		case ".png", ".jpg", ".jpeg":
		default:
			continue
		}
		tag := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		if !known[tag] {
			continue
		}
		if _, dup := lib.files[tag]; dup {
			return nil, fmt.Errorf("replacement library has more than one image for %q", tag)
		}
		lib.files[tag] = filepath.Join(dir, name)
	}
	return lib, nil
}

// Tags lists the tags that have an image, excluding the default.
func (l *Library) Tags() []string {
	var tags []string
	for _, tag := range colorspace.HueTags() {
		if _, ok := l.files[tag]; ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Lookup loads the replacement for the hue tag of deg.
func (l *Library) Lookup(deg float64) (Replacement, error) {
	tag := colorspace.HueTag(deg)
	path, ok := l.files[tag]
	if !ok {
		path, ok = l.files[DefaultTag]
	}
	if !ok {
		return Replacement{}, fmt.Errorf("%w %v (%s) in %s", ErrNoLibraryImage, deg, tag, l.dir)
	}

	img, err := LoadReplacement(path)
	if err != nil {
		return Replacement{}, err
	}
	return Replacement{Tag: tag, Image: img}, nil
}

// LoadReplacement decodes a single replacement texture from disk.
func LoadReplacement(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load replacement %s: %w", path, err)
	}
	return img, nil
}
