// Package inspect reports what a repackage run would do to each entry of an
// archive without changing anything.
package inspect

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG for DecodeConfig
	_ "image/png"  // Register PNG for DecodeConfig
	"strings"

	"retint/internal/archive"
	"retint/internal/repack"
	"retint/pkg/imgutil"
)

type Role int

const (
	RolePassThrough Role = iota
	RoleTarget
	RoleDirectory
)

func (r Role) String() string {
	switch r {
	case RoleTarget:
		return "target"
	case RoleDirectory:
		return "dir"
	default:
		return "copy"
	}
}

type Note struct {
	Kind    string
	Message string
}

type EntryReport struct {
	Path   string
	Size   int
	Role   Role
	Kind   imgutil.Kind
	Width  int
	Height int
	Digest archive.Digest
	Notes  []Note
}

type Report struct {
	Entries []EntryReport
	Targets int
	Images  int
	// Problems counts targets that would make a repackage fail.
	Problems int
}

// Archive builds a report for every entry of in, in stored order.
func Archive(in *archive.Archive, sel repack.Selector) Report {
	var report Report
	for _, e := range in.Entries() {
		er := entryReport(e, sel)
		if er.Role == RoleTarget {
			report.Targets++
			if er.Kind == imgutil.KindUnknown || er.Width == 0 {
				report.Problems++
			}
		}
		if er.Kind != imgutil.KindUnknown {
			report.Images++
		}
		report.Entries = append(report.Entries, er)
	}
	return report
}

func entryReport(e archive.Entry, sel repack.Selector) EntryReport {
	er := EntryReport{Path: e.Path, Size: len(e.Data)}
	if e.Dir {
		er.Role = RoleDirectory
		return er
	}
	er.Digest = archive.Sum(e.Data)
	if sel(e.Path) {
		er.Role = RoleTarget
	}

	kind, err := imgutil.DetectHeader(e.Data)
	if err != nil || kind == imgutil.KindUnknown {
		if er.Role == RoleTarget {
			er.Notes = append(er.Notes, Note{Kind: "Error", Message: "not a PNG or JPEG image; repackaging will fail"})
		}
		return er
	}
	er.Kind = kind

	cfg, _, err := image.DecodeConfig(bytes.NewReader(e.Data))
	if err != nil {
		if er.Role == RoleTarget {
			er.Notes = append(er.Notes, Note{Kind: "Error", Message: fmt.Sprintf("unreadable image header: %v", err)})
		}
		return er
	}
	er.Width, er.Height = cfg.Width, cfg.Height

	if er.Role == RoleTarget {
		er.Notes = append(er.Notes, metadataNotes(e.Data, kind)...)
		if pk := imgutil.KindFromPath(e.Path); pk != imgutil.KindUnknown && pk != kind {
			er.Notes = append(er.Notes, Note{
				Kind:    "Format",
				Message: fmt.Sprintf("contents are %s but the name says %s; output will be written as %s", kind, pk, pk),
			})
		}
	}
	return er
}

func metadataNotes(data []byte, kind imgutil.Kind) []Note {
	var notes []Note

	analysis, err := analyzeExif(bytes.NewReader(data))
	if err == nil && analysis.Tags > 0 {
		var extra []string
		if analysis.HasGPS {
			extra = append(extra, "GPS")
		}
		if analysis.HasModel {
			extra = append(extra, "device model")
		}
		if analysis.HasTimestamp {
			extra = append(extra, "timestamp")
		}
		msg := fmt.Sprintf("%d EXIF tags will be dropped on re-encode", analysis.Tags)
		if len(extra) > 0 {
			msg += " (" + strings.Join(extra, ", ") + ")"
		}
		notes = append(notes, Note{Kind: "Metadata", Message: msg})
	}

	if kind == imgutil.KindPNG {
		chunks, err := pngAncillary(bytes.NewReader(data))
		if err == nil && len(chunks) > 0 {
			notes = append(notes, Note{
				Kind:    "Metadata",
				Message: "PNG chunks dropped on re-encode: " + strings.Join(chunks, ", "),
			})
		}
	}
	return notes
}
