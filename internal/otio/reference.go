package otio

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ReferenceKind tells the two shapes of media apart.
type ReferenceKind int

// Reference kinds.
const (
	KindExternalFile ReferenceKind = iota
	KindImageSequence
)

func (k ReferenceKind) String() string {
	switch k {
	case KindExternalFile:
		return "external_file"
	case KindImageSequence:
		return "image_sequence"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ReferenceInfo holds the fields every media reference shares.
type ReferenceInfo struct {
	Name           string
	AvailableRange *TimeRange
	Metadata       ReferenceMetadata
}

// MediaReference points at playable media.
type MediaReference interface {
	Kind() ReferenceKind
	Info() *ReferenceInfo
	// LocalPath returns a filesystem path for the media. For image sequences
	// the frame number is replaced by symbol.
	LocalPath(symbol string) string
	Clone() MediaReference
}

// ExternalReference is a single media file.
type ExternalReference struct {
	ReferenceInfo
	TargetURL string
}

// Kind implements MediaReference.
func (r *ExternalReference) Kind() ReferenceKind { return KindExternalFile }

// Info implements MediaReference.
func (r *ExternalReference) Info() *ReferenceInfo { return &r.ReferenceInfo }

// LocalPath implements MediaReference.
func (r *ExternalReference) LocalPath(string) string {
	return URLToPath(r.TargetURL)
}

// Clone implements MediaReference.
func (r *ExternalReference) Clone() MediaReference {
	cp := *r
	cp.ReferenceInfo = r.ReferenceInfo.clone()
	return &cp
}

// ImageSequenceReference is a numbered run of image files in one directory.
type ImageSequenceReference struct {
	ReferenceInfo
	TargetURLBase    string
	NamePrefix       string
	NameSuffix       string
	StartFrame       int
	FrameStep        int
	Rate             float64
	FrameZeroPadding int
}

// Kind implements MediaReference.
func (r *ImageSequenceReference) Kind() ReferenceKind { return KindImageSequence }

// Info implements MediaReference.
func (r *ImageSequenceReference) Info() *ReferenceInfo { return &r.ReferenceInfo }

// Clone implements MediaReference.
func (r *ImageSequenceReference) Clone() MediaReference {
	cp := *r
	cp.ReferenceInfo = r.ReferenceInfo.clone()
	return &cp
}

// FrameSymbol returns the printf token matching the zero padding, e.g. %04d.
func (r *ImageSequenceReference) FrameSymbol() string {
	return fmt.Sprintf("%%0%dd", r.FrameZeroPadding)
}

// AbstractTargetURL returns the sequence URL with symbol in place of the frame number.
// The symbol is inserted verbatim.
func (r *ImageSequenceReference) AbstractTargetURL(symbol string) string {
	base := r.TargetURLBase
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + r.NamePrefix + symbol + r.NameSuffix
}

// LocalPath implements MediaReference.
func (r *ImageSequenceReference) LocalPath(symbol string) string {
	return filepath.Join(r.Dir(), r.NamePrefix+symbol+r.NameSuffix)
}

// Dir returns the local directory holding the frames.
func (r *ImageSequenceReference) Dir() string {
	return URLToPath(r.TargetURLBase)
}

// FrameCount returns the number of frames in the available range.
func (r *ImageSequenceReference) FrameCount() int {
	if r.AvailableRange == nil {
		return 0
	}
	return r.AvailableRange.Duration.ToFrames()
}

// FramePaths resolves every frame in the available range to a local path.
func (r *ImageSequenceReference) FramePaths() []string {
	n := r.FrameCount()
	step := r.FrameStep
	if step <= 0 {
		step = 1
	}
	dir := r.Dir()
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		paths = append(paths, filepath.Join(dir, r.NamePrefix+r.frameString(r.StartFrame+i*step)+r.NameSuffix))
	}
	return paths
}

func (r *ImageSequenceReference) frameString(frame int) string {
	if frame < 0 {
		return "-" + fmt.Sprintf("%0*d", r.FrameZeroPadding, -frame)
	}
	return fmt.Sprintf("%0*d", r.FrameZeroPadding, frame)
}

func (i ReferenceInfo) clone() ReferenceInfo {
	cp := i
	if i.AvailableRange != nil {
		r := *i.AvailableRange
		cp.AvailableRange = &r
	}
	cp.Metadata = i.Metadata.Clone()
	return cp
}

// PathToURL converts an absolute path into a file:// URL.
func PathToURL(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// DirToURL converts a directory into a file:// URL ending in a slash.
func DirToURL(dir string) string {
	s := PathToURL(dir)
	if !strings.HasSuffix(s, "/") {
		s += "/"
	}
	return s
}

// URLToPath converts a file:// URL back into a local path. Anything that does
// not parse as a file URL is returned unchanged.
func URLToPath(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "file" {
		return target
	}
	return filepath.FromSlash(u.Path)
}
