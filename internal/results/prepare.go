package results

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/smazurov/enctests/internal/descriptor"
	"github.com/smazurov/enctests/internal/mediaref"
	"github.com/smazurov/enctests/internal/otio"
)

// CollectionName is the name given to every result collection.
const CollectionName = otio.Namespace

// DuplicateClipError is returned when two sources resolve to the same clip
// name. Clip names identify tracks across result documents and must be unique.
type DuplicateClipError struct {
	Name  string
	File  string
	First string
}

func (e *DuplicateClipError) Error() string {
	return fmt.Sprintf("%s: clip %q already defined by %s", e.File, e.Name, e.First)
}

// Prepare builds one clip per source, in the order given. Paths are
// resolved against sourceFolder. Sources that fail to resolve are skipped and
// their errors joined into the returned error alongside the collection.
func Prepare(sources []descriptor.SourceDescriptor, sourceFolder string) (*otio.Collection, error) {
	coll := otio.NewCollection(CollectionName)
	origin := make(map[string]string, len(sources))

	var errs []error
	for _, src := range sources {
		clip, err := NewClip(src, sourceFolder)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.File, err))
			continue
		}
		if first, dup := origin[clip.Name]; dup {
			errs = append(errs, &DuplicateClipError{Name: clip.Name, File: src.File, First: first})
			continue
		}
		origin[clip.Name] = src.File
		coll.Append(clip)
	}
	return coll, errors.Join(errs...)
}

// NewClip builds the clip for a single source.
func NewClip(src descriptor.SourceDescriptor, sourceFolder string) (*otio.Clip, error) {
	path := filepath.Join(sourceFolder, src.Path)
	ref, err := mediaref.Build(path, src.Rate, src.Duration)
	if err != nil {
		return nil, err
	}

	clip := otio.NewClip(mediaref.Stem(path), ref)
	rng := otio.NewTimeRange(
		otio.NewRationalTime(float64(src.In), src.Rate),
		otio.NewRationalTime(float64(src.Duration), src.Rate),
	)
	clip.SourceRange = &rng
	clip.Metadata.SourceInfo = &otio.SourceInfo{
		Path:      src.Path,
		Rate:      src.Rate,
		In:        src.In,
		Duration:  src.Duration,
		InputArgs: src.InputArgs,
	}
	return clip, nil
}

// MergeInto folds fresh into prior and returns the collection to run
// against. With no prior document fresh is returned as is. Clips that exist
// only in prior are kept so their results stay in the document; pass
// ClipNames(fresh) as Options.Clips to leave them out of the run.
func MergeInto(prior, fresh *otio.Collection) *otio.Collection {
	if prior == nil {
		return fresh
	}
	prior.Merge(fresh)
	if prior.Name == "" {
		prior.Name = fresh.Name
	}
	return prior
}

// ClipNames returns the clip names of coll in order.
func ClipNames(coll *otio.Collection) []string {
	names := make([]string, 0, len(coll.Clips))
	for _, clip := range coll.Clips {
		names = append(names, clip.Name)
	}
	return names
}
