// Package mediaref turns a source path into an otio media reference.
//
// A path naming a regular file becomes an ExternalReference. A path naming a
// directory is searched for a numbered frame sequence and becomes an
// ImageSequenceReference. The choice depends only on what the path is on
// disk.
package mediaref

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/smazurov/enctests/internal/otio"
)

// Build creates a media reference for path. rate and duration describe the
// source for single files; sequences take their range from the frames found.
func Build(path string, rate float64, duration int) (otio.MediaReference, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source: %w", err)
	}

	if info.IsDir() {
		return buildSequence(abs, rate)
	}

	rng := otio.NewTimeRange(
		otio.NewRationalTime(0, rate),
		otio.NewRationalTime(float64(duration), rate),
	)
	return &otio.ExternalReference{
		ReferenceInfo: otio.ReferenceInfo{
			Name:           filepath.Base(abs),
			AvailableRange: &rng,
		},
		TargetURL: otio.PathToURL(abs),
	}, nil
}

func buildSequence(dir string, rate float64) (otio.MediaReference, error) {
	seq, err := FindSequence(dir)
	if err != nil {
		return nil, err
	}

	rng := otio.NewTimeRange(
		otio.NewRationalTime(float64(seq.Start), rate),
		otio.NewRationalTime(float64(len(seq.Frames)), rate),
	)
	return &otio.ImageSequenceReference{
		ReferenceInfo: otio.ReferenceInfo{
			Name:           filepath.Base(dir),
			AvailableRange: &rng,
		},
		TargetURLBase:    otio.DirToURL(dir),
		NamePrefix:       seq.Prefix,
		NameSuffix:       seq.Suffix,
		StartFrame:       seq.Start,
		FrameStep:        1,
		Rate:             rate,
		FrameZeroPadding: seq.Padding,
	}, nil
}

// Stem returns the clip identity for a source path: the base name without
// extension for files, the base name for directories.
func Stem(path string) string {
	base := filepath.Base(filepath.Clean(path))
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return base
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
