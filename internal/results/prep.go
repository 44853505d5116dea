package results

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/smazurov/enctests/internal/descriptor"
	"github.com/smazurov/enctests/internal/encoder"
	"github.com/smazurov/enctests/internal/logging"
	"github.com/smazurov/enctests/internal/mediaref"
)

// DefaultSequenceRate is written for image sequences, which carry no rate.
const DefaultSequenceRate = 24.0

// ProbeFunc reports rate and frame count of a media file.
type ProbeFunc func(ctx context.Context, path string) (encoder.MediaInfo, error)

// PrepSources writes a .source descriptor for every asset in sourceFolder that
// no existing descriptor points at. Files are probed with probe; directories
// are searched for a frame sequence. Assets that cannot be described are
// logged and skipped. It returns the descriptors written.
func PrepSources(ctx context.Context, sourceFolder string, probe ProbeFunc) ([]string, error) {
	logger := logging.GetLogger("results")

	entries, err := os.ReadDir(sourceFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to read source folder: %w", err)
	}

	existing, loadErr := descriptor.LoadSources(sourceFolder)
	if loadErr != nil {
		logger.Warn("Some source descriptors failed to load", "error", loadErr)
	}
	described := make(map[string]bool, len(existing))
	for _, src := range existing {
		described[filepath.Clean(src.Path)] = true
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var written []string
	var errs []error
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || described[name] {
			continue
		}
		ext := filepath.Ext(name)
		if ext == descriptor.SourceSuffix || ext == descriptor.TestSuffix {
			continue
		}

		path := filepath.Join(sourceFolder, name)
		target := filepath.Join(sourceFolder, mediaref.Stem(path)+descriptor.SourceSuffix)
		if _, statErr := os.Stat(target); statErr == nil {
			continue
		}

		src, ok := describe(ctx, path, name, entry.IsDir(), probe)
		if !ok {
			continue
		}
		if writeErr := descriptor.WriteSourceFile(target, src); writeErr != nil {
			errs = append(errs, writeErr)
			continue
		}
		logger.Info("Wrote source descriptor", "file", target, "rate", src.Rate, "duration", src.Duration)
		written = append(written, target)
	}

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return written, errors.Join(errs...)
}

func describe(ctx context.Context, path, name string, isDir bool, probe ProbeFunc) (descriptor.SourceDescriptor, bool) {
	logger := logging.GetLogger("results")
	src := descriptor.SourceDescriptor{Path: name}

	if isDir {
		seq, err := mediaref.FindSequence(path)
		if err != nil {
			logger.Debug("Directory holds no frame sequence", "dir", path, "error", err)
			return src, false
		}
		src.Rate = DefaultSequenceRate
		src.Duration = len(seq.Frames)
		src.InputArgs = fmt.Sprintf("-framerate %g -start_number %d", src.Rate, seq.Start)
		return src, true
	}

	if probe == nil || ctx.Err() != nil {
		return src, false
	}
	info, err := probe(ctx, path)
	if err != nil {
		logger.Warn("Failed to probe media, skipping", "file", path, "error", err)
		return src, false
	}
	if info.Frames <= 0 {
		logger.Warn("Probe found no frames, skipping", "file", path)
		return src, false
	}
	src.Rate = info.Rate
	src.Duration = info.Frames
	return src, true
}
