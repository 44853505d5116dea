package report

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/smazurov/enctests/internal/ffmpeg"
	"github.com/smazurov/enctests/internal/otio"
)

// DefaultMedia describes a track's source for templates.
type DefaultMedia struct {
	Name     string
	Basename string
	Path     string
	Kind     string
}

// Track is every row recorded for one clip name.
type Track struct {
	Name         string
	Results      []Row
	SourceInfo   *otio.SourceInfo
	DefaultMedia *DefaultMedia
}

// GroupByTrack groups rows by clip name in order of first appearance.
// Rows are never deduplicated.
func GroupByTrack(rows []Row) []*Track {
	var g grouper
	for _, row := range rows {
		t := g.track(row.Media)
		t.Results = append(t.Results, row)
	}
	return g.tracks
}

type grouper struct {
	tracks []*Track
	index  map[string]*Track
}

func (g *grouper) track(name string) *Track {
	if t, ok := g.index[name]; ok {
		return t
	}
	if g.index == nil {
		g.index = make(map[string]*Track)
	}
	t := &Track{Name: name}
	g.index[name] = t
	g.tracks = append(g.tracks, t)
	return t
}

// TestInfo describes where the results came from.
type TestInfo struct {
	// FFmpegVersion is the display form of the tool versions, comma separated.
	FFmpegVersion string
	ToolVersions  []string
	RunIDs        []string
	Host          *otio.HostInfo
	GeneratedAt   string
}

// Dataset is the aggregated content of one or more result documents.
type Dataset struct {
	Rows   []Row
	Tracks []*Track
	Info   TestInfo
}

// Collect aggregates result documents in the order given. A clip name seen
// in several documents yields a single track whose rows are the
// concatenation of every document's rows.
func Collect(colls ...*otio.Collection) *Dataset {
	ds := &Dataset{}
	var g grouper
	versions := make(map[string]bool)

	for _, coll := range colls {
		if coll == nil {
			continue
		}
		if run := coll.Metadata.Run; run != nil {
			if run.RunID != "" && !slices.Contains(ds.Info.RunIDs, run.RunID) {
				ds.Info.RunIDs = append(ds.Info.RunIDs, run.RunID)
			}
			if run.Host != nil {
				ds.Info.Host = run.Host
			}
			for _, v := range run.ToolVersions {
				versions[v] = true
			}
		}

		for _, clip := range coll.Clips {
			rows := FlattenClip(clip)
			t := g.track(clip.Name)
			t.Results = append(t.Results, rows...)
			if t.SourceInfo == nil && clip.Metadata.SourceInfo != nil {
				si := *clip.Metadata.SourceInfo
				t.SourceInfo = &si
			}
			if t.DefaultMedia == nil {
				t.DefaultMedia = defaultMedia(clip)
			}
			for _, row := range rows {
				versions[row.ToolVersion] = true
			}
			ds.Rows = append(ds.Rows, rows...)
		}
	}

	ds.Tracks = g.tracks
	for v := range versions {
		ds.Info.ToolVersions = append(ds.Info.ToolVersions, v)
	}
	slices.Sort(ds.Info.ToolVersions)
	display := make([]string, len(ds.Info.ToolVersions))
	for i, v := range ds.Info.ToolVersions {
		display[i] = ffmpeg.DisplayVersion(v)
	}
	ds.Info.FFmpegVersion = strings.Join(display, ", ")
	ds.Info.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	return ds
}

func defaultMedia(clip *otio.Clip) *DefaultMedia {
	ref := clip.MediaReference()
	if ref == nil {
		return nil
	}
	path, symbol := ref.LocalPath(""), ""
	if seq, ok := ref.(*otio.ImageSequenceReference); ok {
		symbol = seq.FrameSymbol()
		path = seq.LocalPath(symbol)
	}
	base := filepath.Base(path)
	return &DefaultMedia{
		Name:     clip.Name,
		Basename: strings.TrimSuffix(base, filepath.Ext(base)),
		Path:     path,
		Kind:     ref.Kind().String(),
	}
}
