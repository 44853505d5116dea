package report

import (
	"testing"

	"github.com/smazurov/enctests/internal/otio"
)

func TestGroupByTrackConcatenates(t *testing.T) {
	rows := []Row{
		{Name: "t1", Media: "a"},
		{Name: "t1", Media: "b"},
		{Name: "t2", Media: "a"},
		{Name: "t1", Media: "a"},
	}
	tracks := GroupByTrack(rows)
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].Name != "a" || tracks[1].Name != "b" {
		t.Errorf("expected tracks in first appearance order, got %s, %s", tracks[0].Name, tracks[1].Name)
	}
	if len(tracks[0].Results) != 3 {
		t.Errorf("expected 3 rows for a without dedup, got %d", len(tracks[0].Results))
	}
}

func TestCollectMergesDocumentsByTrackName(t *testing.T) {
	first := otio.NewCollection("first")
	a1 := sourceClip("a", "")
	addTest(a1, "test_h264", "ffmpeg_version_6.0", &otio.EncodeResult{EncodeTime: 1})
	first.Append(a1)
	first.Metadata.Run = &otio.RunInfo{RunID: "run-1", ToolVersions: []string{"ffmpeg_version_6.0"}}

	second := otio.NewCollection("second")
	a2 := sourceClip("a", "")
	addTest(a2, "test_h264", "ffmpeg_version_7.0", &otio.EncodeResult{EncodeTime: 2})
	b := sourceClip("b", "")
	addTest(b, "test_h264", "ffmpeg_version_7.0", &otio.EncodeResult{EncodeTime: 3})
	second.Append(a2)
	second.Append(b)
	second.Metadata.Run = &otio.RunInfo{
		RunID:        "run-2",
		ToolVersions: []string{"ffmpeg_version_7.0"},
		Host:         &otio.HostInfo{Hostname: "bench"},
	}

	ds := Collect(first, nil, second)

	if len(ds.Rows) != 3 {
		t.Errorf("expected 3 rows, got %d", len(ds.Rows))
	}
	if len(ds.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(ds.Tracks))
	}
	a := ds.Tracks[0]
	if a.Name != "a" || len(a.Results) != 2 {
		t.Errorf("expected track a with 2 rows, got %s with %d", a.Name, len(a.Results))
	}
	if a.Results[0].ToolVersion != "ffmpeg_version_6.0" || a.Results[1].ToolVersion != "ffmpeg_version_7.0" {
		t.Error("expected later documents to append to the existing track")
	}
	if a.SourceInfo == nil || a.SourceInfo.Path != "a.mov" {
		t.Errorf("expected source info on track, got %+v", a.SourceInfo)
	}
	if a.DefaultMedia == nil || a.DefaultMedia.Basename != "a" {
		t.Errorf("expected default media basename a, got %+v", a.DefaultMedia)
	}

	if ds.Info.FFmpegVersion != "6.0, 7.0" {
		t.Errorf("expected versions 6.0, 7.0, got %q", ds.Info.FFmpegVersion)
	}
	if len(ds.Info.RunIDs) != 2 {
		t.Errorf("expected 2 run ids, got %v", ds.Info.RunIDs)
	}
	if ds.Info.Host == nil || ds.Info.Host.Hostname != "bench" {
		t.Errorf("expected host from the latest document, got %+v", ds.Info.Host)
	}
}
