package encoder

import (
	"path/filepath"
	"testing"

	"github.com/smazurov/enctests/internal/otio"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		source string
		symbol string
		want   string
	}{
		{"file", "/src/a.mov", "", "/enc/a-test_h264.mp4"},
		{"dotted file", "/src/shot.v2.mov", "", "/enc/shot.v2-test_h264.mp4"},
		{"sequence", "/src/b/b.%04d.exr", "%04d", "/enc/b-test_h264.mp4"},
		{"sequence underscore", "/src/b/b_%06d.exr", "%06d", "/enc/b-test_h264.mp4"},
		{"bare frames", "/src/plate/%04d.exr", "%04d", "/enc/plate-test_h264.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OutputPath("/enc", tt.source, tt.symbol, "test_h264", ".mp4")
			if got != filepath.FromSlash(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSourcePath(t *testing.T) {
	seq := &otio.ImageSequenceReference{
		TargetURLBase:    otio.DirToURL("/src/b"),
		NamePrefix:       "b.",
		NameSuffix:       ".exr",
		FrameZeroPadding: 4,
	}
	path, symbol := SourcePath(seq)
	if symbol != "%04d" {
		t.Errorf("expected %%04d, got %s", symbol)
	}
	if path != filepath.FromSlash("/src/b/b.%04d.exr") {
		t.Errorf("unexpected sequence path %s", path)
	}

	ext := &otio.ExternalReference{TargetURL: otio.PathToURL("/src/a b.mov")}
	path, symbol = SourcePath(ext)
	if symbol != "" || path != filepath.FromSlash("/src/a b.mov") {
		t.Errorf("unexpected file path %q symbol %q", path, symbol)
	}
}
