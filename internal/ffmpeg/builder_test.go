package ffmpeg

import (
	"reflect"
	"testing"
)

func TestBuildEncodeCommand(t *testing.T) {
	tests := []struct {
		name string
		job  EncodeJob
		want []string
	}{
		{
			name: "single file",
			job: EncodeJob{
				Bin:        "ffmpeg",
				DecodeArgs: "-r 24",
				Input:      "/src/a.mov",
				Frames:     48,
				EncodeArgs: "-c:v libx264 -crf 23",
				Output:     "/out/a-test_h264.mp4",
			},
			want: []string{"ffmpeg", "-r", "24", "-i", "/src/a.mov", "-vframes", "48",
				"-c:v", "libx264", "-crf", "23", "-y", "/out/a-test_h264.mp4"},
		},
		{
			name: "sequence with spaces and global args",
			job: EncodeJob{
				Bin:        "/opt/ffmpeg",
				GlobalArgs: []string{"-hide_banner", "-loglevel", "level+info"},
				DecodeArgs: "-start_number 1001",
				Input:      "/my sources/b/b.%04d.exr",
				Frames:     5,
				EncodeArgs: `-vf "scale=1920:-2, format=yuv420p"`,
				Output:     "/out dir/b-test.mp4",
			},
			want: []string{"/opt/ffmpeg", "-hide_banner", "-loglevel", "level+info",
				"-start_number", "1001", "-i", "/my sources/b/b.%04d.exr", "-vframes", "5",
				"-vf", "scale=1920:-2, format=yuv420p", "-y", "/out dir/b-test.mp4"},
		},
		{
			name: "single frame",
			job:  EncodeJob{Bin: "ffmpeg", Input: "in.mov", Frames: 1, Output: "out.mp4"},
			want: []string{"ffmpeg", "-i", "in.mov", "-vframes", "1", "-y", "out.mp4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildEncodeCommand(tt.job)
			if err != nil {
				t.Fatalf("BuildEncodeCommand() failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildEncodeCommand()\n got %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestBuildEncodeCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		job  EncodeJob
	}{
		{"missing binary", EncodeJob{Input: "a", Frames: 1, Output: "b"}},
		{"missing input", EncodeJob{Bin: "ffmpeg", Frames: 1, Output: "b"}},
		{"missing output", EncodeJob{Bin: "ffmpeg", Input: "a", Frames: 1}},
		{"no frame count", EncodeJob{Bin: "ffmpeg", Input: "a", Output: "b"}},
		{"negative frame count", EncodeJob{Bin: "ffmpeg", Input: "a", Frames: -2, Output: "b"}},
		{"unclosed quote", EncodeJob{Bin: "ffmpeg", Input: "a", Frames: 1, Output: "b", EncodeArgs: `-vf "scale`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildEncodeCommand(tt.job); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestBuildVersionCommand(t *testing.T) {
	want := []string{"ffmpeg", "-version", "-v", "quiet", "-hide_banner"}
	if got := BuildVersionCommand("ffmpeg"); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
