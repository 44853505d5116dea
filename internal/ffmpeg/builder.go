package ffmpeg

import (
	"errors"
	"fmt"
	"strconv"
)

// EncodeJob holds everything needed to run one encode.
type EncodeJob struct {
	Bin        string
	GlobalArgs []string // -hide_banner, -loglevel, etc.
	DecodeArgs string   // raw argument string placed before -i
	Input      string   // source file or sequence pattern
	Frames     int
	EncodeArgs string // raw argument string placed after -vframes
	Output     string
}

// BuildEncodeCommand builds the argument vector
//
//	<bin> [global] <decodeArgs> -i <input> -vframes <n> <encodeArgs> -y <output>
//
// Input and output are passed as single arguments, so paths with spaces need
// no quoting.
func BuildEncodeCommand(job EncodeJob) ([]string, error) {
	if job.Bin == "" {
		return nil, errors.New("encoder binary is required")
	}
	if job.Input == "" {
		return nil, errors.New("input path is required")
	}
	if job.Output == "" {
		return nil, errors.New("output path is required")
	}
	if job.Frames <= 0 {
		return nil, fmt.Errorf("frame count must be positive, got %d", job.Frames)
	}

	decode, err := SplitArgs(job.DecodeArgs)
	if err != nil {
		return nil, err
	}
	encode, err := SplitArgs(job.EncodeArgs)
	if err != nil {
		return nil, err
	}

	args := []string{job.Bin}
	args = append(args, job.GlobalArgs...)
	args = append(args, decode...)
	args = append(args, "-i", job.Input, "-vframes", strconv.Itoa(job.Frames))
	args = append(args, encode...)
	args = append(args, "-y", job.Output)
	return args, nil
}

// BuildVersionCommand returns the command that prints the encoder version.
func BuildVersionCommand(bin string) []string {
	return []string{bin, "-version", "-v", "quiet", "-hide_banner"}
}

// BuildProbeCommand returns an ffprobe command printing the first video
// stream's rate and frame count as JSON.
func BuildProbeCommand(bin, path string) []string {
	return []string{
		bin, "-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate,avg_frame_rate,nb_frames,duration",
		"-of", "json",
		path,
	}
}
