package encoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/smazurov/enctests/internal/ffmpeg"
)

// MediaInfo is what ffprobe reports about a file's first video stream.
type MediaInfo struct {
	Rate   float64
	Frames int
}

type probeOutput struct {
	Streams []struct {
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
}

// ProbeMedia runs ffprobe on path.
func ProbeMedia(ctx context.Context, bin, path string) (MediaInfo, error) {
	args := ffmpeg.BuildProbeCommand(bin, path)
	output, err := exec.CommandContext(ctx, args[0], args[1:]...).Output()
	if err != nil {
		return MediaInfo{}, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	return ParseProbe(output)
}

// ParseProbe extracts rate and frame count from ffprobe JSON output. When
// the container does not store a frame count it is derived from duration.
func ParseProbe(data []byte) (MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return MediaInfo{}, fmt.Errorf("invalid ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return MediaInfo{}, errors.New("no video stream found")
	}
	s := out.Streams[0]

	rate := parseRatio(s.AvgFrameRate)
	if rate <= 0 {
		rate = parseRatio(s.RFrameRate)
	}
	if rate <= 0 {
		return MediaInfo{}, errors.New("stream has no frame rate")
	}

	info := MediaInfo{Rate: rate}
	if n, err := strconv.Atoi(s.NbFrames); err == nil {
		info.Frames = n
	} else if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
		info.Frames = int(math.Round(d * rate))
	}
	return info, nil
}

// parseRatio parses "30000/1001" or "24".
func parseRatio(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
