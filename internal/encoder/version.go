package encoder

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/smazurov/enctests/internal/ffmpeg"
)

// ProbeVersion asks the encoder for its version and returns it as a
// metadata key, e.g. ffmpeg_version_6.1.1.
func ProbeVersion(ctx context.Context, bin string) (string, error) {
	args := ffmpeg.BuildVersionCommand(bin)
	output, err := exec.CommandContext(ctx, args[0], args[1:]...).Output()
	if err != nil {
		return "", fmt.Errorf("failed to query %s version: %w", bin, err)
	}
	version := ffmpeg.ParseVersion(output)
	if version == "" {
		return "", errors.New("encoder printed no version")
	}
	return version, nil
}
