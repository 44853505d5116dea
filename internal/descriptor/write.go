package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/ini.v1"
)

// WriteSourceFile writes src as a SOURCE_INFO descriptor at path. Parent
// directories are created as needed.
func WriteSourceFile(path string, src SourceDescriptor) error {
	f := ini.Empty()
	sec, err := f.NewSection(SourceSection)
	if err != nil {
		return err
	}

	for _, kv := range [][2]string{
		{"path", src.Path},
		{"rate", strconv.FormatFloat(src.Rate, 'f', -1, 64)},
		{"in", strconv.Itoa(src.In)},
		{"duration", strconv.Itoa(src.Duration)},
		{"input_args", src.InputArgs},
	} {
		if _, err := sec.NewKey(kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to set %s: %w", kv[0], err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create descriptor directory: %w", err)
	}
	if err := f.SaveTo(path); err != nil {
		return fmt.Errorf("failed to write source descriptor: %w", err)
	}
	return nil
}
