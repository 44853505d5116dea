package results

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/smazurov/enctests/internal/otio"
)

// DocumentSuffix is the extension of result documents.
const DocumentSuffix = ".otio"

// DocumentPath appends DocumentSuffix to path unless it is already there.
func DocumentPath(path string) string {
	if strings.HasSuffix(path, DocumentSuffix) {
		return path
	}
	return path + DocumentSuffix
}

// Load reads a result document. A missing file is not an error; it returns
// a nil collection.
func Load(path string) (*otio.Collection, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	coll, err := otio.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse results %s: %w", path, err)
	}
	return coll, nil
}

// Save writes coll to path, creating parent directories. The document is
// written to a temporary file first and renamed into place.
func Save(path string, coll *otio.Collection) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	var buf bytes.Buffer
	if err := otio.Encode(&buf, coll); err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, writeErr := tmp.Write(buf.Bytes()); writeErr != nil {
		tmp.Close()
		return fmt.Errorf("failed to write results: %w", writeErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		return fmt.Errorf("failed to write results: %w", closeErr)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}
