package encoder

import (
	"path/filepath"
	"strings"

	"github.com/smazurov/enctests/internal/otio"
)

// SourcePath returns the encoder input for a source reference. For image
// sequences the frame number is replaced by a %0Nd pattern, which is also
// returned as symbol.
func SourcePath(ref otio.MediaReference) (path, symbol string) {
	if seq, ok := ref.(*otio.ImageSequenceReference); ok {
		symbol = seq.FrameSymbol()
		return seq.LocalPath(symbol), symbol
	}
	return ref.LocalPath(""), ""
}

// OutputPath returns <dir>/<stem>-<test><suffix>. The stem is the source
// file name without extension and without the frame pattern.
func OutputPath(dir, source, symbol, test, suffix string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if symbol != "" {
		stem = strings.TrimRight(strings.ReplaceAll(stem, symbol, ""), "._-")
		if stem == "" {
			stem = filepath.Base(filepath.Dir(source))
		}
	}
	return filepath.Join(dir, stem+"-"+test+suffix)
}
