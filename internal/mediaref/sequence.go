package mediaref

import (
	"cmp"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
)

// frameName splits a file name around its last run of digits.
var frameName = regexp.MustCompile(`^(.*?)(\d+)(\D*)$`)

// SequenceNotFoundError is returned when a directory holds no numbered files.
type SequenceNotFoundError struct {
	Dir string
}

func (e *SequenceNotFoundError) Error() string {
	return fmt.Sprintf("no numbered frame sequence found in %s", e.Dir)
}

// Sequence is a run of numbered files sharing a prefix and suffix.
type Sequence struct {
	Prefix  string
	Suffix  string
	Start   int
	Padding int
	Frames  []int // sorted
}

// FindSequence scans dir for numbered files. Files are grouped by the text
// around their last digit run and the largest group wins; ties go to the
// group whose prefix and suffix sort first. Padding is the widest digit run
// in the group.
func FindSequence(dir string) (*Sequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sequence directory: %w", err)
	}

	groups := make(map[[2]string]*Sequence)
	for _, e := range entries {
		if e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		m := frameName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		frame, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}

		key := [2]string{m[1], m[3]}
		seq, ok := groups[key]
		if !ok {
			seq = &Sequence{Prefix: m[1], Suffix: m[3]}
			groups[key] = seq
		}
		seq.Frames = append(seq.Frames, frame)
		seq.Padding = max(seq.Padding, len(m[2]))
	}

	if len(groups) == 0 {
		return nil, &SequenceNotFoundError{Dir: dir}
	}

	keys := make([][2]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b [2]string) int {
		if c := cmp.Compare(len(groups[b].Frames), len(groups[a].Frames)); c != 0 {
			return c
		}
		if c := cmp.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return cmp.Compare(a[1], b[1])
	})

	best := groups[keys[0]]
	slices.Sort(best.Frames)
	best.Frames = slices.Compact(best.Frames)
	best.Start = best.Frames[0]
	return best, nil
}
