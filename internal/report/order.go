package report

import (
	"cmp"
	"slices"

	"github.com/smazurov/enctests/internal/descriptor"
)

// DefaultSortKey orders chart rows when a graph names no sort key.
const DefaultSortKey = "name"

// OrderRows returns a copy of rows in the order a graph is drawn with.
// With a color order the rows follow the position of their color value in
// that list; values not listed go last. Otherwise rows are sorted by the
// graph's sort key. Both sorts are stable.
func OrderRows(rows []Row, graph descriptor.GraphSpec) []Row {
	out := slices.Clone(rows)

	if len(graph.ColorOrder) > 0 {
		colorKey := graph.Arg("color")
		rank := func(r Row) int {
			if i := slices.Index(graph.ColorOrder, r.String(colorKey)); i >= 0 {
				return i
			}
			return len(graph.ColorOrder)
		}
		slices.SortStableFunc(out, func(a, b Row) int {
			return cmp.Compare(rank(a), rank(b))
		})
		return out
	}

	key := graph.SortBy
	if key == "" {
		key = DefaultSortKey
	}
	slices.SortStableFunc(out, func(a, b Row) int {
		return compareField(a, b, key)
	})
	return out
}

// compareField compares numerically when both values are numbers. Rows
// without the field go last.
func compareField(a, b Row, key string) int {
	_, hasA := a.Value(key)
	_, hasB := b.Value(key)
	if hasA != hasB {
		if hasA {
			return -1
		}
		return 1
	}
	fa, okA := a.Float(key)
	fb, okB := b.Float(key)
	if okA && okB {
		return cmp.Compare(fa, fb)
	}
	return cmp.Compare(a.String(key), b.String(key))
}
