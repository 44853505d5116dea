package report

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/smazurov/enctests/internal/descriptor"
)

// DefaultChartExt is added to graph file names without an extension.
const DefaultChartExt = ".png"

const (
	defaultWidth  = 8 * vg.Inch
	defaultHeight = 5 * vg.Inch
	groupWidth    = 48 // points shared by the bars of one category
)

var errNoPoints = errors.New("no numeric values to plot")

type series struct {
	name string
	rows []Row
}

// RenderChart draws rows as declared by graph and writes the image to
// path. The format follows the file extension. Recognized args: x, y, color,
// title, labels (field to axis label), width and height (inches).
func RenderChart(path string, graph descriptor.GraphSpec, rows []Row) error {
	xKey, yKey := graph.Arg("x"), graph.Arg("y")
	if xKey == "" || yKey == "" {
		return fmt.Errorf("graph %s: x and y args are required", graph.Name)
	}

	ordered := OrderRows(rows, graph)
	groups := splitSeries(ordered, graph.Arg("color"))

	p := plot.New()
	p.Title.Text = graph.Arg("title")
	if p.Title.Text == "" {
		p.Title.Text = graph.Name
	}
	p.X.Label.Text = axisLabel(graph, xKey)
	p.Y.Label.Text = axisLabel(graph, yKey)
	p.Legend.Top = true

	var err error
	if graph.Type == descriptor.GraphBar {
		err = addBars(p, groups, xKey, yKey)
	} else {
		err = addLines(p, groups, ordered, xKey, yKey)
	}
	if err != nil {
		return fmt.Errorf("graph %s: %w", graph.Name, err)
	}

	if err := p.Save(size(graph, "width", defaultWidth), size(graph, "height", defaultHeight), path); err != nil {
		return fmt.Errorf("graph %s: failed to save %s: %w", graph.Name, filepath.Base(path), err)
	}
	return nil
}

// splitSeries groups rows by the color field, keeping row order.
func splitSeries(rows []Row, colorKey string) []series {
	if colorKey == "" {
		return []series{{rows: rows}}
	}
	var out []series
	index := make(map[string]int)
	for _, r := range rows {
		name := r.String(colorKey)
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, series{name: name})
		}
		out[i].rows = append(out[i].rows, r)
	}
	return out
}

// categories returns the distinct x values in order of first appearance,
// and whether every one of them is numeric.
func categories(rows []Row, xKey string) (names []string, numeric bool) {
	seen := make(map[string]bool)
	numeric = true
	for _, r := range rows {
		name := r.String(xKey)
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
		if _, ok := r.Float(xKey); !ok {
			numeric = false
		}
	}
	return names, numeric
}

func addLines(p *plot.Plot, groups []series, all []Row, xKey, yKey string) error {
	cats, numeric := categories(all, xKey)
	pos := make(map[string]float64, len(cats))
	for i, c := range cats {
		pos[c] = float64(i)
	}

	plotted := 0
	for i, s := range groups {
		var xys plotter.XYs
		for _, r := range s.rows {
			y, ok := r.Float(yKey)
			if !ok {
				continue
			}
			x := pos[r.String(xKey)]
			if numeric {
				x, _ = r.Float(xKey)
			}
			xys = append(xys, plotter.XY{X: x, Y: y})
		}
		if len(xys) == 0 {
			continue
		}

		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return err
		}
		line.LineStyle.Color = plotutil.Color(i)
		points.GlyphStyle.Color = plotutil.Color(i)
		points.GlyphStyle.Shape = plotutil.Shape(i)
		p.Add(line, points)
		if s.name != "" {
			p.Legend.Add(s.name, line, points)
		}
		plotted++
	}
	if plotted == 0 {
		return errNoPoints
	}
	if !numeric {
		p.NominalX(cats...)
	}
	return nil
}

func addBars(p *plot.Plot, groups []series, xKey, yKey string) error {
	var all []Row
	for _, s := range groups {
		all = append(all, s.rows...)
	}
	cats, _ := categories(all, xKey)
	pos := make(map[string]int, len(cats))
	for i, c := range cats {
		pos[c] = i
	}

	width := vg.Points(groupWidth / float64(len(groups)))
	plotted := 0
	for i, s := range groups {
		values := make(plotter.Values, len(cats))
		found := false
		for _, r := range s.rows {
			if y, ok := r.Float(yKey); ok {
				values[pos[r.String(xKey)]] = y
				found = true
			}
		}
		if !found {
			continue
		}

		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return err
		}
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = 0
		bars.Offset = vg.Length(float64(i)-float64(len(groups)-1)/2) * width
		p.Add(bars)
		if s.name != "" {
			p.Legend.Add(s.name, bars)
		}
		plotted++
	}
	if plotted == 0 {
		return errNoPoints
	}
	p.NominalX(cats...)
	return nil
}

func axisLabel(graph descriptor.GraphSpec, key string) string {
	if labels, ok := graph.Args["labels"].(map[string]any); ok {
		if l, ok := labels[key]; ok {
			return fmt.Sprint(l)
		}
	}
	return key
}

func size(graph descriptor.GraphSpec, key string, def vg.Length) vg.Length {
	if v := graph.Arg(key); v != "" {
		if inches, err := strconv.ParseFloat(v, 64); err == nil && inches > 0 {
			return vg.Length(inches) * vg.Inch
		}
	}
	return def
}
