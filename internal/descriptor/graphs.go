package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Graph types understood by the report renderer.
const (
	GraphLine = "line"
	GraphBar  = "bar"
)

// ParseGraphs decodes the graphs value of a reports section. The value is
// either a YAML sequence written inline, or the name of a .yml/.yaml file
// resolved against baseDir.
func ParseGraphs(value, baseDir string) ([]GraphSpec, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, nil
	}

	data := []byte(v)
	if isGraphFile(v) {
		path := v
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read graph file: %w", err)
		}
		data = b
	}

	var graphs []GraphSpec
	if err := yaml.Unmarshal(data, &graphs); err != nil {
		return nil, fmt.Errorf("invalid graph definition: %w", err)
	}

	for i := range graphs {
		if err := normalizeGraph(&graphs[i]); err != nil {
			return nil, fmt.Errorf("graph %d: %w", i, err)
		}
	}
	return graphs, nil
}

func isGraphFile(v string) bool {
	if strings.ContainsAny(v, "[{\n") {
		return false
	}
	switch strings.ToLower(filepath.Ext(v)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

// normalizeGraph applies defaults and lifts colororder/sortby out of args
// when they were written there.
func normalizeGraph(g *GraphSpec) error {
	if g.Name == "" {
		return fmt.Errorf("name is required")
	}
	if g.Args == nil {
		g.Args = make(map[string]any)
	}

	if raw, ok := g.Args["colororder"]; ok {
		delete(g.Args, "colororder")
		if len(g.ColorOrder) == 0 {
			g.ColorOrder = toStrings(raw)
		}
	}
	if raw, ok := g.Args["sortby"]; ok {
		delete(g.Args, "sortby")
		if g.SortBy == "" {
			g.SortBy = fmt.Sprint(raw)
		}
	}

	g.Type = strings.ToLower(strings.TrimSpace(g.Type))
	switch g.Type {
	case "":
		g.Type = GraphLine
	case GraphLine, GraphBar:
	default:
		return fmt.Errorf("unsupported graph type %q", g.Type)
	}
	return nil
}

// Arg returns a string valued renderer argument.
func (g GraphSpec) Arg(key string) string {
	v, ok := g.Args[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func toStrings(raw any) []string {
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return v
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}
