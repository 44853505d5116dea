package ffmpeg

import (
	"fmt"
	"strings"
	"unicode"
)

// SplitArgs splits an argument string into arguments.
// Handles single and double quotes and backslash escapes.
func SplitArgs(s string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoted := false
	quoteChar := rune(0)

	runes := []rune(strings.TrimSpace(s))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoted = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case unicode.IsSpace(r) && !inQuote:
			if current.Len() > 0 || quoted {
				args = append(args, current.String())
				current.Reset()
				quoted = false
			}
		case r == '\\' && i+1 < len(runes) && quoteChar != '\'':
			i++
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	if inQuote {
		return nil, fmt.Errorf("unclosed quote in arguments: %s", s)
	}
	if current.Len() > 0 || quoted {
		args = append(args, current.String())
	}
	return args, nil
}

// ArgPair is one option of an argument string. Key keeps its leading dash;
// Value is empty for bare flags.
type ArgPair struct {
	Key   string
	Value string
}

// ParseArgPairs splits an argument string into ordered option/value pairs.
// A token starting with a dash opens a new pair and takes the following
// token as its value unless that is another option. Stray values are kept
// under an empty key.
func ParseArgPairs(s string) ([]ArgPair, error) {
	tokens, err := SplitArgs(s)
	if err != nil {
		return nil, err
	}

	var pairs []ArgPair
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !isOption(tok) {
			pairs = append(pairs, ArgPair{Value: tok})
			continue
		}
		pair := ArgPair{Key: tok}
		if i+1 < len(tokens) && !isOption(tokens[i+1]) {
			pair.Value = tokens[i+1]
			i++
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// JoinArgPairs renders pairs back into a space separated string.
func JoinArgPairs(pairs []ArgPair) string {
	parts := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		if p.Key != "" {
			parts = append(parts, p.Key)
		}
		if p.Value != "" {
			parts = append(parts, p.Value)
		}
	}
	return strings.Join(parts, " ")
}

// isOption reports whether tok is an option name rather than a value such
// as a negative number.
func isOption(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	c := tok[1]
	return !(c >= '0' && c <= '9') && c != '.'
}
