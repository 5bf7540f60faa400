package process

import (
	"fmt"
	"runtime"
	"strings"
)

// SplitCommand splits a command line into argv. Single and double quotes
// group words; "" yields an empty argument. A backslash escapes the next
// character, except on Windows where it is literal unless it precedes a
// double quote so that paths survive.
func SplitCommand(s string) ([]string, error) {
	return splitCommand(s, runtime.GOOS == "windows")
}

func splitCommand(s string, windowsPaths bool) ([]string, error) {
	var out []string
	var buf strings.Builder
	inToken := false
	inSingle := false
	inDouble := false
	escaped := false

	flush := func() {
		if !inToken {
			return
		}
		out = append(out, buf.String())
		buf.Reset()
		inToken = false
	}

	runes := []rune(s)
	for i, r := range runes {
		if escaped {
			buf.WriteRune(r)
			escaped = false
			continue
		}
		if !inSingle && r == '\\' {
			if windowsPaths && (i+1 >= len(runes) || runes[i+1] != '"') {
				buf.WriteRune(r)
				inToken = true
				continue
			}
			escaped = true
			inToken = true
			continue
		}
		if !inDouble && r == '\'' {
			inSingle = !inSingle
			inToken = true
			continue
		}
		if !inSingle && r == '"' {
			inDouble = !inDouble
			inToken = true
			continue
		}
		if !inSingle && !inDouble {
			if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
				flush()
				continue
			}
		}
		buf.WriteRune(r)
		inToken = true
	}

	if escaped {
		return nil, fmt.Errorf("unfinished escape in command %q", s)
	}
	if inSingle || inDouble {
		return nil, fmt.Errorf("unterminated quote in command %q", s)
	}

	flush()
	return out, nil
}
