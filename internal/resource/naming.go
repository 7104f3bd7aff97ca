package resource

import (
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultIncrementLimit bounds how many suffixes IncrementName tries
const DefaultIncrementLimit = 10000

// SplitNumbered splits "Name (3)" into "Name" and 3. ok is false for names without a
// trailing " (n)" suffix.
func SplitNumbered(input string) (left string, n int64, ok bool) {
	open := strings.LastIndexByte(input, '(')
	if open < 0 || (open != 0 && input[open-1] != ' ') {
		return "", 0, false
	}
	if !strings.HasSuffix(input, ")") || len(input)-1 <= open {
		return "", 0, false
	}
	n, err := strconv.ParseInt(input[open+1:len(input)-1], 10, 64)
	if err != nil {
		return "", 0, false
	}
	if open == 0 {
		return "", n, true
	}
	return input[:open-1], n, true
}

// IncrementName returns input when accept allows it, otherwise the first accepted
// "base (n)" where base is input without any existing numeric suffix and n counts up from
// that suffix (or from 1). At most limit candidates are tried.
func IncrementName(accept func(string) bool, input string, limit int) (string, bool) {
	if input == "" || limit < 1 {
		return "", false
	}
	if accept(input) {
		return input, true
	}
	base, n, ok := SplitNumbered(input)
	if !ok || n < 1 {
		base, n = input, 1
	}
	var sb strings.Builder
	for i := 0; i < limit; i++ {
		sb.Reset()
		sb.WriteString(base)
		sb.WriteString(" (")
		sb.WriteString(strconv.FormatInt(n+int64(i), 10))
		sb.WriteByte(')')
		if candidate := sb.String(); accept(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// FileDisplayName picks a free display name for a file: its base name, then the full path,
// each with increments.
func FileDisplayName(accept func(string) bool, path string) (string, bool) {
	if name := filepath.Base(path); name != "" && name != "." && name != string(filepath.Separator) {
		if out, ok := IncrementName(accept, name, DefaultIncrementLimit); ok {
			return out, true
		}
	}
	return IncrementName(accept, path, DefaultIncrementLimit)
}
