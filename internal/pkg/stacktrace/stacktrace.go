package stacktrace

import "strings"

// InternalPaths keeps only the "internal/..." file:line frames of a debug.Stack dump.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.Lines(string(stack)) {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, ".go:") {
			continue
		}

		frame, _, _ := strings.Cut(line, " ")
		idx := strings.Index(frame, "/internal/")
		if idx == -1 {
			continue
		}
		paths = append(paths, frame[idx+1:])
	}
	return paths
}
