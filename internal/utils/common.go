// Package utils holds small string helpers shared by config and store.
package utils

import (
	"strconv"
	"strings"
)

// SplitAndTrim splits s on sep, trims each part and drops empty parts.
func SplitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JSONPointerToPath turns a JSON Pointer (RFC 6901), with or without a
// leading '#', into the dotted field path used in violations:
// "/tasks/task-1/success_criteria/0/text" becomes
// "tasks.task-1.success_criteria[0].text".
func JSONPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(strings.TrimPrefix(ptr, "#"), "/")
	if ptr == "" {
		return ""
	}

	var b strings.Builder
	for _, seg := range strings.Split(ptr, "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		if seg == "" {
			continue
		}
		if _, err := strconv.Atoi(seg); err == nil {
			b.WriteString("[" + seg + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}
