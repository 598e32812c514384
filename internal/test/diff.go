package test

import (
	"fmt"
	"strings"

	"github.com/bundlekit/finalizer/internal/logger"
)

func Diff(old string, new string, color bool) string {
	return strings.Join(diffRec(nil, strings.Split(old, "\n"), strings.Split(new, "\n"), color), "\n")
}

// This is a simple recursive line-by-line diff implementation
func diffRec(result []string, old []string, new []string, color bool) []string {
	o, n, common := lcSubstr(old, new)

	if common == 0 {
		// Everything changed
		for _, line := range old {
			result = append(result, decorate("-", line, logger.TerminalColors.Red, color))
		}
		for _, line := range new {
			result = append(result, decorate("+", line, logger.TerminalColors.Green, color))
		}
		return result
	}

	// Something in the middle stayed the same
	result = diffRec(result, old[:o], new[:n], color)
	for _, line := range old[o : o+common] {
		result = append(result, decorate(" ", line, logger.TerminalColors.Dim, color))
	}
	return diffRec(result, old[o+common:], new[n+common:], color)
}

func decorate(prefix string, line string, escape string, color bool) string {
	if color {
		return fmt.Sprintf("%s%s%s%s", escape, prefix, line, logger.TerminalColors.Reset)
	}
	return prefix + line
}

// Longest common run of lines, returned as (start in a, start in b, length)
func lcSubstr(a []string, b []string) (int, int, int) {
	prev := make([]int, len(b))
	next := make([]int, len(b))
	best, endA, endB := 0, 0, 0

	for i := range a {
		for j := range b {
			if a[i] != b[j] {
				next[j] = 0
				continue
			}
			if j == 0 {
				next[j] = 1
			} else {
				next[j] = prev[j-1] + 1
			}
			if next[j] > best {
				best, endA, endB = next[j], i+1, j+1
			}
		}
		prev, next = next, prev
	}

	return endA - best, endB - best, best
}
