package artifact

import (
	"os"
	"strings"

	"github.com/anthropics/labjournal/internal/jerr"
)

// DiffOp tags one line of a DiffConfig result.
type DiffOp string

const (
	DiffEqual  DiffOp = "equal"
	DiffAdd    DiffOp = "add"
	DiffRemove DiffOp = "remove"
)

// DiffLine is one line of a unified line diff.
type DiffLine struct {
	Op   DiffOp
	Text string
}

// DiffConfig reads the two files at pathA and pathB (an archive path, or
// an archive path and a live target_path) and returns their line-level
// diff. There is no third-party diff library anywhere in the retrieval
// pack, so this stays a small stdlib routine over a classic
// longest-common-subsequence table.
func DiffConfig(pathA, pathB string) ([]DiffLine, error) {
	a, err := os.ReadFile(pathA)
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "read %s for diff", pathA)
	}
	b, err := os.ReadFile(pathB)
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "read %s for diff", pathB)
	}
	return diffLines(splitLines(string(a)), splitLines(string(b))), nil
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// diffLines computes a line-level diff via the standard LCS dynamic
// program, then walks the table back to front to emit equal/add/remove
// ops in forward order.
func diffLines(a, b []string) []DiffLine {
	n, m := len(a), len(b)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var out []DiffLine
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			out = append(out, DiffLine{Op: DiffEqual, Text: a[i]})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			out = append(out, DiffLine{Op: DiffRemove, Text: a[i]})
			i++
		default:
			out = append(out, DiffLine{Op: DiffAdd, Text: b[j]})
			j++
		}
	}
	for ; i < n; i++ {
		out = append(out, DiffLine{Op: DiffRemove, Text: a[i]})
	}
	for ; j < m; j++ {
		out = append(out, DiffLine{Op: DiffAdd, Text: b[j]})
	}
	return out
}
