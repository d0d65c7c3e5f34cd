package src

import (
	"crypto/sha1"
	"fmt"
	"strings"
)

// edit represents a single line change in a diff.
type edit struct {
	tag string // " " same, "+" add, "-" del
	txt string
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	raw := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := range raw {
		raw[i] = strings.TrimRight(raw[i], "\r")
	}
	return raw
}

// UnifiedDiff renders a git-style unified diff between the original and
// proposed content of one file, for display next to a proposed change.
// Returns "" when the contents are equal.
func UnifiedDiff(path, oldText, newText string) string {
	if oldText == newText {
		return ""
	}

	oldLines := splitLines(oldText)
	newLines := splitLines(newText)
	n, m := len(oldLines), len(newLines)

	// Build LCS table.
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if oldLines[i] == newLines[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	// Collect edits.
	var seq []edit
	i, j := 0, 0
	for i < n && j < m {
		if oldLines[i] == newLines[j] {
			seq = append(seq, edit{" ", oldLines[i]})
			i++
			j++
		} else if lcs[i+1][j] >= lcs[i][j+1] {
			seq = append(seq, edit{"-", oldLines[i]})
			i++
		} else {
			seq = append(seq, edit{"+", newLines[j]})
			j++
		}
	}
	for ; i < n; i++ {
		seq = append(seq, edit{"-", oldLines[i]})
	}
	for ; j < m; j++ {
		seq = append(seq, edit{"+", newLines[j]})
	}

	var out strings.Builder
	out.WriteString(fmt.Sprintf("diff --git a/%s b/%s\n", path, path))
	out.WriteString(fmt.Sprintf("index %s..%s 100644\n", shortSHA(oldText), shortSHA(newText)))
	out.WriteString(fmt.Sprintf("--- a/%s\n", path))
	out.WriteString(fmt.Sprintf("+++ b/%s\n", path))

	const ctx = 3
	var hunk []edit
	var startOld, startNew int
	countOld, countNew := 0, 0

	printHunk := func() {
		if len(hunk) == 0 {
			return
		}
		out.WriteString(fmt.Sprintf("@@ -%d,%d +%d,%d @@\n", startOld+1, countOld, startNew+1, countNew))
		for _, e := range hunk {
			out.WriteString(e.tag + e.txt + "\n")
		}
		hunk = hunk[:0]
	}

	inHunk := false
	for idx := range seq {
		e := seq[idx]
		if e.tag != " " {
			if !inHunk {
				inHunk = true
				startOld = maxInt(0, idx-ctx)
				startNew = startOld
				hunk = append(hunk, seq[maxInt(0, idx-ctx):idx]...)
				countOld, countNew = 0, 0
			}
			hunk = append(hunk, e)
			if e.tag != "+" {
				countOld++
			}
			if e.tag != "-" {
				countNew++
			}
		} else if inHunk {
			hunk = append(hunk, e)
			countOld++
			countNew++

			end := idx + ctx + 1
			if end > len(seq) {
				end = len(seq)
			}
			if !hasChangeAhead(seq[idx+1 : end]) {
				printHunk()
				inHunk = false
			}
		}
	}
	if inHunk {
		printHunk()
	}

	return out.String()
}

// shortSHA returns a short SHA1-like index label for diff headers.
func shortSHA(s string) string {
	h := sha1.Sum([]byte(s))
	return fmt.Sprintf("%x", h[:3])
}

// hasChangeAhead checks if the next few edits contain +/-
func hasChangeAhead(next []edit) bool {
	for _, e := range next {
		if e.tag == "+" || e.tag == "-" {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
