package repository

import (
	"strings"
)

// batchSize bounds the rows per multi-row INSERT
const batchSize = 500

// returnsSKUPattern matches grading/returns SKUs that never reach projections
const returnsSKUPattern = "amzn.gr.%"

// chunks splits n rows into [start, end) windows of at most size
func chunks(n, size int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// valuesClause renders rows tuples of cols bind variables
func valuesClause(rows, cols int) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"
	var b strings.Builder
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	return b.String()
}

// excludedSet renders "col = EXCLUDED.col" for each column
func excludedSet(columns ...string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = c + " = EXCLUDED." + c
	}
	return strings.Join(parts, ", ")
}
