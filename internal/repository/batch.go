package repository

import (
	"fmt"
	"strings"
	"time"
)

// valuesClause renders "($1, $2, ...), ($n+1, ...)" for a multi-row insert.
func valuesClause(rows, cols int) string {
	var sb strings.Builder
	arg := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", arg)
			arg++
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// latestPerDevice reduces a batch to one record per device, keeping the
// greatest recorded_at. PostgreSQL rejects a multi-row upsert that targets
// the same conflict key twice, so the reduction has to happen before the
// current-table write. Input order is preserved for unrelated devices.
func latestPerDevice[T any](batch []T, key func(T) string, recordedAt func(T) time.Time) []T {
	index := make(map[string]int, len(batch))
	out := make([]T, 0, len(batch))
	for _, rec := range batch {
		k := key(rec)
		if i, ok := index[k]; ok {
			if recordedAt(rec).After(recordedAt(out[i])) {
				out[i] = rec
			}
			continue
		}
		index[k] = len(out)
		out = append(out, rec)
	}
	return out
}
