package bigquery

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/zeebo/xxh3"

	"bqstream/pkg/records"
)

// InsertID derives the best-effort dedup id BigQuery uses for a streamed row
// when Config.DedupIDs is set. It hashes the table, the source line and the
// row content with keys sorted, so the same file streamed twice within the
// dedup window is not duplicated.
func InsertID(table string, row records.Row) string {
	h := xxh3.New()
	_, _ = h.WriteString(table)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(strconv.Itoa(row.Line))

	keys := make([]string, 0, len(row.Fields))
	for k := range row.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(k)
		_, _ = h.WriteString("=")
		if v := row.Fields[k]; v != nil {
			_, _ = h.WriteString(fmt.Sprintf("%T:%v", v, v))
		}
	}

	sum := h.Sum128()
	return fmt.Sprintf("%016x%016x", sum.Hi, sum.Lo)
}
