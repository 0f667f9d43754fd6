package resolver

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

type dumpRow struct {
	collection, object, class, name string
	ignored                         bool
	live                            float64
	limit                           float64
	source                          string
}

// Dump writes one line per live definition: where it came from, what it classified
// as, whether it is ignored and which table supplied its limit.
func (r *Resolver) Dump(w io.Writer) error {
	r.mu.Lock()
	st := r.state
	var rows []dumpRow
	_, err := r.scan("dump", func(it item) {
		row := dumpRow{
			collection: it.collection,
			object:     it.object,
			class:      it.class,
			name:       it.name,
			ignored:    it.ignored,
			live:       it.net.SlopeLimit(),
		}
		if !it.ignored {
			v, src, ok := r.store.GetLimit(it.name)
			if ok {
				row.limit, row.source = v, string(src)
			}
		}
		rows = append(rows, row)
	})
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	fmt.Fprintf(w, "# slope limits  %s  phase=%s policy=%s  definitions=%s\n",
		time.Now().Format(time.RFC3339), st.Phase, st.Policy, humanize.Comma(int64(len(rows))))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLLECTION\tOBJECT\tCLASS\tNAME\tIGNORED\tLIVE\tLIMIT\tSOURCE")
	for _, row := range rows {
		limit, source := "-", "-"
		if row.source != "" {
			limit, source = formatLimit(row.limit), row.source
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\t%s\t%s\n",
			row.collection, row.object, row.class, row.name, row.ignored, formatLimit(row.live), limit, source)
	}
	return tw.Flush()
}

func formatLimit(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
