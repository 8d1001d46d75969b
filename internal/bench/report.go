package bench

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// PrintReport writes res as a key/value table.
func PrintReport(w io.Writer, res Result) {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator(":")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	hits := res.After.PoolHits - res.Before.PoolHits
	misses := res.After.PoolMisses - res.Before.PoolMisses

	rows := [][2]string{
		{"Iterations", strconv.FormatInt(res.Iterations, 10)},
		{"Lifetimes", strconv.FormatInt(res.Lifetimes, 10)},
		{"Actions run", strconv.FormatInt(res.ActionsRun, 10)},
		{"Elapsed", res.Elapsed.String()},
		{"Per lifetime", res.PerLifetime().String()},
		{"Pool hits", strconv.FormatInt(hits, 10)},
		{"Pool misses", strconv.FormatInt(misses, 10)},
		{"Hit ratio", hitRatio(hits, misses)},
		{"Pooled lists", strconv.Itoa(res.After.Pooled)},
	}
	for _, r := range rows {
		table.Append([]string{r[0], r[1]})
	}

	table.Render()
}

func hitRatio(hits, misses int64) string {
	total := hits + misses
	if total == 0 {
		return "n/a"
	}
	return strconv.FormatFloat(float64(hits)*100/float64(total), 'f', 1, 64) + "%"
}
