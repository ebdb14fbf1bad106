// Package render formats workflow results for terminal output: change
// summaries as tables via github.com/olekukonko/tablewriter, with
// per-kind coloring from pkg/theme, grounded on the teacher's
// cmd/thv/app/ui table-rendering style.
package render

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/obriencj/koji-habitude-go/pkg/change"
	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/processor"
	"github.com/obriencj/koji-habitude-go/pkg/theme"
)

// ChangeSummary renders every report's changes as one table: key, kind,
// subject, summary. showUnchanged controls whether objects with no
// changes get a row (spec.md section 6, "--show-unchanged").
func ChangeSummary(w io.Writer, reports map[key.Key]change.Report, th theme.Theme, showUnchanged bool) error {
	keys := sortedKeys(reports)

	table := tablewriter.NewWriter(w)
	table.Options(
		tablewriter.WithHeader([]string{"Object", "Kind", "Subject", "Summary"}),
		tablewriter.WithRendition(
			tw.Rendition{
				Borders: tw.Border{
					Left:   tw.State(1),
					Top:    tw.State(1),
					Right:  tw.State(1),
					Bottom: tw.State(1),
				},
			},
		),
		tablewriter.WithAlignment(tw.MakeAlign(4, tw.AlignLeft)),
	)

	for _, k := range keys {
		report := reports[k]
		changes := report.Changes()
		if len(changes) == 0 {
			if !showUnchanged {
				continue
			}
			if err := table.Append([]string{th.Unchanged(k.String()), th.Unchanged("unchanged"), "", ""}); err != nil {
				return err
			}
			continue
		}
		for _, c := range changes {
			if err := table.Append([]string{
				k.String(),
				th.Style(string(c.Kind), c.Kind),
				c.Subject,
				c.Summary,
			}); err != nil {
				return err
			}
		}
	}

	return table.Render()
}

// Summary renders a processor.Summary as a single two-column table.
func Summary(w io.Writer, s processor.Summary) error {
	table := tablewriter.NewWriter(w)
	table.Options(
		tablewriter.WithHeader([]string{"Metric", "Value"}),
		tablewriter.WithAlignment(tw.MakeAlign(2, tw.AlignLeft)),
	)
	rows := [][2]string{
		{"objects processed", fmt.Sprintf("%d", s.ObjectsProcessed)},
		{"steps completed", fmt.Sprintf("%d", s.StepsCompleted)},
		{"total changes", fmt.Sprintf("%d", s.TotalChanges)},
		{"read calls", fmt.Sprintf("%d", s.ReadCalls)},
		{"write calls", fmt.Sprintf("%d", s.WriteCalls)},
	}
	for _, r := range rows {
		if err := table.Append([]string{r[0], r[1]}); err != nil {
			return err
		}
	}
	return table.Render()
}

func sortedKeys(reports map[key.Key]change.Report) []key.Key {
	keys := make([]key.Key, 0, len(reports))
	for k := range reports {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
