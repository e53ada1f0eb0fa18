package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"greenlens/internal/domain"
)

const summaryWidth = 60

// renderFindings formats the initiatives as a terminal table. checks holds
// one page verification outcome per initiative and may be nil.
func renderFindings(result *domain.AnalysisResult, checks []error) string {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)

	header := table.Row{"#", "Framework", "Summary", "Page"}
	if checks != nil {
		header = append(header, "Verified")
	}
	w.AppendHeader(header)
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, WidthMax: summaryWidth},
		{Number: 4, Align: text.AlignRight},
	})

	for i, in := range result.Initiatives {
		row := table.Row{i + 1, in.SourceName, in.Summary, in.PageLabel}
		if checks != nil {
			row = append(row, verifiedMark(checks[i]))
		}
		w.AppendRow(row)
	}
	return w.Render()
}

func verifiedMark(err error) string {
	if err == nil {
		return "yes"
	}
	return "no: " + err.Error()
}
