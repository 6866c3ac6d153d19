package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"divimport/internal/recovery"
)

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}

// renderSessionTable shows the persisted session as field/value pairs.
func renderSessionTable(rows [][2]string) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"Field", "Value"})
	for _, row := range rows {
		tw.AppendRow(table.Row{row[0], row[1]})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft, WidthMax: 72},
	})
	return tw.Render()
}

// renderHistoryTable shows journal transitions oldest first, the order they
// are read in: Recent returns newest first.
func renderHistoryTable(transitions []recovery.Transition) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"Time", "From", "To", "Detail"})
	for i := len(transitions) - 1; i >= 0; i-- {
		transition := transitions[i]
		tw.AppendRow(table.Row{
			transition.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			string(transition.FromStatus),
			string(transition.ToStatus),
			transition.Detail,
		})
	}
	return tw.Render()
}
