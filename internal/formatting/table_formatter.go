package formatting

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"alpaca/internal/reconciler"
	"alpaca/internal/resource"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// FormatResult prints the message followed by a FIELD/CURRENT/DESIRED table
// of the changes and, unless quiet, a KEY/VALUE table of the details.
func (f *TableFormatter) FormatResult(res *resource.Result) error {
	w := f.options.writer()

	status := "ok"
	if res.Changed {
		status = "changed"
	}
	fmt.Fprintf(w, "%s %s\n", f.paint(text.FgHiBlue, status+":"), res.Msg)

	if rows := ChangeRows(res.Changes); len(rows) > 0 {
		t := f.createTable()
		t.AppendHeader(f.header("FIELD", "CURRENT", "DESIRED"))
		for _, row := range rows {
			t.AppendRow(table.Row{row.Field, row.Current, row.Desired})
		}
		t.Render()
	}

	if f.options.Quiet || len(res.Details) == 0 {
		return nil
	}
	t := f.createTable()
	t.AppendHeader(f.header("KEY", "VALUE"))
	for _, key := range res.DetailKeys() {
		t.AppendRow(table.Row{key, Cell(res.Details[key])})
	}
	t.Render()
	return nil
}

// FormatList prints items as rows with the columns chosen by Columns.
func (f *TableFormatter) FormatList(kind string, items []reconciler.Record) error {
	w := f.options.writer()
	if len(items) == 0 {
		fmt.Fprintf(w, "%s\n", f.paint(text.FgYellow, fmt.Sprintf("No %s found", kind)))
		return nil
	}

	cols := Columns(kind, items)
	t := f.createTable()
	t.AppendHeader(f.header(cols...))
	for _, item := range items {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			row[i] = Cell(item[c])
		}
		t.AppendRow(row)
	}
	t.Render()

	if !f.options.Quiet {
		fmt.Fprintf(w, "\n%s %d %s\n", f.paint(text.FgHiBlue, "Total:"), len(items), kind)
	}
	return nil
}

// FormatData prints a mapping as a KEY/VALUE table and anything else as
// indented JSON.
func (f *TableFormatter) FormatData(data any) error {
	m, ok := data.(map[string]any)
	if !ok {
		fmt.Fprintln(f.options.writer(), PrettyJSON(data))
		return nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := f.createTable()
	t.AppendHeader(f.header("KEY", "VALUE"))
	for _, k := range keys {
		t.AppendRow(table.Row{k, Cell(m[k])})
	}
	t.Render()
	return nil
}

func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.options.writer())
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) header(names ...string) table.Row {
	row := make(table.Row, len(names))
	for i, n := range names {
		row[i] = f.paint(text.FgHiCyan, n)
	}
	return row
}

func (f *TableFormatter) paint(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}
