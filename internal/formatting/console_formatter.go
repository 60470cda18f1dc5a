package formatting

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"

	"alpaca/internal/reconciler"
	"alpaca/internal/resource"
)

// ConsoleFormatter provides simple console output formatting
type ConsoleFormatter struct {
	options Options
}

// FormatResult prints the message, one line per change and, unless quiet,
// the detail keys.
func (f *ConsoleFormatter) FormatResult(res *resource.Result) error {
	w := f.options.writer()

	status := f.paint(text.FgGreen, "ok")
	if res.Changed {
		status = f.paint(text.FgYellow, "changed")
	}
	fmt.Fprintf(w, "%s: %s\n", status, res.Msg)

	for _, row := range ChangeRows(res.Changes) {
		fmt.Fprintf(w, "  ~ %s: %s -> %s\n", row.Field, quote(row.Current), quote(row.Desired))
	}

	if f.options.Quiet {
		return nil
	}
	for _, key := range res.DetailKeys() {
		fmt.Fprintf(w, "  %s: %s\n", key, CompactJSON(res.Details[key]))
	}
	return nil
}

// FormatList prints one line per item using the table columns.
func (f *ConsoleFormatter) FormatList(kind string, items []reconciler.Record) error {
	w := f.options.writer()
	if len(items) == 0 {
		fmt.Fprintf(w, "No %s found.\n", kind)
		return nil
	}

	cols := Columns(kind, items)
	if !f.options.Quiet {
		fmt.Fprintf(w, "%s (%d):\n", strings.ToUpper(kind[:1])+kind[1:], len(items))
	}
	for i, item := range items {
		parts := make([]string, 0, len(cols))
		for _, c := range cols {
			parts = append(parts, fmt.Sprintf("%s=%s", c, Cell(item[c])))
		}
		fmt.Fprintf(w, "  %d. %s\n", i+1, strings.Join(parts, " "))
	}
	return nil
}

// FormatData prints scalars directly and mappings as key: value lines.
func (f *ConsoleFormatter) FormatData(data any) error {
	w := f.options.writer()
	switch d := data.(type) {
	case string:
		fmt.Fprintln(w, d)
	case map[string]any:
		writeKeyValues(w, d)
	default:
		fmt.Fprintln(w, PrettyJSON(d))
	}
	return nil
}

func (f *ConsoleFormatter) paint(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

func writeKeyValues(w io.Writer, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %s\n", k, Cell(m[k]))
	}
}

func quote(s string) string {
	if s == "" {
		return `""`
	}
	return s
}
