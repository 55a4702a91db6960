package display

import (
	"fmt"
	"io"
	"sort"

	"github.com/pterm/pterm"

	"github.com/teranos/jbind/diag"
)

// DiagnosticRows builds a table of diagnostics with a header row. At most
// limit rows are kept when limit > 0; the rest are summarized in a final
// row.
func DiagnosticRows(ds []diag.Diagnostic, limit int) pterm.TableData {
	data := pterm.TableData{{"Severity", "Kind", "Class", "Member", "Detail"}}
	for i, d := range ds {
		if limit > 0 && i == limit {
			data = append(data, []string{"", "", fmt.Sprintf("... %d more", len(ds)-limit), "", ""})
			break
		}
		detail := d.Message
		if d.Ref != "" {
			detail = "-> " + d.Ref
		}
		data = append(data, []string{d.Severity.String(), string(d.Kind), d.Class, d.Member, detail})
	}
	return data
}

// RenderDiagnostics prints ds as a table.
func RenderDiagnostics(w io.Writer, ds []diag.Diagnostic, limit int) error {
	if len(ds) == 0 {
		return nil
	}
	return RenderTable(w, DiagnosticRows(ds, limit))
}

// KindCounts builds a two column table of counts per diagnostic kind,
// sorted by kind.
func KindCounts(counts map[diag.Kind]int) pterm.TableData {
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	data := pterm.TableData{{"Kind", "Count"}}
	for _, k := range kinds {
		data = append(data, []string{k, fmt.Sprint(counts[diag.Kind(k)])})
	}
	return data
}

// RenderTable prints data with its first row as header.
func RenderTable(w io.Writer, data pterm.TableData) error {
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, s)
	return err
}
