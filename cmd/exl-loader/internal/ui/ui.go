// Package ui renders exl-loader reports on the console
package ui

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirilvk/exl-loader/pkg/drivers/redis"
	"github.com/sirilvk/exl-loader/pkg/loader"
)

// Styles for consistent UI
var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// UI provides console output helpers
type UI struct {
	out io.Writer
	err io.Writer
}

// New creates a UI writing reports to out and errors to err
func New(out, err io.Writer) *UI {
	return &UI{out: out, err: err}
}

// Success prints a success message
func (ui *UI) Success(msg string) {
	fmt.Fprintln(ui.out, successStyle.Render("✓ "+msg))
}

// Error prints an error message
func (ui *UI) Error(msg string) {
	fmt.Fprintln(ui.err, errorStyle.Render("✗ "+msg))
}

// Warning prints a warning message
func (ui *UI) Warning(msg string) {
	fmt.Fprintln(ui.out, warningStyle.Render("⚠ "+msg))
}

// Header prints a section header
func (ui *UI) Header(title string) {
	fmt.Fprintln(ui.out, headerStyle.Render(title))
	fmt.Fprintln(ui.out, subtleStyle.Render(strings.Repeat("─", len(title))))
}

// KeyValue prints a key-value pair
func (ui *UI) KeyValue(key, value string) {
	fmt.Fprintf(ui.out, "  %s %s\n", subtleStyle.Render(padRight(key+":", 18)), value)
}

// Summary prints the totals of a batch run followed by a per-worker table
func (ui *UI) Summary(s *loader.Summary) {
	ui.Header("EXL load summary")
	ui.KeyValue("Run ID", s.RunID)
	ui.KeyValue("Files", strconv.Itoa(s.Files))
	ui.KeyValue("Workers", strconv.Itoa(s.Shards))
	ui.KeyValue("Product records", strconv.Itoa(s.Records))
	ui.KeyValue("Failed files", strconv.Itoa(s.Failed))
	ui.KeyValue("Elapsed", s.Elapsed.Round(time.Millisecond).String())

	if len(s.Results) > 0 {
		fmt.Fprintln(ui.out)
		table := ui.NewTable("Worker", "Files", "Records", "Failed", "Stopped")
		for _, r := range s.Results {
			table.AddRow(strconv.Itoa(r.Worker), strconv.Itoa(r.Files), strconv.Itoa(r.Subtotal),
				strconv.Itoa(r.Failures), strconv.FormatBool(r.Stopped))
		}
		table.Render()
	}

	fmt.Fprintln(ui.out)
	switch {
	case s.Interrupted:
		ui.Warning(fmt.Sprintf("Interrupted: %d product records written before shutdown", s.Records))
	case s.Failed > 0:
		ui.Warning(fmt.Sprintf("Completed with %d failed files", s.Failed))
	default:
		ui.Success("Completed")
	}
}

// WatchResult prints the totals accumulated by the watch loop
func (ui *UI) WatchResult(r loader.Result) {
	ui.Header("EXL watch summary")
	ui.KeyValue("Files", strconv.Itoa(r.Files))
	ui.KeyValue("Product records", strconv.Itoa(r.Subtotal))
	ui.KeyValue("Failed files", strconv.Itoa(r.Failures))
}

// Health prints a cache health report
func (ui *UI) Health(h *redis.HealthStatus) {
	ui.Header("Cache health")
	ui.KeyValue("message", h.Message)
	for _, k := range sortedKeys(h.Details) {
		ui.KeyValue(k, h.Details[k])
	}

	fmt.Fprintln(ui.out)
	switch h.Status {
	case redis.HealthHealthy:
		ui.Success("Healthy")
	case redis.HealthDegraded:
		ui.Warning("Degraded")
	default:
		ui.Error("Unhealthy")
	}
}

// Table prints a simple table
type Table struct {
	ui      *UI
	headers []string
	rows    [][]string
}

// NewTable creates a new table
func (ui *UI) NewTable(headers ...string) *Table {
	return &Table{
		ui:      ui,
		headers: headers,
		rows:    make([][]string, 0),
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render renders the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	headerParts := make([]string, len(t.headers))
	separatorParts := make([]string, len(t.headers))
	for i, header := range t.headers {
		headerParts[i] = padRight(header, widths[i])
		separatorParts[i] = strings.Repeat("─", widths[i])
	}
	fmt.Fprintln(t.ui.out, "  "+headerStyle.Render(strings.Join(headerParts, " │ ")))
	fmt.Fprintln(t.ui.out, "  "+subtleStyle.Render(strings.Join(separatorParts, "─┼─")))

	for _, row := range t.rows {
		rowParts := make([]string, len(t.headers))
		for i := range t.headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			rowParts[i] = padRight(cell, widths[i])
		}
		fmt.Fprintln(t.ui.out, "  "+strings.Join(rowParts, " │ "))
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
