package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/nathsou/disk-analyzer/internal/nav"
	"github.com/nathsou/disk-analyzer/internal/repartition"
	"github.com/nathsou/disk-analyzer/pkg/pathutil"
)

const (
	sizeWidth  = 12
	shareWidth = 8
	chartWidth = 40
	// maxChartLines caps the chart drawn under the table.
	maxChartLines = 6
)

var (
	headStyle  = lipgloss.NewStyle().Bold(true)
	crumbStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	faint      = lipgloss.NewStyle().Faint(true)
)

func columns(width int) []table.Column {
	graph := 20
	name := max(20, width-sizeWidth-shareWidth-graph-10)
	return []table.Column{
		{Title: "Name", Width: name},
		{Title: "Size", Width: sizeWidth},
		{Title: "Share", Width: shareWidth},
		{Title: "Graph", Width: graph},
	}
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.NoColor{}).
		Background(lipgloss.Color("57")).
		Bold(false)
	return styles
}

// chrome is the number of lines around the table.
func (m *Model) chrome() int {
	return 6 + min(len(m.slices), maxChartLines)
}

func (m *Model) setRows(rows []row) {
	m.rows = rows

	var total int64
	switch {
	case m.listing != nil:
		total = m.listing.Size
	case m.summary != nil:
		total = m.summary.Size
	}

	parent := m.route.Path
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		name := pathutil.Rel(r.entry.Path, parent, m.root)
		if r.dir {
			name += m.root.Separator()
		}
		share, graph := "", ""
		if r.entry.Size != nil && total > 0 {
			p := float64(*r.entry.Size) / float64(total)
			share = fmt.Sprintf("%5.1f%%", p*100)
			graph = bar(p, 20)
		}
		out = append(out, table.Row{name, m.sizes.FormatPtr(r.entry.Size), share, graph})
	}
	m.tbl.SetRows(out)
	// SetRows clamps the cursor to -1 on an empty table and never moves it back.
	if len(out) > 0 {
		m.tbl.SetCursor(0)
	}
	if m.height > 0 {
		m.tbl.SetHeight(max(3, m.height-m.chrome()))
	}
}

func (m *Model) View() string {
	title := "disk-analyzer"
	if m.ready {
		title += "  " + m.route.View.String()
	}
	lines := []string{headStyle.Render(title), m.breadcrumb()}

	switch {
	case m.err != nil:
		lines = append(lines, "", errStyle.Render("Error"), faint.Render(m.err.Error()), "")
	case !m.ready:
		lines = append(lines, "")
	default:
		lines = append(lines, m.subtitle(), m.tbl.View())
		if chart := m.chart(); chart != "" {
			lines = append(lines, chart)
		}
	}

	status := m.status
	if m.loading {
		status = m.spin.View() + " " + status
	}
	if m.online != nil && !m.online() {
		status = errStyle.Render("offline") + " " + status
	}
	lines = append(lines, status, faint.Render(m.help()))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) breadcrumb() string {
	if !m.ready {
		return ""
	}
	segs := pathutil.Decompose(m.route.Path, m.root)
	names := make([]string, len(segs))
	for i, s := range segs {
		names[i] = fmt.Sprintf("%d:%s", i+1, s.Name)
	}
	return crumbStyle.Render(strings.Join(names, " › "))
}

func (m *Model) subtitle() string {
	switch {
	case m.listing != nil:
		return fmt.Sprintf("%s in %d entries", m.sizes.Format(m.listing.Size), len(m.rows))
	case m.summary != nil:
		return fmt.Sprintf("%s in %d files, scanned in %s",
			m.sizes.Format(m.summary.Size), m.summary.FilesCount, m.summary.Duration)
	}
	return ""
}

// chart draws the repartition slices as colored bars sharing one width.
func (m *Model) chart() string {
	if len(m.slices) == 0 {
		return ""
	}
	shown := m.slices
	if len(shown) > maxChartLines {
		shown = shown[:maxChartLines]
	}
	widths := repartition.Bars(m.slices, chartWidth)

	labelW := 0
	for _, s := range shown {
		labelW = max(labelW, lipgloss.Width(s.Label))
	}

	lines := make([]string, len(shown))
	for i, s := range shown {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color))
		label := s.Label + strings.Repeat(" ", labelW-lipgloss.Width(s.Label))
		lines[i] = fmt.Sprintf("%s %s %5.1f%%", label,
			style.Render(strings.Repeat("█", widths[i]))+strings.Repeat(" ", chartWidth-widths[i]),
			s.Share*100)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) help() string {
	keys := "↑/↓ move  enter open  backspace up  esc back  1-9 crumb  tab "
	if m.route.View == nav.ViewReport {
		keys += "listing"
	} else {
		keys += "report  s sizes"
	}
	return keys + "  r refresh  q quit"
}

func bar(p float64, width int) string {
	width = max(width, 0)
	fill := min(max(int(p*float64(width)), 0), width)
	return strings.Repeat("█", fill) + strings.Repeat("░", width-fill)
}
