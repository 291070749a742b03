// Package chart renders the finalized series as an interactive terminal
// line chart: the four cumulative totals as braille line plots with date
// and value axes, a legend of the latest figures, and zooming by moving
// the visible start of the series. Zooming is presentation only; the
// underlying data is never recomputed.
package chart

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"epiflow/messages"
	"epiflow/models"
	"epiflow/processor"
)

const (
	gutterWidth = 7 // y-axis labels
	legendLines = 6
	xLabelWidth = 7 // "02.01" plus separation
)

var (
	recoveredStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	hospitalisedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	deathsStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	casesStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	axisStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	borderStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder())
)

// seriesStyles is indexed by draw order; cases are drawn last so they
// win overlapping cells.
var seriesStyles = []lipgloss.Style{recoveredStyle, hospitalisedStyle, deathsStyle, casesStyle}

// Model is the bubbletea model of the chart view.
type Model struct {
	points []models.DataPoint
	bundle messages.Bundle

	// offset is the index of the first visible point.
	offset int

	width  int
	height int
}

// New builds a chart model over the finalized series.
func New(points []models.DataPoint, bundle messages.Bundle) Model {
	return Model{points: points, bundle: bundle}
}

// Run displays the chart until the user quits.
func Run(points []models.DataPoint, bundle messages.Bundle) error {
	program := tea.NewProgram(New(points, bundle), tea.WithAltScreen(), tea.WithMouseAllMotion())
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "right", "k", "l":
			return m.zoom(1), nil
		case "down", "left", "h", "j":
			return m.zoom(-1), nil
		case "pgup":
			return m.zoom(10), nil
		case "pgdown":
			return m.zoom(-10), nil
		}
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress {
			switch msg.Button {
			case tea.MouseButtonWheelUp:
				return m.zoom(1), nil
			case tea.MouseButtonWheelDown:
				return m.zoom(-1), nil
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// zoom moves the visible start of the series, clamped so at least one
// point stays on screen.
func (m Model) zoom(delta int) Model {
	m.offset += delta
	if m.offset > len(m.points)-1 {
		m.offset = len(m.points) - 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
	return m
}

func (m Model) View() string {
	if len(m.points) == 0 {
		return "no data\n"
	}
	if m.width == 0 || m.height == 0 {
		return ""
	}

	plotCols := m.width - 2 - gutterWidth
	plotRows := m.height - 2 - 1 - legendLines
	if plotCols < 8 || plotRows < 3 {
		return "terminal too small\n"
	}

	visible := m.points[m.offset:]

	totals := func(p models.DataPoint) [4]float64 {
		return [4]float64{
			float64(p.Recoveries.Total),
			float64(p.Hospitalisations.Total),
			float64(p.Deaths.Total),
			float64(p.Cases.Total),
		}
	}

	lo, hi := totals(visible[0])[0], totals(visible[0])[0]
	series := [4][]float64{}
	for i := range series {
		series[i] = make([]float64, len(visible))
	}
	for i, p := range visible {
		for s, v := range totals(p) {
			series[s][i] = v
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	cv := newCanvas(plotCols, plotRows)
	for s := range series {
		cv.plot(series[s], lo, hi, s)
	}
	plotLines := cv.render(seriesStyles)

	var b strings.Builder
	for row, line := range plotLines {
		b.WriteString(m.yLabel(row, plotRows, lo, hi))
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(m.xLabels(visible, plotCols))
	b.WriteByte('\n')
	b.WriteString(m.legend(visible))

	return borderStyle.Width(m.width - 2).Render(b.String())
}

// yLabel returns the gutter of one plot row: the value bound at the
// top, bottom and middle rows, blank elsewhere.
func (m Model) yLabel(row, rows int, lo, hi float64) string {
	var value float64
	switch row {
	case 0:
		value = hi
	case rows - 1:
		value = lo
	case rows / 2:
		value = lo + (hi-lo)/2
	default:
		return strings.Repeat(" ", gutterWidth)
	}
	return axisStyle.Render(fmt.Sprintf("%*.0f ", gutterWidth-1, value))
}

// xLabels renders the date axis under the plot, stepping through the
// visible dates so labels never collide.
func (m Model) xLabels(visible []models.DataPoint, plotCols int) string {
	slots := plotCols / xLabelWidth
	if slots < 1 {
		slots = 1
	}
	step := (len(visible) + slots - 1) / slots
	if step < 1 {
		step = 1
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", gutterWidth))
	written := 0
	for i := 0; i < len(visible) && written+xLabelWidth <= plotCols; i += step {
		b.WriteString(axisStyle.Render(fmt.Sprintf("%-*s", xLabelWidth, visible[i].Date.Format("02.01"))))
		written += xLabelWidth
	}
	return b.String()
}

// legend renders the latest figures, one per line, in the colors of
// their plots. Active cases and incidence are text-only rows.
func (m Model) legend(visible []models.DataPoint) string {
	last := visible[len(visible)-1]
	indent := strings.Repeat(" ", gutterWidth)

	rows := []string{
		recoveredStyle.Render(m.bundle.FormatDelta(messages.Recovered,
			float64(last.Recoveries.Total), float64(last.Recoveries.Increase))),
		hospitalisedStyle.Render(m.bundle.FormatDelta(messages.Hospitalised,
			float64(last.Hospitalisations.Total), float64(last.Hospitalisations.Increase))),
		deathsStyle.Render(m.bundle.FormatDelta(messages.Deaths,
			float64(last.Deaths.Total), float64(last.Deaths.Increase))),
		casesStyle.Render(m.bundle.FormatDelta(messages.Cases,
			float64(last.Cases.Total), float64(last.Cases.Increase))),
		m.bundle.Format(messages.Active, float64(processor.ActiveCases(last))),
		m.bundle.Format(messages.Incidence, last.Incidence),
	}

	var b strings.Builder
	for i, row := range rows {
		b.WriteString(indent)
		b.WriteString(row)
		if i < len(rows)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
