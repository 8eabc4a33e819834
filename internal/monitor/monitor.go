// Package monitor is a terminal dashboard over the agent's telemetry
// log: per-zone temperature sparklines, current fan speeds, and the
// learner's reward and exploration state.
package monitor

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/TIANLI0/QFan-Agent/internal/telemetry"
	"github.com/TIANLI0/QFan-Agent/internal/types"
)

const (
	pollInterval = 2 * time.Second
	tailRows     = 240
)

type tickMsg time.Time

type recordsMsg struct {
	records []telemetry.Record
	time    time.Time
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// Model is the BubbleTea model for the dashboard.
type Model struct {
	path      string
	targets   types.TargetsConfig
	emergency types.EmergencyConfig

	records  []telemetry.Record
	err      error
	width    int
	height   int
	lastPoll time.Time
	paused   bool
}

// New builds the initial model. path is the agent's telemetry CSV;
// thresholds come from the same config the agent runs with.
func New(path string, cfg types.Config) Model {
	return Model{
		path:      path,
		targets:   cfg.Targets,
		emergency: cfg.Emergency,
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) poll() tea.Msg {
	records, err := telemetry.ReadLastN(m.path, tailRows)
	if err != nil {
		return errMsg{err}
	}
	return recordsMsg{records: records, time: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.poll, tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.paused {
			return m, tickCmd()
		}
		return m, tea.Batch(m.poll, tickCmd())

	case recordsMsg:
		m.records = msg.records
		m.lastPoll = msg.time
		m.err = nil

	case errMsg:
		m.err = msg.err
		return m, tickCmd()
	}

	return m, nil
}

var (
	colorTitleBg = lipgloss.Color("17")
	colorTitleFg = lipgloss.Color("51")
	colorBorder  = lipgloss.Color("62")
	colorLabel   = lipgloss.Color("252")
	colorDim     = lipgloss.Color("240")
	colorValue   = lipgloss.Color("250")
	colorOk      = lipgloss.Color("78")
	colorWarn    = lipgloss.Color("220")
	colorCrit    = lipgloss.Color("196")
	colorPaused  = lipgloss.Color("196")
)

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 48 {
		contentWidth = 48
	}

	var sections []string
	sections = append(sections, m.renderTitleBar(contentWidth))

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Width(contentWidth).
			Padding(0, 1).
			Render(fmt.Sprintf(" ERROR: %v", m.err))
		sections = append(sections, errBox)
	}

	if len(m.records) == 0 {
		waiting := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(contentWidth).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render("Waiting for telemetry...")
		sections = append(sections, waiting)
	} else {
		last := m.records[len(m.records)-1]
		sections = append(sections,
			m.renderZonePanel(contentWidth, "RADIATOR", m.targets.Radiator,
				m.emergency.RadiatorCritical, zoneSeries(m.records, radTemp), last.FanRad),
			m.renderZonePanel(contentWidth, "STORAGE", m.targets.Storage,
				m.emergency.StorageCritical, zoneSeries(m.records, chsTemp), last.FanChs),
			m.renderLearnerPanel(contentWidth, last),
		)
	}

	sections = append(sections, m.renderFooter(contentWidth))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func radTemp(r telemetry.Record) float64 { return r.RadAvg }
func chsTemp(r telemetry.Record) float64 { return r.ChsAvg }

func zoneSeries(records []telemetry.Record, pick func(telemetry.Record) float64) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = pick(r)
	}
	return out
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("QFAN MONITOR")

	var statusParts []string
	if !m.lastPoll.IsZero() {
		ts := lipgloss.NewStyle().
			Foreground(colorDim).
			Render(m.lastPoll.Format("15:04:05"))
		statusParts = append(statusParts, ts)
	}
	if m.paused {
		p := lipgloss.NewStyle().
			Foreground(colorPaused).
			Bold(true).
			Render("PAUSED")
		statusParts = append(statusParts, p)
	}
	statusParts = append(statusParts,
		lipgloss.NewStyle().Foreground(colorDim).Render(m.path))

	sep := lipgloss.NewStyle().Foreground(colorDim).Render(" │ ")
	right := strings.Join(statusParts, sep)

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Model) renderZonePanel(totalWidth int, name string, target, critical float64, series []float64, fan int) string {
	chartWidth := totalWidth - 28
	if chartWidth < 20 {
		chartWidth = 20
	}
	if chartWidth > 160 {
		chartWidth = 160
	}

	current := series[len(series)-1]
	lo, hi := seriesRange(series)
	rangeMin := math.Max(0, lo-5)
	rangeMax := math.Max(hi, critical) + 5

	title := lipgloss.NewStyle().Bold(true).Foreground(colorLabel).Render(name)
	temp := renderTemp(current, target, critical)
	fanStr := lipgloss.NewStyle().Foreground(colorValue).Render(fmt.Sprintf("fan %3d%%", fan))

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	spark := renderSparkline(series, chartWidth, rangeMin, rangeMax, target, critical)
	stats := dimS.Render(" tgt") +
		lipgloss.NewStyle().Foreground(colorValue).Render(fmt.Sprintf("%5.1f", target)) +
		dimS.Render(" pk") +
		lipgloss.NewStyle().Foreground(colorValue).Render(fmt.Sprintf("%5.1f", hi))

	header := title + "  " + temp + "  " + fanStr
	row := spark + stats

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, row))
}

func (m Model) renderLearnerPanel(totalWidth int, last telemetry.Record) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(colorValue)

	row := dimS.Render("reward ") + valS.Render(fmt.Sprintf("%7.2f", last.Reward)) +
		dimS.Render("   epsilon ") + valS.Render(fmt.Sprintf("%.4f", last.Epsilon)) +
		dimS.Render("   states ") + valS.Render(fmt.Sprintf("%d", last.QStates)) +
		dimS.Render("   samples ") + valS.Render(fmt.Sprintf("%d", len(m.records)))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(row)
}

func (m Model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	okS := lipgloss.NewStyle().Foreground(colorOk).Render("██")
	warnS := lipgloss.NewStyle().Foreground(colorWarn).Render("██")
	critS := lipgloss.NewStyle().Foreground(colorCrit).Render("██")

	legend := okS + dimS.Render(" at target ") +
		warnS + dimS.Render(" warm ") +
		critS + dimS.Render(" critical")

	keys := dimS.Render("q") + lipgloss.NewStyle().Foreground(colorLabel).Render(":quit") +
		dimS.Render("  p") + lipgloss.NewStyle().Foreground(colorLabel).Render(":pause")

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(width).
		Padding(0, 1).
		Render(legend + strings.Repeat(" ", gap) + keys)
}

func seriesRange(series []float64) (lo, hi float64) {
	lo, hi = series[0], series[0]
	for _, v := range series[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
