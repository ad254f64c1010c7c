package chart

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eqt-market-sim/internal/api"
)

const axisWidth = 11 // label plus separator

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	upStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	downStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	volumeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
)

type updateMsg Update

// Model is the bubbletea model of the live price and volume chart.
type Model struct {
	title   string
	updates <-chan Update
	frame   *api.StreamFrame
	status  string
	width   int
	height  int
}

func NewModel(title string, updates <-chan Update) Model {
	return Model{
		title:   title,
		updates: updates,
		status:  "connecting...",
		width:   80,
		height:  24,
	}
}

func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func waitForUpdate(updates <-chan Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return nil
		}
		return updateMsg(u)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case updateMsg:
		if msg.Frame != nil {
			m.frame = msg.Frame
		}
		if msg.Status != "" {
			m.status = msg.Status
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title + " Price Simulation - Real-time"))
	b.WriteString("\n")

	if m.frame == nil {
		b.WriteString(mutedStyle.Render(m.status))
		b.WriteString("\n")
		return b.String()
	}

	snap := m.frame.Snapshot
	changeStyle := upStyle
	sign := "+"
	if snap.PriceChange24h < 0 {
		changeStyle = downStyle
		sign = ""
	}
	b.WriteString(fmt.Sprintf("Price %.2f  %s  Vol %.4f  Base %.2f  Quote %.4f  Total %.2f\n",
		snap.Price,
		changeStyle.Render(fmt.Sprintf("%s%.2f%%", sign, snap.PriceChange24h)),
		snap.Volume24h, snap.BalanceBase, snap.BalanceQuote, snap.TotalValueBase))

	chartWidth := m.width - axisWidth - 2 // border
	if chartWidth < 10 {
		chartWidth = 10
	}
	chartHeight := m.height - 8 // header, volume row, status, border
	if chartHeight < 4 {
		chartHeight = 4
	}

	prices := fit(m.frame.History.Prices, chartWidth)
	top, bottom := axisLabels(prices)
	lines := PriceLines(prices, chartWidth, chartHeight)

	var body strings.Builder
	for i, line := range lines {
		label := strings.Repeat(" ", axisWidth-1)
		switch i {
		case 0:
			label = top
		case len(lines) - 1:
			label = bottom
		}
		body.WriteString(mutedStyle.Render(label) + " " + changeStyle.Render(line) + "\n")
	}
	body.WriteString(mutedStyle.Render(fmt.Sprintf("%10s", "volume")) + " ")
	body.WriteString(volumeStyle.Render(VolumeBars(m.frame.History.Volumes, chartWidth)))

	b.WriteString(borderStyle.Render(body.String()))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.status + "  (q to quit)"))
	return b.String()
}
