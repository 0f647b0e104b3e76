package ui

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	psutil "github.com/shirou/gopsutil/v3/cpu"
	psmem "github.com/shirou/gopsutil/v3/mem"

	"hashquest/internal/api"
	"hashquest/internal/engine"
	"hashquest/internal/game"
)

// View states
const (
	DashboardView = iota
	ShopView
	LogView
)

const (
	refreshInterval = 250 * time.Millisecond
	commandTimeout  = 10 * time.Second
	maxLogLines     = 200
)

// upgradeItem adapts an UpgradeView to the bubbles list
type upgradeItem struct {
	view game.UpgradeView
}

func (i upgradeItem) Title() string {
	mark := "  "
	switch {
	case i.view.Owned:
		mark = "✔ "
	case i.view.Affordable:
		mark = "$ "
	}
	return mark + i.view.Name
}

func (i upgradeItem) Description() string {
	return fmt.Sprintf("%s | cost %s | %s", i.view.EffectText, game.Amount(i.view.Cost), i.view.Description)
}

func (i upgradeItem) FilterValue() string { return i.view.Name }

// Model represents the application state
type Model struct {
	CurrentView int
	Controller  Controller
	Remote      string // host address when driving a remote game

	Shop     list.Model
	LogView  viewport.Model
	Input    textarea.Model
	Progress progress.Model

	Snapshot     game.Snapshot
	Upgrades     []game.UpgradeView
	Logs         []string
	ResourceData string
	LastError    string
	Width        int
	Height       int

	Importing      bool // import textarea has focus
	ConfirmReset   bool // the next reset key wipes progress
	ShowCopyNotice bool
	CopyNotice     string
	Quitting       bool
}

// NewModel creates a new UI model driving ctrl
func NewModel(ctrl Controller) Model {
	defaultWidth := 80
	defaultHeight := 24

	shop := list.New(nil, list.NewDefaultDelegate(), defaultWidth-4, defaultHeight-8)
	shop.Title = "Upgrade Shop"
	shop.SetShowStatusBar(false)
	shop.SetFilteringEnabled(false)

	logView := viewport.New(defaultWidth-4, defaultHeight-6)
	logView.Style = logViewStyle

	input := textarea.New()
	input.Placeholder = "Paste an exported save and press enter (esc cancels)..."
	input.Prompt = ""
	input.SetHeight(3)
	input.SetWidth(defaultWidth - 6)
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#2563EB"))
	input.Blur()

	model := Model{
		CurrentView: DashboardView,
		Controller:  ctrl,
		Shop:        shop,
		LogView:     logView,
		Input:       input,
		Progress:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		Logs:        []string{"Welcome to HashQuest! Press s to start mining."},
		Width:       defaultWidth,
		Height:      defaultHeight,
	}
	model.updateLogView()
	return model
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.ClearScreen,
		m.refresh(),
		m.updateResourceData(),
	)
}

// Update handles UI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.Quitting = true
			return m, tea.Quit
		}
		if m.Importing {
			return m.updateImport(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m = m.handleResize(msg)

	case snapshotMsg:
		if msg.err != nil {
			m.LastError = msg.err.Error()
		} else {
			m.LastError = ""
			m.Snapshot = msg.snap
			m.Upgrades = msg.upgrades
			cmds = append(cmds, m.setShopItems())
		}
		cmds = append(cmds, m.refresh())

	case updateResourceDataMsg:
		m.ResourceData = msg.data
		cmds = append(cmds, m.updateResourceData())

	case AppendLogMsg:
		m.appendLog(msg.Log)

	case actionResultMsg:
		if msg.err != nil {
			m.appendLog(errorStyle.Render("✗ ") + msg.err.Error())
		} else if msg.log != "" {
			m.appendLog(msg.log)
		}
		if msg.copied != "" {
			m.ShowCopyNotice = true
			m.CopyNotice = msg.copied
			cmds = append(cmds, m.startCopyNoticeTimer())
		}

	case hideCopyNoticeMsg:
		m.ShowCopyNotice = false
	}

	if m.CurrentView == LogView {
		m.LogView, cmd = m.LogView.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// handleKey maps key bindings onto controller commands
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key != "r" {
		m.ConfirmReset = false
	}

	switch key {
	case "q":
		m.Quitting = true
		return m, tea.Quit
	case "tab":
		m.CurrentView = (m.CurrentView + 1) % 3
		return m, nil
	case "1":
		m.CurrentView = DashboardView
		return m, nil
	case "2":
		m.CurrentView = ShopView
		return m, nil
	case "3":
		m.CurrentView = LogView
		return m, nil
	case "s":
		if m.Snapshot.Engine.State == engine.Paused {
			return m, m.run("Mining resumed", m.Controller.Resume)
		}
		return m, m.run("Mining started", m.Controller.Start)
	case "p":
		return m, m.run("Mining paused, progress saved", m.Controller.Pause)
	case "x":
		return m, m.run("Mining stopped, progress saved", m.Controller.Stop)
	case "+", "=":
		return m, m.setTickRate(m.Snapshot.Engine.TickRate * 2)
	case "-", "_":
		return m, m.setTickRate(m.Snapshot.Engine.TickRate / 2)
	case "c":
		return m, m.copySummary()
	case "e":
		return m, m.copyExport()
	case "i":
		m.Importing = true
		m.Input.Reset()
		m.Input.Focus()
		return m, textarea.Blink
	case "r":
		if !m.ConfirmReset {
			m.ConfirmReset = true
			m.appendLog(pausedStyle.Render("Press r again to wipe all progress"))
			return m, nil
		}
		m.ConfirmReset = false
		return m, m.run("Game reset to a fresh start", m.Controller.ResetGame)
	case "enter":
		if m.CurrentView == ShopView {
			if item, ok := m.Shop.SelectedItem().(upgradeItem); ok {
				return m, m.purchase(item.view.ID)
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.CurrentView {
	case ShopView:
		m.Shop, cmd = m.Shop.Update(msg)
	case LogView:
		m.LogView, cmd = m.LogView.Update(msg)
	}
	return m, cmd
}

// updateImport routes keys to the import textarea
func (m Model) updateImport(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.Importing = false
		m.Input.Blur()
		return m, nil
	case tea.KeyEnter:
		data := strings.TrimSpace(m.Input.Value())
		m.Importing = false
		m.Input.Blur()
		m.Input.Reset()
		if data == "" {
			return m, nil
		}
		return m, m.run("Save imported", func(ctx context.Context) error {
			return m.Controller.ImportSave(ctx, data)
		})
	}
	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// View renders the UI
func (m Model) View() string {
	if m.Quitting {
		return ""
	}

	var body string
	switch m.CurrentView {
	case ShopView:
		body = panelStyle.Width(m.Width - 2).Render(m.Shop.View())
	case LogView:
		body = m.LogView.View()
	default:
		body = m.renderDashboard()
	}
	if m.Importing {
		body = lipgloss.JoinVertical(lipgloss.Left, body, inputStyle.Width(m.Width-2).Render(m.Input.View()))
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderHelp(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	state := m.Snapshot.Engine.State
	var status string
	switch state {
	case engine.Running:
		status = runningStyle.Render("● mining")
	case engine.Paused:
		status = pausedStyle.Render("❚❚ paused")
	default:
		status = "○ idle"
	}
	where := "local"
	if m.Remote != "" {
		where = m.Remote
	}
	left := fmt.Sprintf(" HashQuest | %s | %s", status, where)
	right := fmt.Sprintf("Level %d ", m.Snapshot.Level)

	padding := m.Width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if padding < 1 {
		padding = 1
	}
	return headerStyle.Width(m.Width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m Model) renderDashboard() string {
	snap := m.Snapshot
	s := snap.State

	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value)
	}
	rows := []string{
		row("Balance", game.Amount(s.Balance)),
		row("Earned", game.Amount(s.TotalEarned)),
		row("Difficulty", fmt.Sprintf("%d bits (p=%.3g)", s.Difficulty, snap.SuccessProbability)),
		row("Reward", game.Amount(snap.RewardPerSuccess)+" per success"),
		row("Attempts", fmt.Sprintf("%s (%s found)", game.Amount(s.TotalAttempts), game.Amount(s.TotalSuccesses))),
		row("Session", fmt.Sprintf("%s attempts, %s found",
			game.Amount(snap.Engine.Session.AttemptsThisSession), game.Amount(snap.Engine.Session.SuccessesThisSession))),
		row("Hash rate", game.HashRate(snap.Stats.HashRate)),
		row("Success", fmt.Sprintf("%.2f%%", snap.Stats.SuccessRate*100)),
		row("Earnings", fmt.Sprintf("%.2f/min", snap.Stats.EarningsPerMinute)),
		row("Tick rate", fmt.Sprintf("%.2f/s x %d attempts", snap.Engine.TickRate, snap.Engine.AttemptsPerTick)),
		row("Oracle", snap.Engine.Oracle),
	}

	level := fmt.Sprintf("Level %d  %s  next at %s", snap.Level,
		m.Progress.ViewAs(levelProgress(snap.Level, s.TotalEarned)), game.Amount(snap.NextLevelAt))

	chartWidth := m.chartWidth()
	chart := infoStyle.Render("Hash rate") + "\n" + chartStyle.Render(Sparkline(snap.Series, chartWidth))

	var notes []string
	if snap.Engine.LastError != "" {
		notes = append(notes, errorStyle.Render("Engine: "+snap.Engine.LastError))
	}
	if snap.SaveError != "" {
		notes = append(notes, errorStyle.Render("Save: "+snap.SaveError))
	}
	if m.LastError != "" {
		notes = append(notes, errorStyle.Render(m.LastError))
	}
	if len(m.Logs) > 0 {
		notes = append(notes, helpStyle.Render(ansi.Truncate(m.Logs[len(m.Logs)-1], m.Width-6, "…")))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		strings.Join(rows, "\n"),
		"",
		level,
		"",
		chart,
		"",
		strings.Join(notes, "\n"),
	)
	if m.Height >= 40 {
		content = lipgloss.JoinVertical(lipgloss.Left, logoStyle.Render(hashquestLogo), content)
	}
	return panelStyle.Width(m.Width - 2).Render(content)
}

func (m Model) renderHelp() string {
	switch {
	case m.Importing:
		return helpStyle.Render(" enter import • esc cancel")
	case m.CurrentView == ShopView:
		return helpStyle.Render(" ↑/↓ select • enter buy • tab views • s start • p pause • q quit")
	default:
		return helpStyle.Render(" s start • p pause • x stop • +/- speed • c copy summary • e export • i import • r reset • tab views • q quit")
	}
}

func (m Model) renderFooter() string {
	left := m.ResourceData
	if m.ShowCopyNotice {
		left = copyNoticeStyle.Render(m.CopyNotice) + " " + left
	}
	save := "saved"
	if m.Snapshot.SavePending {
		save = "save pending"
	}
	return footerStyle.Width(m.Width).Render(left + " | " + save)
}

func (m Model) chartWidth() int {
	w := m.Width - 8
	if w < 10 {
		w = 10
	}
	return w
}

// handleResize adjusts layout for window resizing
func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.Width = msg.Width
	m.Height = msg.Height

	// header(1) + help(1) + footer(1) + panel border(2)
	contentHeight := msg.Height - 5
	if contentHeight < 6 {
		contentHeight = 6
	}
	m.Shop.SetSize(msg.Width-6, contentHeight)
	m.LogView.Width = msg.Width
	m.LogView.Height = contentHeight
	m.Input.SetWidth(msg.Width - 6)

	barWidth := msg.Width - 40
	if barWidth < 10 {
		barWidth = 10
	}
	m.Progress.Width = barWidth

	m.updateLogView()
	return m
}

func (m *Model) appendLog(line string) {
	stamp := time.Now().Format("15:04:05")
	m.Logs = append(m.Logs, stamp+" "+line)
	if len(m.Logs) > maxLogLines {
		m.Logs = m.Logs[len(m.Logs)-maxLogLines:]
	}
	m.updateLogView()
}

// updateLogView updates the log view with the activity log
func (m *Model) updateLogView() {
	width := m.LogView.Width - 2
	if width < 10 {
		width = 10
	}
	var content strings.Builder
	for _, line := range m.Logs {
		// Word wrap log entry to viewport width
		content.WriteString(ansi.Wordwrap(line, width, " \t"))
		content.WriteString("\n")
	}
	m.LogView.SetContent(content.String())
	m.LogView.GotoBottom()
}

func (m *Model) setShopItems() tea.Cmd {
	items := make([]list.Item, 0, len(m.Upgrades))
	for _, u := range m.Upgrades {
		items = append(items, upgradeItem{u})
	}
	return m.Shop.SetItems(items)
}

// refresh polls the controller for a fresh snapshot
func (m Model) refresh() tea.Cmd {
	ctrl := m.Controller
	buckets := min(m.chartWidth(), api.MaxSeriesBuckets)
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		snap, err := ctrl.Snapshot(ctx, buckets)
		if err != nil {
			return snapshotMsg{err: err}
		}
		upgrades, err := ctrl.Upgrades(ctx)
		return snapshotMsg{snap: snap, upgrades: upgrades, err: err}
	})
}

// run executes a controller command off the UI goroutine
func (m Model) run(success string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return actionResultMsg{err: err}
		}
		return actionResultMsg{log: success}
	}
}

func (m Model) setTickRate(rate float64) tea.Cmd {
	ctrl := m.Controller
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		applied, err := ctrl.SetTickRate(ctx, rate)
		if err != nil {
			return actionResultMsg{err: err}
		}
		return actionResultMsg{log: fmt.Sprintf("Tick rate set to %.2f/s", applied)}
	}
}

func (m Model) purchase(id string) tea.Cmd {
	ctrl := m.Controller
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		u, err := ctrl.PurchaseUpgrade(ctx, id)
		if err != nil {
			return actionResultMsg{err: err}
		}
		return actionResultMsg{log: fmt.Sprintf("Bought %s (%s)", u.Name, u.Effect)}
	}
}

var (
	defaultClipboardWrite = clipboard.WriteAll
	// clipboardWrite is swapped out in tests
	clipboardWrite = defaultClipboardWrite
)

func (m Model) copySummary() tea.Cmd {
	ctrl := m.Controller
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		summary, err := ctrl.Summary(ctx)
		if err != nil {
			return actionResultMsg{err: err}
		}
		if err := clipboardWrite(summary); err != nil {
			return actionResultMsg{err: fmt.Errorf("clipboard: %w", err)}
		}
		return actionResultMsg{log: "Summary copied to clipboard", copied: "Summary copied"}
	}
}

func (m Model) copyExport() tea.Cmd {
	ctrl := m.Controller
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		data, err := ctrl.ExportSave(ctx)
		if err != nil {
			return actionResultMsg{err: err}
		}
		if err := clipboardWrite(data); err != nil {
			return actionResultMsg{err: fmt.Errorf("clipboard: %w", err)}
		}
		return actionResultMsg{log: "Save exported to clipboard", copied: "Save copied"}
	}
}

// updateResourceData updates resource usage information
func (m Model) updateResourceData() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		cpuPercent, _ := psutil.Percent(0, false)
		memInfo, _ := psmem.VirtualMemory()

		cpu := 0.0
		if len(cpuPercent) > 0 {
			cpu = cpuPercent[0]
		}
		ram := 0.0
		if memInfo != nil {
			ram = memInfo.UsedPercent
		}
		data := fmt.Sprintf("CPU: %.1f%% | RAM: %.1f%% | Go: %s", cpu, ram, runtime.Version())
		return updateResourceDataMsg{data}
	})
}

func (m Model) startCopyNoticeTimer() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return hideCopyNoticeMsg{}
	})
}

// Messages
type updateResourceDataMsg struct {
	data string
}

// AppendLogMsg adds a line to the activity log
type AppendLogMsg struct {
	Log string
}

type snapshotMsg struct {
	snap     game.Snapshot
	upgrades []game.UpgradeView
	err      error
}

type actionResultMsg struct {
	log    string
	copied string
	err    error
}

type hideCopyNoticeMsg struct{}
