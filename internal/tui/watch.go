package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/stokeworth/steamdisc/internal/discovery"
)

// DeviceEvent is one merge event delivered to the watch screen.
type DeviceEvent struct {
	Device  discovery.Device
	Outcome discovery.MergeOutcome
}

type deviceMsg DeviceEvent

// watchKeyMap defines key bindings for the watch screen
type watchKeyMap struct {
	Clear key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Clear, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Clear, k.Quit},
	}
}

// WatchModel is the bubbletea model for the continuous discovery screen.
type WatchModel struct {
	events <-chan DeviceEvent

	devices []discovery.Device
	byAddr  map[string]int

	startedAt  time.Time
	eventCount int

	width   int
	height  int
	spinner spinner.Model
	help    help.Model
	keys    watchKeyMap
}

// NewWatchModel creates the watch screen fed by events.
func NewWatchModel(events <-chan DeviceEvent) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	keys := watchKeyMap{
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	return WatchModel{
		events:    events,
		byAddr:    make(map[string]int),
		startedAt: time.Now(),
		spinner:   s,
		help:      help.New(),
		keys:      keys,
	}
}

// waitForEvent re-arms the channel receive as a bubbletea command.
func waitForEvent(events <-chan DeviceEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return tea.Quit()
		}
		return deviceMsg(ev)
	}
}

// Init starts the spinner and the first event receive.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

// Update handles messages and updates the model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear):
			m.devices = nil
			m.byAddr = make(map[string]int)
			m.eventCount = 0
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case deviceMsg:
		m.eventCount++
		if i, ok := m.byAddr[msg.Device.Addr]; ok {
			m.devices[i] = msg.Device
		} else {
			m.byAddr[msg.Device.Addr] = len(m.devices)
			m.devices = append(m.devices, msg.Device)
		}
		return m, waitForEvent(m.events)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the watch screen.
func (m WatchModel) View() string {
	width := contentWidth(m.width)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s LISTENING FOR STEAMIST DEVICES", m.spinner.View())))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf(
		"%d device(s) • %d announcement(s) • up %s",
		len(m.devices), m.eventCount, time.Since(m.startedAt).Round(time.Second),
	)))
	b.WriteString("\n\n")

	if len(m.devices) == 0 {
		b.WriteString(SubtitleStyle.Render("No announcements yet - probing the network..."))
		b.WriteString("\n")
	} else {
		for _, d := range m.devices {
			b.WriteString(m.renderCard(d, width))
			b.WriteString("\n")
		}
	}

	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	b.WriteString("\n")
	return b.String()
}

// renderCard renders one device card. Cards of devices heard within the
// last few seconds get the fresh highlight.
func (m WatchModel) renderCard(d discovery.Device, width int) string {
	displayName := d.Name
	if displayName == "" {
		displayName = d.Hostname
	}

	var content strings.Builder
	content.WriteString(ValueStyle.Bold(true).Render(displayName))
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("%s %s",
		LabelStyle.Render("Address:"), ValueStyle.Render(d.Addr)))
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("%s %s",
		LabelStyle.Render("MAC:    "), ValueStyle.Render(d.MAC)))
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("%s %s",
		LabelStyle.Render("Model:  "), ValueStyle.Render(d.Model)))

	if temp := d.GetExtra("temperature"); temp != "" {
		content.WriteString("\n")
		content.WriteString(fmt.Sprintf("%s %s°%s",
			LabelStyle.Render("Temp:   "), ValueStyle.Render(temp), d.GetExtra("temp_unit")))
	}

	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("%s %s",
		LabelStyle.Render("Seen:   "),
		LabelStyle.Render(d.LastSeen.Format("15:04:05"))))

	style := CardStyle
	if time.Since(d.LastSeen) < 5*time.Second {
		style = FreshCardStyle
	}
	return style.Width(width - 6).Render(content.String())
}

// Run starts the watch program and blocks until the user quits or the
// event channel closes.
func Run(events <-chan DeviceEvent) error {
	p := tea.NewProgram(NewWatchModel(events))
	_, err := p.Run()
	return err
}
