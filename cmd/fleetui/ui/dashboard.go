package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"arceus-fleet/backend/app/events"
	"arceus-fleet/backend/app/fleet"
)

type DashboardModel struct {
	Session *Session
	Table   table.Model
	Devices []fleet.DeviceState
	Err     error
}

type devicesMsg []fleet.DeviceState

// DeviceSelectedMsg signals the operator picked a device for a command.
type DeviceSelectedMsg struct {
	DeviceID string
	Serial   string
}

func NewDashboardModel(s *Session, width, height int) DashboardModel {
	columns := []table.Column{
		{Title: "Name", Width: 18},
		{Title: "Serial", Width: 16},
		{Title: "Model", Width: 12},
		{Title: "Battery", Width: 9},
		{Title: "Volume", Width: 8},
		{Title: "App", Width: 22},
		{Title: "Progress", Width: 24},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height-10),
	)

	sStyle := table.DefaultStyles()
	sStyle.Header = sStyle.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	sStyle.Selected = sStyle.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(sStyle)

	return DashboardModel{
		Session: s,
		Table:   t,
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return m.refreshCmd
}

func (m DashboardModel) refreshCmd() tea.Msg {
	devices, err := m.Session.Devices()
	if err != nil {
		return errMsg(err)
	}
	return devicesMsg(devices)
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			return m, m.refreshCmd
		case "c", "enter":
			if i := m.Table.Cursor(); i >= 0 && i < len(m.Devices) {
				d := m.Devices[i]
				return m, func() tea.Msg {
					return DeviceSelectedMsg{DeviceID: d.ID, Serial: d.Serial}
				}
			}
		case "q":
			return m, tea.Quit
		}

	case devicesMsg:
		m.Err = nil
		m.setDevices([]fleet.DeviceState(msg))
		return m, nil

	case FeedMsg:
		if msg.Err != nil {
			m.Err = msg.Err
			return m, nil
		}
		if msg.Snapshot != nil {
			m.Err = nil
			m.setDevices(msg.Snapshot)
			return m, nil
		}
		// incremental event: the projection on the backend is the source
		// of truth, so pull a fresh snapshot
		if msg.Event != nil {
			return m, m.refreshCmd
		}

	case errMsg:
		m.Err = msg
		return m, nil
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m *DashboardModel) setDevices(devices []fleet.DeviceState) {
	m.Devices = devices
	rows := make([]table.Row, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, table.Row{
			displayName(d),
			d.Serial,
			d.Model,
			batteryCell(d.Battery),
			volumeCell(d.Volume),
			appCell(d),
			progressCell(d.Progress),
		})
	}
	m.Table.SetRows(rows)
}

func displayName(d fleet.DeviceState) string {
	if d.CustomName != "" {
		return d.CustomName
	}
	return d.Serial
}

func batteryCell(b *events.BatteryInfo) string {
	if b == nil {
		return "-"
	}
	if b.IsCharging {
		return fmt.Sprintf("%d%% ⚡", b.HeadsetLevel)
	}
	return fmt.Sprintf("%d%%", b.HeadsetLevel)
}

func volumeCell(v *events.VolumeInfo) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d/%d", v.Level, v.Max)
}

func appCell(d fleet.DeviceState) string {
	if d.CurrentApp == "" {
		return "-"
	}
	return d.CurrentApp
}

func progressCell(p *events.Progress) string {
	if p == nil {
		return ""
	}
	switch p.Stage {
	case events.StageInProgress:
		return fmt.Sprintf("%s %d%%", p.OperationType, p.Percentage)
	default:
		return fmt.Sprintf("%s %s", p.OperationType, p.Stage)
	}
}

func (m DashboardModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Fleet Dashboard") + "\n\n")
	b.WriteString(m.Table.View())
	b.WriteString("\n\n")
	b.WriteString(blurredStyle.Render("'c' command, 'r' refresh, 'q' quit, up/down to navigate"))

	if m.Err != nil {
		b.WriteString("\n" + errorMessageStyle(m.Err.Error()))
	}
	return b.String()
}
