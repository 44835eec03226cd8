package ui

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type FormState int

const (
	StateSelecting FormState = iota
	StateFilling
)

type cmdItem struct {
	title, desc string
	index       int
}

func (i cmdItem) Title() string       { return i.title }
func (i cmdItem) Description() string { return i.desc }
func (i cmdItem) FilterValue() string { return i.title }

// CommandSentMsg indicates a command was accepted by the backend.
type CommandSentMsg struct {
	Command string
}

// BackToDashboardMsg signals transition back to dashboard.
type BackToDashboardMsg struct{}

type CommandFormModel struct {
	DeviceID    string
	Serial      string
	Session     *Session
	State       FormState
	List        list.Model
	Inputs      []textinput.Model
	Focused     int
	SelectedCmd int
	Err         error
}

type CommandDef struct {
	Name        string
	Description string
	Fields      []FieldDef
}

type FieldDef struct {
	Name        string
	Placeholder string
	Required    bool
	Default     string
}

var availableCommands = []CommandDef{
	{Name: "ping_devices", Description: "Check the headset responds"},
	{Name: "request_battery", Description: "Ask for a battery reading"},
	{Name: "get_volume", Description: "Ask for the current volume"},
	{
		Name:        "set_volume",
		Description: "Set media volume",
		Fields:      []FieldDef{{Name: "level", Placeholder: "0-100", Required: true, Default: "50"}},
	},
	{Name: "get_installed_apps", Description: "List installed packages"},
	{
		Name:        "launch_app",
		Description: "Launch an installed package",
		Fields:      []FieldDef{{Name: "packageName", Placeholder: "com.example.game", Required: true}},
	},
	{
		Name:        "uninstall_app",
		Description: "Remove an installed package",
		Fields:      []FieldDef{{Name: "packageName", Placeholder: "com.example.game", Required: true}},
	},
	{Name: "close_all_apps", Description: "Close the foreground app"},
	{Name: "restart_devices", Description: "Reboot the headset"},
	{
		Name:        "install_remote_apk",
		Description: "Download and install an APK by URL",
		Fields:      []FieldDef{{Name: "url", Placeholder: "https://...", Required: true}},
	},
	{
		Name:        "install_local_apk",
		Description: "Install an APK uploaded to the backend",
		Fields:      []FieldDef{{Name: "apkName", Placeholder: "game.apk", Required: true}},
	},
	{
		Name:        "execute_shell",
		Description: "Run a shell command on the headset",
		Fields:      []FieldDef{{Name: "command", Placeholder: "e.g. pm list packages", Required: true}},
	},
	{
		Name:        "display_message",
		Description: "Show a message inside the headset",
		Fields:      []FieldDef{{Name: "message", Placeholder: "Session ends in 5 minutes", Required: true}},
	},
}

func NewCommandFormModel(deviceID, serial string, session *Session, width, height int) CommandFormModel {
	items := []list.Item{}
	for i, cmd := range availableCommands {
		items = append(items, cmdItem{title: cmd.Name, desc: cmd.Description, index: i})
	}

	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, width, height-4)
	l.Title = "Command for " + serial
	l.SetShowHelp(false)

	return CommandFormModel{
		DeviceID: deviceID,
		Serial:   serial,
		Session:  session,
		State:    StateSelecting,
		List:     l,
	}
}

func (m *CommandFormModel) initInputs() {
	cmd := availableCommands[m.SelectedCmd]
	m.Inputs = make([]textinput.Model, len(cmd.Fields))
	for i, field := range cmd.Fields {
		ti := textinput.New()
		ti.Placeholder = field.Placeholder
		ti.CharLimit = 256
		if field.Default != "" {
			ti.SetValue(field.Default)
		}
		if i == 0 {
			ti.Focus()
		}
		m.Inputs[i] = ti
	}
	m.Focused = 0
}

func (m CommandFormModel) Init() tea.Cmd {
	return nil
}

func (m CommandFormModel) Update(msg tea.Msg) (CommandFormModel, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	if m.State == StateSelecting {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch msg.String() {
			case "esc":
				return m, func() tea.Msg { return BackToDashboardMsg{} }
			case "enter":
				if i, ok := m.List.SelectedItem().(cmdItem); ok {
					m.SelectedCmd = i.index
					if len(availableCommands[i.index].Fields) == 0 {
						return m, m.submitCommand()
					}
					m.State = StateFilling
					m.initInputs()
					return m, textinput.Blink
				}
			case "up", "k":
				m.List.CursorUp()
				return m, nil
			case "down", "j":
				m.List.CursorDown()
				return m, nil
			}
		case tea.WindowSizeMsg:
			m.List.SetWidth(msg.Width)
			m.List.SetHeight(msg.Height - 4)
		case errMsg:
			m.Err = msg
		}
		m.List, cmd = m.List.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch msg.String() {
			case "esc":
				m.State = StateSelecting
				return m, nil
			case "enter":
				if m.Focused == len(m.Inputs) {
					return m, m.submitCommand()
				}
				m.Focused++
				m.updateFocus()
				return m, nil
			case "tab", "down":
				m.Focused++
				if m.Focused > len(m.Inputs) {
					m.Focused = 0
				}
				m.updateFocus()
				return m, nil
			case "shift+tab", "up":
				m.Focused--
				if m.Focused < 0 {
					m.Focused = len(m.Inputs)
				}
				m.updateFocus()
				return m, nil
			}
		case errMsg:
			m.Err = msg
		}
		if m.Focused >= 0 && m.Focused < len(m.Inputs) {
			m.Inputs[m.Focused], cmd = m.Inputs[m.Focused].Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *CommandFormModel) updateFocus() {
	for i := range m.Inputs {
		if i == m.Focused {
			m.Inputs[i].Focus()
		} else {
			m.Inputs[i].Blur()
		}
	}
}

func (m CommandFormModel) renderButton(text string, focused bool) string {
	if focused {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("205")).Padding(0, 3).Bold(true).Render(text)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("254")).Background(lipgloss.Color("240")).Padding(0, 3).Render(text)
}

func (m CommandFormModel) View() string {
	if m.State == StateSelecting {
		s := m.List.View()
		s += "\n" + blurredStyle.Render("Enter to select, Esc to go back")
		if m.Err != nil {
			s += "\n" + errorMessageStyle(m.Err.Error())
		}
		return s
	}

	cmd := availableCommands[m.SelectedCmd]
	var s string

	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Render(fmt.Sprintf("Parameters: %s", cmd.Name))
	s += title + "\n\n"

	for i, field := range cmd.Fields {
		label := field.Name
		if field.Required {
			label += " *"
		}

		labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
		if i == m.Focused {
			labelStyle = labelStyle.Foreground(lipgloss.Color("205")).Bold(true)
		}
		s += labelStyle.Render(label) + "\n"
		s += m.Inputs[i].View() + "\n\n"
	}

	s += "\n" + m.renderButton("Send", m.Focused == len(m.Inputs))

	if m.Err != nil {
		s += "\n\n" + errorMessageStyle(m.Err.Error())
	}

	return docStyle.Render(s)
}

func (m CommandFormModel) submitCommand() tea.Cmd {
	return func() tea.Msg {
		cmd := availableCommands[m.SelectedCmd]
		arg, err := buildArgument(cmd, m.Inputs)
		if err != nil {
			return errMsg(err)
		}
		if err := m.Session.SendCommand(cmd.Name, []string{m.DeviceID}, arg); err != nil {
			return errMsg(err)
		}
		return CommandSentMsg{Command: cmd.Name}
	}
}

func buildArgument(cmd CommandDef, inputs []textinput.Model) (json.RawMessage, error) {
	if len(cmd.Fields) == 0 {
		return nil, nil
	}
	payload := map[string]any{}
	for i, field := range cmd.Fields {
		val := inputs[i].Value()
		if val == "" {
			if field.Required {
				return nil, fmt.Errorf("%s is required", field.Name)
			}
			continue
		}
		if field.Name == "level" {
			level, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("level must be a number")
			}
			payload[field.Name] = level
			continue
		}
		payload[field.Name] = val
	}
	return json.Marshal(payload)
}
