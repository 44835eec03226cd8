package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

type state int

const (
	stateLogin state = iota
	stateDashboard
	stateCommandForm
)

type RootModel struct {
	State     state
	Session   *Session
	Login     LoginModel
	Dashboard DashboardModel
	Form      CommandFormModel
	Quitting  bool
	width     int
	height    int
}

func NewRootModel() RootModel {
	s := NewSession()
	return RootModel{
		State:   stateLogin,
		Session: s,
		Login:   NewLoginModel(s),
	}
}

func (m RootModel) Init() tea.Cmd {
	return m.Login.Init()
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.State != stateLogin {
			m.Dashboard.Table.SetHeight(msg.Height - 10)
		}

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.Quitting = true
			m.Session.Close()
			return m, tea.Quit
		}
	}

	switch m.State {
	case stateLogin:
		if _, ok := msg.(loginSuccessMsg); ok {
			m.State = stateDashboard
			m.Dashboard = NewDashboardModel(m.Session, m.width, m.height)
			cmds = append(cmds, m.Dashboard.Init(), m.Session.WaitForMsg)
			return m, tea.Batch(cmds...)
		}

		newLogin, newCmd := m.Login.Update(msg)
		m.Login = newLogin
		cmds = append(cmds, newCmd)

	case stateDashboard:
		if sel, ok := msg.(DeviceSelectedMsg); ok {
			m.State = stateCommandForm
			m.Form = NewCommandFormModel(sel.DeviceID, sel.Serial, m.Session, m.width, m.height)
			cmds = append(cmds, m.Form.Init())
			return m, tea.Batch(cmds...)
		}

		newDash, newCmd := m.Dashboard.Update(msg)
		m.Dashboard = newDash
		cmds = append(cmds, newCmd)

		// keep pumping the feed
		if _, ok := msg.(FeedMsg); ok {
			cmds = append(cmds, m.Session.WaitForMsg)
		}

	case stateCommandForm:
		switch msg.(type) {
		case BackToDashboardMsg, CommandSentMsg:
			m.State = stateDashboard
			cmds = append(cmds, m.Dashboard.Init())
			return m, tea.Batch(cmds...)
		}

		newForm, newCmd := m.Form.Update(msg)
		m.Form = newForm
		cmds = append(cmds, newCmd)

		if _, ok := msg.(FeedMsg); ok {
			cmds = append(cmds, m.Session.WaitForMsg)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m RootModel) View() string {
	if m.Quitting {
		return "Bye!\n"
	}
	switch m.State {
	case stateLogin:
		return m.Login.View()
	case stateDashboard:
		return m.Dashboard.View()
	case stateCommandForm:
		return m.Form.View()
	}
	return "Unknown state"
}
