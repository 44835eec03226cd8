package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"arceus-fleet/cmd/fleetui/ui"
)

func main() {
	p := tea.NewProgram(ui.NewRootModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Println("fleetui error:", err)
		os.Exit(1)
	}
}
