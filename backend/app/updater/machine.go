package updater

import (
	"fmt"
	"sync"
)

// Phase of the application self-update, a strict forward-progressing
// state machine. The only cycle is re-entry to Checking at next launch.
type Phase string

const (
	PhaseChecking        Phase = "Checking"
	PhaseNoUpdate        Phase = "NoUpdate"
	PhaseUpdateAvailable Phase = "UpdateAvailable"
	PhaseDownloading     Phase = "Downloading"
	PhaseDownloaded      Phase = "Downloaded"
	PhaseInstalling      Phase = "Installing"
	PhaseInstalled       Phase = "Installed"
	PhaseComplete        Phase = "Complete"
	PhaseError           Phase = "Error"
)

// Status carries the current phase plus its variant data.
type Status struct {
	Phase    Phase     `json:"phase"`
	Info     *Manifest `json:"info,omitempty"`     // UpdateAvailable
	Progress float64   `json:"progress,omitempty"` // Downloading
	Message  string    `json:"message,omitempty"`  // Error
}

// order encodes forward progress. Terminal phases never transition to
// an earlier non-Checking phase within one run.
var order = map[Phase]int{
	PhaseChecking:        0,
	PhaseNoUpdate:        1,
	PhaseUpdateAvailable: 1,
	PhaseDownloading:     2,
	PhaseDownloaded:      3,
	PhaseInstalling:      4,
	PhaseInstalled:       5,
	PhaseComplete:        6,
	PhaseError:           6,
}

func terminal(p Phase) bool {
	return p == PhaseComplete || p == PhaseError || p == PhaseNoUpdate
}

// Machine guards self-update status transitions.
type Machine struct {
	mu  sync.Mutex
	cur Status
}

func NewMachine() *Machine {
	return &Machine{cur: Status{Phase: PhaseChecking}}
}

// Current returns the status as last set.
func (m *Machine) Current() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// To advances the machine. Re-entry to Checking is allowed only from a
// terminal phase (the next launch); everything else must move forward.
// An illegal transition returns an error and leaves state unchanged.
func (m *Machine) To(next Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.cur.Phase
	if next.Phase == PhaseChecking {
		if !terminal(cur) && cur != PhaseChecking {
			return fmt.Errorf("update status: cannot re-check from %s", cur)
		}
		m.cur = Status{Phase: PhaseChecking}
		return nil
	}
	if terminal(cur) {
		return fmt.Errorf("update status: %s is terminal", cur)
	}
	if next.Phase == PhaseError {
		m.cur = next
		return nil
	}
	if order[next.Phase] < order[cur] || (order[next.Phase] == order[cur] && next.Phase != cur) {
		return fmt.Errorf("update status: illegal transition %s -> %s", cur, next.Phase)
	}
	m.cur = next
	return nil
}
