package fleet

import (
	"sort"

	"arceus-fleet/backend/app/bus"
	"arceus-fleet/backend/app/events"
)

const defaultHistoryLimit = 25

// DeviceState is the projected snapshot of one connected headset.
type DeviceState struct {
	events.DeviceInfo
	InstalledApps []events.AppInfo       `json:"installedApps,omitempty"`
	History       []events.CommandResult `json:"commandHistory,omitempty"`
	Progress      *events.Progress       `json:"progress,omitempty"`
}

type op func(map[string]*DeviceState)

// Projector folds fleet events into per-device snapshots. A single
// goroutine owns the map; every mutation and read travels through the
// ops channel, so there is exactly one writer and reads are copies.
type Projector struct {
	ops          chan op
	quit         chan struct{}
	historyLimit int
}

type Option func(*Projector)

// WithHistoryLimit overrides the per-device command history bound.
func WithHistoryLimit(n int) Option {
	return func(p *Projector) {
		if n > 0 {
			p.historyLimit = n
		}
	}
}

func NewProjector(opts ...Option) *Projector {
	p := &Projector{
		ops:          make(chan op, 128),
		quit:         make(chan struct{}),
		historyLimit: defaultHistoryLimit,
	}
	for _, o := range opts {
		o(p)
	}
	go p.loop()
	return p
}

func (p *Projector) loop() {
	state := make(map[string]*DeviceState)
	for {
		select {
		case <-p.quit:
			return
		case fn := <-p.ops:
			fn(state)
		}
	}
}

func (p *Projector) Close() { close(p.quit) }

// do runs fn on the owner goroutine and waits for it.
func (p *Projector) do(fn op) {
	done := make(chan struct{})
	select {
	case p.ops <- func(m map[string]*DeviceState) {
		fn(m)
		close(done)
	}:
		<-done
	case <-p.quit:
	}
}

// Seed replaces the whole map with a bulk-fetched baseline. Used at
// startup and as the resynchronization fallback after missed events.
func (p *Projector) Seed(list []DeviceState) {
	p.do(func(m map[string]*DeviceState) {
		for id := range m {
			delete(m, id)
		}
		for i := range list {
			d := cloneState(&list[i])
			m[d.ID] = d
		}
	})
}

// Apply folds one event into the snapshot map. Events referencing a
// device id that is not present are a no-op: the stream carries no
// sequence numbers, so reordering around a disconnect must be tolerated.
func (p *Projector) Apply(e events.Event) {
	p.do(func(m map[string]*DeviceState) {
		applyEvent(m, e, p.historyLimit)
	})
}

// Wire subscribes the projector to every device-scoped event kind.
func (p *Projector) Wire(b *bus.Bus) []*bus.Subscription {
	kinds := []events.Kind{
		events.KindDeviceConnected,
		events.KindDeviceDisconnected,
		events.KindDeviceUpdated,
		events.KindBatteryUpdated,
		events.KindVolumeUpdated,
		events.KindCommandExecuted,
		events.KindInstalledAppsReceived,
		events.KindDeviceNameChanged,
		events.KindGameStarted,
		events.KindGameStopped,
		events.KindOperationProgress,
	}
	subs := make([]*bus.Subscription, 0, len(kinds))
	for _, k := range kinds {
		subs = append(subs, b.Subscribe(k, p.Apply))
	}
	return subs
}

// Snapshot returns deep copies of every device state, ordered by id.
func (p *Projector) Snapshot() []DeviceState {
	var out []DeviceState
	p.do(func(m map[string]*DeviceState) {
		out = make([]DeviceState, 0, len(m))
		for _, d := range m {
			out = append(out, *cloneState(d))
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a deep copy of one device state.
func (p *Projector) Get(id string) (DeviceState, bool) {
	var (
		out DeviceState
		ok  bool
	)
	p.do(func(m map[string]*DeviceState) {
		if d, found := m[id]; found {
			out = *cloneState(d)
			ok = true
		}
	})
	return out, ok
}

func applyEvent(m map[string]*DeviceState, e events.Event, historyLimit int) {
	switch ev := e.(type) {
	case *events.DeviceConnected:
		m[ev.Device.ID] = &DeviceState{DeviceInfo: ev.Device}

	case *events.DeviceDisconnected:
		delete(m, ev.DeviceID)

	case *events.DeviceUpdated:
		// Authoritative snapshot replacement, not a field merge.
		if _, ok := m[ev.Device.ID]; !ok {
			return
		}
		m[ev.Device.ID] = &DeviceState{DeviceInfo: ev.Device}

	case *events.BatteryUpdated:
		if d, ok := m[ev.DeviceID]; ok {
			b := ev.Battery
			d.Battery = &b
		}

	case *events.VolumeUpdated:
		if d, ok := m[ev.DeviceID]; ok {
			v := ev.Volume
			d.Volume = &v
		}

	case *events.CommandExecuted:
		if d, ok := m[ev.DeviceID]; ok {
			d.History = append(d.History, ev.Result)
			if len(d.History) > historyLimit {
				d.History = d.History[len(d.History)-historyLimit:]
			}
		}

	case *events.InstalledAppsReceived:
		if d, ok := m[ev.DeviceID]; ok {
			d.InstalledApps = append([]events.AppInfo(nil), ev.Apps...)
		}

	case *events.DeviceNameChanged:
		// Name only; empty stays empty, model fallback is a render concern.
		for _, d := range m {
			if d.Serial == ev.Serial {
				d.CustomName = ev.Name
			}
		}

	case *events.GameStarted:
		if d, ok := m[ev.DeviceID]; ok {
			d.CurrentApp = ev.PackageName
		}

	case *events.GameStopped:
		if d, ok := m[ev.DeviceID]; ok && d.CurrentApp == ev.PackageName {
			d.CurrentApp = ""
		}

	case *events.OperationProgress:
		if d, ok := m[ev.DeviceID]; ok {
			// A terminal record stays visible until the next started tick
			// for this device supersedes it.
			if d.Progress != nil && d.Progress.Stage.Terminal() && ev.Progress.Stage != events.StageStarted {
				return
			}
			pr := ev.Progress
			d.Progress = &pr
		}
	}
}

func cloneState(d *DeviceState) *DeviceState {
	out := *d
	if d.Battery != nil {
		b := *d.Battery
		out.Battery = &b
	}
	if d.Volume != nil {
		v := *d.Volume
		out.Volume = &v
	}
	if d.Progress != nil {
		pr := *d.Progress
		out.Progress = &pr
	}
	out.InstalledApps = append([]events.AppInfo(nil), d.InstalledApps...)
	out.History = append([]events.CommandResult(nil), d.History...)
	return &out
}
