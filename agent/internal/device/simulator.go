package device

import (
	"fmt"
	"sort"
	"sync"

	"arceus-fleet/backend/app/events"
)

// Simulator holds the local state a real headset would report: battery,
// volume, installed packages and the foreground app. All methods are
// safe for concurrent use.
type Simulator struct {
	mu         sync.Mutex
	battery    events.BatteryInfo
	volume     events.VolumeInfo
	currentApp string
	apps       map[string]events.AppInfo
}

func NewSimulator() *Simulator {
	s := &Simulator{
		battery: events.BatteryInfo{HeadsetLevel: 100, IsCharging: false},
		volume:  events.VolumeInfo{Level: 50, Max: 100},
		apps:    map[string]events.AppInfo{},
	}
	// vài app có sẵn để dashboard không trống
	s.apps["com.oculus.shellenv"] = events.AppInfo{PackageName: "com.oculus.shellenv", Label: "Shell"}
	s.apps["com.oculus.browser"] = events.AppInfo{PackageName: "com.oculus.browser", Label: "Browser"}
	return s
}

func (s *Simulator) Battery() events.BatteryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.battery
}

// Drain simulates battery usage; charging headsets gain instead.
func (s *Simulator) Drain() events.BatteryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.battery.IsCharging {
		if s.battery.HeadsetLevel < 100 {
			s.battery.HeadsetLevel++
		}
	} else if s.battery.HeadsetLevel > 0 {
		s.battery.HeadsetLevel--
	}
	if s.battery.HeadsetLevel <= 15 {
		s.battery.IsCharging = true
	}
	return s.battery
}

func (s *Simulator) Volume() events.VolumeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *Simulator) SetVolume(level int) events.VolumeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume.Level = level
	return s.volume
}

func (s *Simulator) CurrentApp() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentApp
}

func (s *Simulator) Launch(pkg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[pkg]; !ok {
		return fmt.Errorf("package %s not installed", pkg)
	}
	s.currentApp = pkg
	return nil
}

// StopForeground clears the foreground app and returns what was running.
func (s *Simulator) StopForeground() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg := s.currentApp
	s.currentApp = ""
	return pkg
}

func (s *Simulator) Install(app events.AppInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[app.PackageName] = app
}

func (s *Simulator) Uninstall(pkg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[pkg]; !ok {
		return fmt.Errorf("package %s not installed", pkg)
	}
	delete(s.apps, pkg)
	if s.currentApp == pkg {
		s.currentApp = ""
	}
	return nil
}

func (s *Simulator) InstalledApps() []events.AppInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.AppInfo, 0, len(s.apps))
	for _, a := range s.apps {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PackageName < out[j].PackageName })
	return out
}
