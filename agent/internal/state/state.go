package state

import "sync/atomic"

type appState struct {
	Token    atomic.Value // string
	DeviceID atomic.Value // string
	Serial   atomic.Value // string
}

var s appState

func SetToken(t string) { s.Token.Store(t) }
func GetToken() string  { return loadString(&s.Token) }

func SetDeviceID(id string) { s.DeviceID.Store(id) }
func GetDeviceID() string   { return loadString(&s.DeviceID) }

func SetSerial(sn string) { s.Serial.Store(sn) }
func GetSerial() string   { return loadString(&s.Serial) }

func loadString(v *atomic.Value) string {
	if x := v.Load(); x != nil {
		if str, ok := x.(string); ok {
			return str
		}
	}
	return ""
}
