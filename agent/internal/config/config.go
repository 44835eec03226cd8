package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type AppConfig struct {
	BackendHost  string
	BackendPort  int
	Serial       string
	Model        string
	Firmware     string
	TokenPath    string
	LogPath      string
	DBPath       string
	TelemetrySec int
}

var cfg AppConfig

func Init(path string) AppConfig {
	defaultDir := filepath.Join(os.TempDir(), "arceus-agent")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// defaults
	v.SetDefault("agent.backend.host", "127.0.0.1")
	v.SetDefault("agent.backend.port", 9400)
	v.SetDefault("agent.model", "Quest 3")
	v.SetDefault("agent.firmware", "v62.0")
	v.SetDefault("agent.token_path", filepath.Join(defaultDir, "agent.token"))
	v.SetDefault("agent.db_path", filepath.Join(defaultDir, "agent.db"))
	v.SetDefault("agent.telemetry_sec", 30)
	_ = v.ReadInConfig()

	cfg = AppConfig{
		BackendHost:  v.GetString("agent.backend.host"),
		BackendPort:  v.GetInt("agent.backend.port"),
		Serial:       v.GetString("agent.serial"),
		Model:        v.GetString("agent.model"),
		Firmware:     v.GetString("agent.firmware"),
		TokenPath:    v.GetString("agent.token_path"),
		LogPath:      v.GetString("agent.log_path"),
		DBPath:       v.GetString("agent.db_path"),
		TelemetrySec: v.GetInt("agent.telemetry_sec"),
	}
	return cfg
}

func Get() AppConfig { return cfg }

func BackendHTTP() string {
	return fmt.Sprintf("http://%s:%d", cfg.BackendHost, cfg.BackendPort)
}

func BackendWS() string {
	return fmt.Sprintf("ws://%s:%d/ws/device", cfg.BackendHost, cfg.BackendPort)
}
