package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"arceus-fleet/agent/internal/auth"
	"arceus-fleet/agent/internal/command"
	"arceus-fleet/agent/internal/config"
	"arceus-fleet/agent/internal/connection"
	"arceus-fleet/agent/internal/device"
	"arceus-fleet/agent/internal/journal"
	"arceus-fleet/agent/internal/logger"
	"arceus-fleet/agent/internal/state"
)

func main() {
	var (
		cfgPath    = flag.String("config", "config/agent.yaml", "Path to configuration file")
		serial     = flag.String("serial", "", "Override headset serial")
		maxRetries = flag.Int("max-retries", 10, "Maximum retry attempts for backend connection")
		retryDelay = flag.Duration("retry-delay", 1*time.Second, "Base delay between retry attempts")
	)
	flag.Parse()

	cfg := config.Init(*cfgPath)
	if err := logger.Init(cfg.LogPath); err != nil {
		fmt.Println("cannot open log file:", err)
		return
	}

	sn := cfg.Serial
	if *serial != "" {
		sn = *serial
	}
	if sn == "" {
		// serial sinh ngẫu nhiên cho phiên mô phỏng
		sn = "SIM-" + uuid.NewString()[:8]
		logger.Warnf("No serial configured, using %s", sn)
	}
	state.SetSerial(sn)

	j, err := journal.Open(cfg.DBPath)
	if err != nil {
		logger.Error("Cannot open SQLite journal:", err)
		return
	}

	creds, ok := auth.LoadCredentials(cfg.TokenPath)
	if !ok {
		creds, err = auth.Register(config.BackendHTTP(), sn, cfg.Model, cfg.Firmware)
		if err != nil {
			logger.Error("Enrollment failed:", err)
			return
		}
		if err := auth.SaveCredentials(cfg.TokenPath, creds); err != nil {
			logger.Warnf("Cannot persist credentials: %v", err)
		}
		logger.Infof("Enrolled as device %s", creds.DeviceID)
	}
	state.SetDeviceID(creds.DeviceID)
	state.SetToken(creds.Token)

	sim := device.NewSimulator()
	dispatcher := command.NewManager(j)
	mgr := connection.New(config.BackendWS(), cfg.Model, cfg.Firmware, sim, dispatcher)

	if err := mgr.Connect(*maxRetries, *retryDelay); err != nil {
		logger.Error("Cannot reach backend:", err)
		return
	}
	mgr.StartReceiveLoop()
	mgr.StartTelemetry(time.Duration(cfg.TelemetrySec) * time.Second)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Agent shutting down")
	mgr.Stop()
}
