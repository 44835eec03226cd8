package main

import (
	"flag"
	"fmt"

	"arceus-fleet/backend/app/events"
	"arceus-fleet/backend/initialize"
	"arceus-fleet/backend/server"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to backend config file")
		host       = flag.String("host", "", "Override HTTP host")
		port       = flag.Int("port", 0, "Override HTTP port")
	)
	flag.Parse()

	app, err := initialize.Build(*configPath)
	if err != nil {
		fmt.Println("backend init failed:", err)
		return
	}

	h := app.Cfg.HTTP.Host
	p := app.Cfg.HTTP.Port
	if *host != "" {
		h = *host
	}
	if *port != 0 {
		p = *port
	}

	addr := fmt.Sprintf("%s:%d", h, p)
	if err := server.StartHTTPServer(h, p, app.Router); err != nil {
		fmt.Println("http server failed:", err)
		return
	}
	app.Bus.Publish(&events.ServerStarted{Addr: addr})
	app.Bus.Publish(&events.HTTPServerStarted{Addr: addr})

	select {}
}
