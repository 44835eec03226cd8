package router

import (
	"net/http"

	"arceus-fleet/backend/app/controllers"
	"arceus-fleet/backend/app/middleware"
	"arceus-fleet/backend/app/socket"
)

type Controllers struct {
	HTTP     *controllers.HTTPController
	Auth     *controllers.AuthController
	Admin    *controllers.AdminController
	Devices  *controllers.DeviceController
	Commands *controllers.CommandController
	Versions *controllers.VersionController
	APKs     *controllers.APKController
	Updates  *controllers.UpdateController
	Notify   *controllers.NotifyController
}

func New(c Controllers, deviceWS *socket.DeviceHandler, feed *socket.FeedHub, mw *middleware.Auth) http.Handler {
	mux := http.NewServeMux()

	// route-tagged handles so the access log carries the pattern
	operator := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.WithRoute(pattern, mw.RequireAuth(h)))
	}
	admin := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.WithRoute(pattern, mw.RequireAdmin(h)))
	}

	// public
	mux.HandleFunc("/ping", c.HTTP.Ping)
	mux.HandleFunc("/login", c.Auth.Login)
	mux.HandleFunc("/updates/manifest", c.Updates.Manifest)

	// device-facing
	mux.Handle("/ws/device", deviceWS)
	mux.HandleFunc("/devices/register", c.Devices.Register)
	mux.HandleFunc("/apk/download", c.APKs.Download)

	// operator
	mux.Handle("/ws/feed", feed)
	operator("/devices", c.Devices.List)
	operator("/devices/get", c.Devices.Get)
	operator("/devices/name", c.Devices.Rename)
	operator("/updates/status", c.Updates.Status)
	operator("/notifications", c.Notify.List)
	operator("/notifications/toggle", c.Notify.Toggle)
	operator("/notifications/clear", c.Notify.Clear)

	// admin only
	admin("/admin/users", c.Admin.CreateUser)
	admin("/admin/command", c.Commands.Post)
	admin("/admin/online", c.Commands.Online)
	admin("/admin/command/queue", c.Commands.Queue)
	admin("/admin/versions/games", c.Versions.Games)
	admin("/admin/versions/games/delete", c.Versions.DeleteGame)
	admin("/admin/versions/firmware", c.Versions.Firmware)
	admin("/admin/versions/firmware/delete", c.Versions.DeleteFirmware)
	admin("/apk/upload", c.APKs.Upload)
	admin("/apk/list", c.APKs.List)

	return mux
}
