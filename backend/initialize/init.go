package initialize

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"arceus-fleet/backend/app/apk"
	"arceus-fleet/backend/app/bus"
	"arceus-fleet/backend/app/commands"
	"arceus-fleet/backend/app/controllers"
	"arceus-fleet/backend/app/db"
	"arceus-fleet/backend/app/events"
	"arceus-fleet/backend/app/fleet"
	jwtutil "arceus-fleet/backend/app/jwt"
	"arceus-fleet/backend/app/middleware"
	"arceus-fleet/backend/app/models"
	"arceus-fleet/backend/app/notify"
	"arceus-fleet/backend/app/presence"
	"arceus-fleet/backend/app/repo"
	"arceus-fleet/backend/app/services"
	"arceus-fleet/backend/app/socket"
	"arceus-fleet/backend/app/updater"
	"arceus-fleet/backend/config"
	"arceus-fleet/backend/global"
	"arceus-fleet/backend/router"
)

type App struct {
	Cfg       *config.Config
	DB        *gorm.DB
	Router    http.Handler
	Bus       *bus.Bus
	Projector *fleet.Projector
	Hub       *socket.Hub
	Feed      *socket.FeedHub
	DeviceWS  *socket.DeviceHandler
	Commands  *commands.Client
	Updates   *updater.Service
	Center    *notify.Center
	Users     *services.UserService
	DeviceSvc *services.DeviceService
}

func Build(configPath string) (*App, error) {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	global.Config = cfg

	// Connect DB
	gdb, err := db.Connect(db.Config{Host: cfg.DB.Host, Port: cfg.DB.Port, User: cfg.DB.User, Password: cfg.DB.Pass, DBName: cfg.DB.Name})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	global.Mdb = gdb

	// Redis (presence)
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	global.Rdb = rdb

	// Migrate
	if err := gdb.AutoMigrate(&models.User{}, &models.Device{}, &models.FleetCommand{}, &models.GameVersion{}, &models.FirmwareVersion{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// Repos + services
	userRepo := repo.NewUserRepository(gdb)
	deviceRepo := repo.NewDeviceRepository(gdb)
	cmdRepo := repo.NewFleetCommandRepository(gdb)
	versionRepo := repo.NewVersionRepository(gdb)
	userSvc := services.NewUserService(userRepo)
	versionSvc := services.NewVersionService(versionRepo)
	deviceSvc := services.NewDeviceService(deviceRepo, versionRepo)
	if err := userSvc.EnsureAdmin("admin", "admin123"); err != nil {
		// non-critical
	}

	// Event plumbing
	b := bus.New()
	projector := fleet.NewProjector(fleet.WithHistoryLimit(cfg.Fleet.HistoryLimit))
	projector.Wire(b)

	center := notify.NewCenter(nil)
	wireNotifications(b, center)

	tracker := presence.NewTracker(presence.RedisStore{C: rdb}, 0)
	hub := socket.NewHub(tracker)
	client := commands.NewClient(hub, cmdRepo, global.Logger)

	// Self-update manifest
	updates := updater.NewService(cfg.Updates.ManifestPath, b)
	if err := updates.Load(); err != nil {
		global.Logger.Warn().Err(err).Msg("no update manifest published yet")
	}
	if err := updates.Watch(); err != nil {
		global.Logger.Warn().Err(err).Msg("manifest watch unavailable")
	}

	// APK store
	store, err := apk.NewStore(cfg.APK.StoragePath, cfg.APK.MaxSizeMB)
	if err != nil {
		return nil, err
	}

	// Controllers
	signer := &jwtutil.Signer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, ExpMin: cfg.JWT.ExpMin}
	mw := &middleware.Auth{Signer: signer}
	deviceWS := socket.NewDeviceHandler(hub, b, deviceSvc, client, signer)
	feed := socket.NewFeedHub(b, projector, signer)
	go feed.Run()

	ctrls := router.Controllers{
		HTTP:     controllers.NewHTTPController(),
		Auth:     controllers.NewAuthController(userSvc, signer),
		Admin:    controllers.NewAdminController(userSvc),
		Devices:  controllers.NewDeviceController(deviceSvc, projector, client, b, signer),
		Commands: controllers.NewCommandController(client, hub, cmdRepo),
		Versions: controllers.NewVersionController(versionSvc),
		APKs:     controllers.NewAPKController(store),
		Updates:  controllers.NewUpdateController(updates),
		Notify:   controllers.NewNotifyController(center),
	}

	h := router.New(ctrls, deviceWS, feed, mw)
	h = middleware.Logging(h)

	return &App{
		Cfg:       cfg,
		DB:        gdb,
		Router:    h,
		Bus:       b,
		Projector: projector,
		Hub:       hub,
		Feed:      feed,
		DeviceWS:  deviceWS,
		Commands:  client,
		Updates:   updates,
		Center:    center,
		Users:     userSvc,
		DeviceSvc: deviceSvc,
	}, nil
}

// wireNotifications folds failure-ish events into the operator log.
func wireNotifications(b *bus.Bus, center *notify.Center) {
	b.Subscribe(events.KindError, func(e events.Event) {
		if ev, ok := e.(*events.ErrorEvent); ok {
			center.Record(notify.KindError, ev.Message, "")
		}
	})
	b.Subscribe(events.KindInfo, func(e events.Event) {
		if ev, ok := e.(*events.InfoEvent); ok {
			center.Record(notify.KindInfo, ev.Message, "")
		}
	})
	b.Subscribe(events.KindCommandExecuted, func(e events.Event) {
		ev, ok := e.(*events.CommandExecuted)
		if !ok || ev.Result.Success {
			return
		}
		center.Record(notify.KindWarning, fmt.Sprintf("%s failed on %s", ev.Result.CommandType, ev.DeviceID), ev.Result.Message)
	})
}
