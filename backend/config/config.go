package config

import (
	"github.com/spf13/viper"
)

type HTTP struct {
	Host string
	Port int
}

type DB struct {
	Host string
	Port int
	User string
	Pass string
	Name string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Updates struct {
	ManifestPath string
}

type APK struct {
	StoragePath string
	MaxSizeMB   int64
}

type Fleet struct {
	HistoryLimit int
}

type Config struct {
	HTTP    HTTP
	DB      DB
	Redis   Redis
	Updates Updates
	APK     APK
	Fleet   Fleet
	JWT     struct {
		Secret string
		Issuer string
		ExpMin int
	}
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("backend.host", "127.0.0.1")
	v.SetDefault("backend.port", 9400)
	v.SetDefault("backend.db.host", "127.0.0.1")
	v.SetDefault("backend.db.port", 3306)
	v.SetDefault("backend.db.user", "root")
	v.SetDefault("backend.db.pass", "")
	v.SetDefault("backend.db.name", "arceus_fleet")
	v.SetDefault("backend.redis.addr", "127.0.0.1:6379")
	v.SetDefault("backend.redis.password", "")
	v.SetDefault("backend.redis.db", 0)
	v.SetDefault("backend.updates.manifest_path", "updates/latest.json")
	v.SetDefault("backend.apk.storage_path", "apks")
	v.SetDefault("backend.apk.max_size_mb", 512)
	v.SetDefault("backend.fleet.history_limit", 25)

	// defaults cover local dev, so a missing file is fine
	_ = v.ReadInConfig()

	cfg := &Config{
		HTTP: HTTP{Host: v.GetString("backend.host"), Port: v.GetInt("backend.port")},
		DB: DB{
			Host: v.GetString("backend.db.host"),
			Port: v.GetInt("backend.db.port"),
			User: v.GetString("backend.db.user"),
			Pass: v.GetString("backend.db.pass"),
			Name: v.GetString("backend.db.name"),
		},
		Redis: Redis{
			Addr:     v.GetString("backend.redis.addr"),
			Password: v.GetString("backend.redis.password"),
			DB:       v.GetInt("backend.redis.db"),
		},
		Updates: Updates{ManifestPath: v.GetString("backend.updates.manifest_path")},
		APK: APK{
			StoragePath: v.GetString("backend.apk.storage_path"),
			MaxSizeMB:   v.GetInt64("backend.apk.max_size_mb"),
		},
		Fleet: Fleet{HistoryLimit: v.GetInt("backend.fleet.history_limit")},
	}
	cfg.JWT.Secret = v.GetString("backend.jwt.secret")
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "dev-secret"
	}
	cfg.JWT.Issuer = v.GetString("backend.jwt.issuer")
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "arceus-fleet"
	}
	cfg.JWT.ExpMin = v.GetInt("backend.jwt.exp_min")
	if cfg.JWT.ExpMin <= 0 {
		cfg.JWT.ExpMin = 60
	}
	return cfg, nil
}
