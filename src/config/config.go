package config

import (
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// Dev defaults. Deployments override this file at build time.
var Config = GazetteConfig{
	Env:         Dev,
	Addr:        "localhost:9010",
	PrivateAddr: "localhost:9011",
	BaseUrl:     "http://localhost:9010",
	LogLevel:    zerolog.DebugLevel,
	Postgres: PostgresConfig{
		User:     "gazette",
		Password: "password",
		Hostname: "localhost",
		Port:     5432,
		DbName:   "gazette",
		LogLevel: tracelog.LogLevelWarn,
		MinConn:  2,
		MaxConn:  10,
	},
	Auth: AuthConfig{
		CookieDomain: "localhost",
		CookieSecure: false,
	},
	Notifications: NotificationsConfig{
		DispatchIntervalSeconds: 5,
		BatchSize:               50,
		MaxAttempts:             10,
	},
}
