package config

import (
	"fmt"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

type Environment string

const (
	Live Environment = "live"
	Beta Environment = "beta"
	Dev  Environment = "dev"
)

type GazetteConfig struct {
	Env         Environment
	Addr        string
	PrivateAddr string // pprof and other internal-only routes
	BaseUrl     string
	LogLevel    zerolog.Level

	Postgres      PostgresConfig
	Auth          AuthConfig
	Notifications NotificationsConfig
}

type PostgresConfig struct {
	User     string
	Password string
	Hostname string
	Port     int
	DbName   string
	LogLevel tracelog.LogLevel
	MinConn  int32
	MaxConn  int32
}

func (info PostgresConfig) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s", info.User, info.Password, info.Hostname, info.Port, info.DbName)
}

type AuthConfig struct {
	CookieDomain string
	CookieSecure bool
}

type NotificationsConfig struct {
	// How often the dispatch job polls the outbox when it is empty.
	DispatchIntervalSeconds int
	// How many events one dispatch pass will claim.
	BatchSize int
	// Events that fail delivery this many times are abandoned.
	MaxAttempts int
}
