package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// postgresDefaults are applied unless overridden through Options.
var postgresDefaults = map[string]string{
	"sslmode":          "disable",
	"application_name": "onboard",
	"connect_timeout":  "5",
}

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), gormConfig(cfg))
}

// buildPostgresDSN renders a postgres:// URL so credentials containing
// spaces or '@' survive intact. The result is parsed by pgx before use,
// which surfaces bad options at start-up rather than on first query.
func buildPostgresDSN(cfg Config) (string, error) {
	dsn := cfg.DSN
	if dsn == "" {
		if cfg.User == "" || cfg.Name == "" {
			return "", errors.New("postgres configuration requires user and database name")
		}

		host := cfg.Host
		if host == "" {
			host = "localhost"
		}
		port := cfg.Port
		if port == 0 {
			port = 5432
		}

		query := url.Values{}
		for key, value := range postgresDefaults {
			query.Set(key, value)
		}
		for key, value := range cfg.Options {
			query.Set(key, value)
		}

		u := url.URL{
			Scheme:   "postgres",
			User:     url.User(cfg.User),
			Host:     net.JoinHostPort(host, strconv.Itoa(port)),
			Path:     "/" + cfg.Name,
			RawQuery: query.Encode(),
		}
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		}
		dsn = u.String()
	}

	if _, err := pgx.ParseConfig(dsn); err != nil {
		return "", fmt.Errorf("invalid postgres dsn: %w", err)
	}
	return dsn, nil
}
