package app

import (
	"strings"

	"github.com/campusbridge/onboard/internal/database"
)

// ConnectionConfig converts DatabaseConfig into database.Open parameters for the
// selected driver.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	cfg := database.Config{
		Driver:   strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:     c.Path,
		DSN:      c.DSN,
		LogLevel: c.LogLevel,
	}

	var host DBAuthConfig
	switch cfg.Driver {
	case "postgres", "postgresql":
		host = c.Postgres
		if host.SSLMode != "" {
			cfg.Options = map[string]string{"sslmode": host.SSLMode}
		}
	case "mysql", "mariadb":
		host = c.MySQL
	default:
		return cfg
	}

	cfg.Host = host.Host
	cfg.Port = host.Port
	cfg.Name = host.Database
	cfg.User = host.Username
	cfg.Password = host.Password
	return cfg
}
