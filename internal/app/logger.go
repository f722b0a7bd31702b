package app

import (
	"strings"

	"github.com/campusbridge/onboard/pkg/logger"
)

// ConfigureLogging initialises the global logger from the server settings,
// defaulting to info. Development environments get the console encoder.
func ConfigureLogging(server ServerConfig) error {
	level := strings.TrimSpace(server.LogLevel)
	if level == "" {
		level = "info"
	}
	return logger.Init(level, logger.Options{
		Development: server.IsDevelopment(),
		Service:     "onboard",
	})
}
