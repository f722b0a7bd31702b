package app

import (
	netmail "net/mail"
	"strings"

	"github.com/campusbridge/onboard/pkg/mail"
)

// SMTPSettings builds the mailer settings. A bare From address picks up
// the app name as display name, and a zero port follows UseTLS (465
// implicit TLS, otherwise 587 submission).
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	smtp := c.SMTP
	port := smtp.Port
	if port == 0 {
		port = 587
		if smtp.UseTLS {
			port = 465
		}
	}

	return mail.SMTPSettings{
		Enabled:  smtp.Enabled,
		Host:     strings.TrimSpace(smtp.Host),
		Port:     port,
		Username: smtp.Username,
		Password: smtp.Password,
		From:     c.sender(),
		UseTLS:   smtp.UseTLS,
		Timeout:  smtp.Timeout,
	}
}

func (c EmailConfig) sender() string {
	from := strings.TrimSpace(c.SMTP.From)
	addr, err := netmail.ParseAddress(from)
	if err != nil || addr.Name != "" || strings.TrimSpace(c.AppName) == "" {
		return from
	}
	addr.Name = strings.TrimSpace(c.AppName)
	return addr.String()
}

// ResetBaseURL is the frontend origin password reset links point at.
func (c EmailConfig) ResetBaseURL() string {
	return strings.TrimRight(strings.TrimSpace(c.FrontendURL), "/")
}
