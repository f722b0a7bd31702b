package services

import (
	"fmt"
	"html"
	"time"

	"github.com/campusbridge/onboard/pkg/mail"
)

func verificationMessage(appName, to, name, code string, ttl time.Duration) mail.Message {
	minutes := int(ttl.Minutes())
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}

	text := fmt.Sprintf("%s,\n\nYour %s verification code is %s.\nIt expires in %d minutes.\n\nIf you did not sign up, you can ignore this message.\n",
		greeting, appName, code, minutes)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>%s email verification</h2>
    <p>%s,</p>
    <p>Your verification code is:</p>
    <div style="font-size: 28px; font-weight: bold; letter-spacing: 4px;">%s</div>
    <p>The code expires in %d minutes.</p>
    <p style="color: #888;">If you did not sign up, you can ignore this message.</p>
  </div>
</body>
</html>`, html.EscapeString(appName), html.EscapeString(greeting), code, minutes)

	return mail.Message{
		To:       []string{to},
		Subject:  fmt.Sprintf("Your %s verification code", appName),
		Body:     text,
		HTMLBody: htmlBody,
	}
}

func passwordResetMessage(appName, to, link string, ttl time.Duration) mail.Message {
	minutes := int(ttl.Minutes())
	text := fmt.Sprintf("We received a request to reset your %s password.\n\nOpen the link below within %d minutes to choose a new one:\n%s\n\nIf you did not ask for this, you can ignore this message.\n",
		appName, minutes, link)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Reset your %s password</h2>
    <p>Open the link below within %d minutes to choose a new password.</p>
    <p><a href="%s">Reset password</a></p>
    <p style="color: #888;">If you did not ask for this, you can ignore this message.</p>
  </div>
</body>
</html>`, html.EscapeString(appName), minutes, html.EscapeString(link))

	return mail.Message{
		To:       []string{to},
		Subject:  fmt.Sprintf("Reset your %s password", appName),
		Body:     text,
		HTMLBody: htmlBody,
	}
}
