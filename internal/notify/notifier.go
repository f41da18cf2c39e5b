package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/ikkim/coach-portal-backend/pkg/logger"
)

// ErrDeliveryFailed is returned when a message could not be handed off.
var ErrDeliveryFailed = errors.New("notification delivery failed")

// TemplatePasswordReset expects the payload keys "name" and "link".
const TemplatePasswordReset = "password_reset"

type Notifier interface {
	Send(ctx context.Context, recipient, templateName string, payload map[string]string) error
}

type mailTemplate struct {
	subject string
	body    *template.Template
}

var templates = map[string]mailTemplate{
	TemplatePasswordReset: {
		subject: "Reset your password",
		body: template.Must(template.New(TemplatePasswordReset).Parse(`<html>
<body style="font-family: Arial, sans-serif; padding: 20px; background-color: #f5f5f5;">
	<div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 40px; border-radius: 10px;">
		<h1 style="color: #333; margin-bottom: 20px;">Password reset</h1>
		<p style="color: #666; line-height: 1.6;">Hi {{if .name}}{{.name}}{{else}}there{{end}},</p>
		<p style="color: #666; line-height: 1.6; margin-bottom: 30px;">
			We received a request to reset your password. Use the link below to choose a new one.
		</p>
		<p style="text-align: center; margin-bottom: 30px;">
			<a href="{{.link}}" style="background-color: #111; color: white; padding: 14px 28px; border-radius: 6px; text-decoration: none;">Reset password</a>
		</p>
		<p style="color: #999; font-size: 14px;">* This link expires in one hour and can be used once.</p>
		<p style="color: #999; font-size: 14px;">* If you did not request this, you can ignore this email.</p>
	</div>
</body>
</html>
`)),
	},
}

// Render returns the subject and HTML body for a known template.
func Render(templateName string, payload map[string]string) (string, string, error) {
	tmpl, ok := templates[templateName]
	if !ok {
		return "", "", fmt.Errorf("unknown notification template %q", templateName)
	}
	var buf bytes.Buffer
	if err := tmpl.body.Execute(&buf, payload); err != nil {
		return "", "", fmt.Errorf("failed to render %s: %w", templateName, err)
	}
	return tmpl.subject, buf.String(), nil
}

// LogNotifier renders messages and logs their metadata instead of sending
// them. Payload values are never logged.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, recipient, templateName string, payload map[string]string) error {
	subject, _, err := Render(templateName, payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	logger.Info("[DEV MODE] Email not sent, SMTP is not configured", map[string]interface{}{
		"recipient": recipient,
		"template":  templateName,
		"subject":   subject,
	})
	return nil
}
