package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/ikkim/coach-portal-backend/config"
	"github.com/ikkim/coach-portal-backend/pkg/logger"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier delivers rendered templates through an SMTP relay.
type SMTPNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	timeout  time.Duration
	sendMail sendMailFunc
}

func NewSMTPNotifier(cfg *config.SMTPConfig, timeout time.Duration) *SMTPNotifier {
	from := cfg.FromEmail
	if from == "" {
		from = cfg.Username
	}
	return &SMTPNotifier{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     from,
		timeout:  timeout,
		sendMail: smtp.SendMail,
	}
}

func (n *SMTPNotifier) Send(ctx context.Context, recipient, templateName string, payload map[string]string) error {
	subject, body, err := Render(templateName, payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	message := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		n.from, recipient, subject, body,
	))

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}
	addr := net.JoinHostPort(n.host, strconv.Itoa(n.port))

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	// net/smtp has no context support, so the send runs aside and is
	// abandoned once ctx is done.
	done := make(chan error, 1)
	go func() {
		done <- n.sendMail(addr, auth, n.from, []string{recipient}, message)
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("Failed to send email", err, map[string]interface{}{
				"recipient": recipient,
				"template":  templateName,
			})
			return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		}
	case <-ctx.Done():
		logger.Error("Timed out sending email", ctx.Err(), map[string]interface{}{
			"recipient": recipient,
			"template":  templateName,
		})
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, ctx.Err())
	}

	logger.Info("Email sent", map[string]interface{}{
		"recipient": recipient,
		"template":  templateName,
	})
	return nil
}
