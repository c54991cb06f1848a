package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edulearn-api/pkg/config"
)

const dialTimeout = 10 * time.Second

// SMTPNotifier sends mail through a plain SMTP relay. When no host is
// configured it runs in dev mode: messages are logged instead of sent and
// the receipt is flagged accordingly.
type SMTPNotifier struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// NewSMTPNotifier constructs a notifier from SMTP settings.
func NewSMTPNotifier(cfg config.SMTPConfig, logger *zap.Logger) *SMTPNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPNotifier{cfg: cfg, logger: logger}
}

// Send delivers a message, or logs it when running without a relay.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) (*Receipt, error) {
	messageID := uuid.NewString()

	if n.cfg.Host == "" {
		n.logger.Info("smtp relay not configured, logging message instead",
			zap.String("message_id", messageID),
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.String("body", msg.Body),
		)
		return &Receipt{MessageID: messageID, Dev: true}, nil
	}

	raw := buildMessage(n.cfg.From, msg)
	if err := n.send(ctx, msg.To, raw); err != nil {
		return nil, fmt.Errorf("smtp send: %w", err)
	}
	return &Receipt{MessageID: messageID}, nil
}

func (n *SMTPNotifier) send(ctx context.Context, to string, raw []byte) error {
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if n.cfg.StartTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
				return err
			}
		}
	}

	if n.cfg.User != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := client.Mail(n.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(raw); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMessage(from string, msg Message) []byte {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		from, msg.To, msg.Subject, time.Now().UTC().Format(time.RFC1123Z))
	return []byte(headers + msg.Body)
}
