package email

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/memcrypt/console/pkg/observability"
)

// Transport delivers a rendered email
type Transport interface {
	Send(ctx context.Context, env Envelope) error
}

// SMTPConfig configures the SMTP transport
type SMTPConfig struct {
	Host string
	Port int
	// SSL selects implicit TLS; otherwise STARTTLS is used when offered
	SSL      bool
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPTransport sends mail through an SMTP relay. A connection is dialed per
// message.
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport creates an SMTP transport
func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPTransport{cfg: cfg}, nil
}

func (t *SMTPTransport) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(t.cfg.Port),
		mail.WithTimeout(t.cfg.Timeout),
	}
	if t.cfg.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if t.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.cfg.Username),
			mail.WithPassword(t.cfg.Password),
		)
	}
	return mail.NewClient(t.cfg.Host, opts...)
}

// Send delivers env over SMTP
func (t *SMTPTransport) Send(ctx context.Context, env Envelope) error {
	msg := mail.NewMsg()
	if err := msg.From(env.From); err != nil {
		return fmt.Errorf("invalid from address %q: %w", env.From, err)
	}
	if err := msg.To(env.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", env.To, err)
	}
	msg.Subject(env.Subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextHTML, env.HTML)

	client, err := t.client()
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", env.To, err)
	}
	return nil
}

// LogTransport writes emails to the log instead of sending them. Used for
// dry runs.
type LogTransport struct {
	Logger *observability.Logger
}

// Send logs env
func (t LogTransport) Send(ctx context.Context, env Envelope) error {
	t.Logger.WithFields(map[string]interface{}{
		"from":    env.From,
		"to":      env.To,
		"subject": env.Subject,
		"bytes":   len(env.HTML),
	}).Info("Email not sent (dry run)")
	return nil
}
