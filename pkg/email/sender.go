package email

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/memcrypt/console/pkg/observability"
)

// ErrNoRecipient is returned for a message without a recipient
var ErrNoRecipient = errors.New("email has no recipient")

// Sender renders messages and hands them to a transport
type Sender struct {
	store     *TemplateStore
	transport Transport
	from      string
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewSender creates a sender that sends from the given address
func NewSender(store *TemplateStore, transport Transport, from string, logger *observability.Logger, metrics *observability.Metrics) *Sender {
	if logger == nil {
		logger = observability.NewLogger(observability.ErrorLevel, io.Discard)
	}
	return &Sender{
		store:     store,
		transport: transport,
		from:      from,
		logger:    logger.WithField("component", "email"),
		metrics:   metrics,
	}
}

// Send renders msg and delivers it synchronously
func (s *Sender) Send(ctx context.Context, msg Message) error {
	logger := s.logger.WithFields(map[string]interface{}{
		"template": msg.Template,
		"to":       msg.To,
	})

	env, err := s.Prepare(msg)
	if err != nil {
		s.count(msg.Template, "invalid")
		logger.WithError(err).Error("Failed to render email")
		return err
	}

	if err := s.transport.Send(ctx, env); err != nil {
		s.count(msg.Template, "failed")
		logger.WithError(err).Error("Failed to send email")
		return err
	}

	s.count(msg.Template, "sent")
	logger.Info("Email sent successfully")
	return nil
}

// Prepare renders msg into an envelope. An empty subject falls back to the
// template's default subject.
func (s *Sender) Prepare(msg Message) (Envelope, error) {
	if msg.To == "" {
		return Envelope{}, fmt.Errorf("%w: template %s", ErrNoRecipient, msg.Template)
	}

	body, err := s.store.Render(msg.Template, msg.Data)
	if err != nil {
		return Envelope{}, err
	}

	subject := msg.Subject
	if subject == "" {
		subject = s.store.Subject(msg.Template, msg.Data)
	}

	return Envelope{
		From:    s.from,
		To:      msg.To,
		Subject: subject,
		HTML:    body,
	}, nil
}

func (s *Sender) count(template, status string) {
	if s.metrics != nil {
		s.metrics.EmailsTotal.WithLabelValues(template, status).Inc()
	}
}
