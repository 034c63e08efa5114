package email

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memcrypt/console/pkg/observability"
)

// recordingTransport captures envelopes instead of sending them
type recordingTransport struct {
	mu    sync.Mutex
	sent  []Envelope
	err   error
	block chan struct{}
}

func (t *recordingTransport) Send(ctx context.Context, env Envelope) error {
	if t.block != nil {
		select {
		case <-t.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, env)
	return nil
}

func (t *recordingTransport) envelopes() []Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Envelope(nil), t.sent...)
}

func newTestSender(t *testing.T, transport Transport) (*Sender, *observability.Metrics) {
	t.Helper()
	store, err := NewTemplateStore("", nil)
	require.NoError(t, err)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewSender(store, transport, "noreply@memcrypt.io", nil, metrics), metrics
}

func TestSender_Send(t *testing.T) {
	transport := &recordingTransport{}
	sender, metrics := newTestSender(t, transport)

	err := sender.Send(context.Background(), Message{
		To:       "admin@test.com",
		Subject:  "Your account has been approved",
		Template: TemplateUserApproved,
		Data:     map[string]string{"username": "testadmin", "firstName": "Test"},
	})
	require.NoError(t, err)

	sent := transport.envelopes()
	require.Len(t, sent, 1)
	assert.Equal(t, "noreply@memcrypt.io", sent[0].From)
	assert.Equal(t, "admin@test.com", sent[0].To)
	assert.Equal(t, "Your account has been approved", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "testadmin")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EmailsTotal.WithLabelValues(TemplateUserApproved, "sent")))
}

func TestSender_DefaultSubject(t *testing.T) {
	transport := &recordingTransport{}
	sender, _ := newTestSender(t, transport)

	env, err := sender.Prepare(Message{
		To:       "a@b.co",
		Template: TemplateUserVerification,
		Data:     map[string]string{"orgName": "Test Org"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Verify Your Email for Test Org", env.Subject)
}

func TestSender_Errors(t *testing.T) {
	t.Run("unknown template", func(t *testing.T) {
		transport := &recordingTransport{}
		sender, metrics := newTestSender(t, transport)

		err := sender.Send(context.Background(), Message{To: "a@b.co", Template: "missing"})
		assert.ErrorIs(t, err, ErrTemplateNotFound)
		assert.Empty(t, transport.envelopes())
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EmailsTotal.WithLabelValues("missing", "invalid")))
	})

	t.Run("no recipient", func(t *testing.T) {
		sender, _ := newTestSender(t, &recordingTransport{})

		err := sender.Send(context.Background(), Message{Template: TemplateUserApproved})
		assert.ErrorIs(t, err, ErrNoRecipient)
	})

	t.Run("transport failure", func(t *testing.T) {
		transport := &recordingTransport{err: errors.New("connection refused")}
		sender, metrics := newTestSender(t, transport)

		err := sender.Send(context.Background(), Message{To: "a@b.co", Template: TemplateUserRejected})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EmailsTotal.WithLabelValues(TemplateUserRejected, "failed")))
	})
}

func TestNewSMTPTransport(t *testing.T) {
	_, err := NewSMTPTransport(SMTPConfig{})
	assert.Error(t, err)

	transport, err := NewSMTPTransport(SMTPConfig{Host: "smtp.example.com"})
	require.NoError(t, err)
	assert.Equal(t, 587, transport.cfg.Port)

	_, err = transport.client()
	assert.NoError(t, err)
}

func TestSMTPTransport_InvalidAddress(t *testing.T) {
	transport, err := NewSMTPTransport(SMTPConfig{Host: "smtp.example.com"})
	require.NoError(t, err)

	err = transport.Send(context.Background(), Envelope{From: "not an address", To: "a@b.co"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid from address")
}
