package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"warden/internal/security/models"
)

// DefaultSubjectPrefix is the root of the per-severity alert subjects, e.g.
// warden.alerts.critical.
const DefaultSubjectPrefix = "warden.alerts"

type publisher interface {
	Publish(subject string, data []byte) error
}

// flusher is implemented by *nats.Conn; it turns a buffered publish into a
// confirmed round trip.
type flusher interface {
	FlushWithContext(ctx context.Context) error
}

// alertMessage is the published wire shape.
type alertMessage struct {
	Severity string    `json:"severity"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	EventID  string    `json:"event_id,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

// NATSChannel publishes each alert on <prefix>.<severity> so subscribers can
// pick the severities they page on.
type NATSChannel struct {
	conn   publisher
	prefix string
	now    func() time.Time
}

func NewNATSChannel(conn publisher, prefix string) (*NATSChannel, error) {
	if conn == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSChannel{conn: conn, prefix: strings.TrimSuffix(prefix, "."), now: time.Now}, nil
}

// SubjectFor returns the subject alerts of the given severity go to.
func (c *NATSChannel) SubjectFor(l models.Level) string {
	return c.prefix + "." + strings.ToLower(l.String())
}

func (c *NATSChannel) Notify(ctx context.Context, alert models.Alert) error {
	if err := ctx.Err(); err != nil {
		return classify("nats channel", err)
	}
	data, err := json.Marshal(alertMessage{
		Severity: alert.Severity.String(),
		Subject:  alert.Subject,
		Body:     alert.Body,
		EventID:  alert.EventID,
		SentAt:   c.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := c.conn.Publish(c.SubjectFor(alert.Severity), data); err != nil {
		return classify("nats channel", err)
	}
	if f, ok := c.conn.(flusher); ok {
		if err := f.FlushWithContext(ctx); err != nil {
			return classify("nats channel", err)
		}
	}
	return nil
}

// ConnectNATS dials url and keeps reconnecting for the life of the process.
func ConnectNATS(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrlRedacted())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

// NATSHealth reports an error unless the connection is established.
func NATSHealth(nc *nats.Conn) func(context.Context) error {
	return func(context.Context) error {
		if status := nc.Status(); status != nats.CONNECTED {
			return fmt.Errorf("nats connection %s", status)
		}
		return nil
	}
}
