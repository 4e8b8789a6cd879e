/*
Package notify delivers completion notifications.

NOTIFIERS:
  SMTPNotifier  mail with attachments through an SMTP relay (go-mail)
  LogNotifier   logs the message and reports it as not sent

A notifier reports sent=false without an error when it is not configured
to deliver anything; callers only record delivery when sent is true.
*/
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// XLSXContentType is the media type of xlsx attachments.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Attachment is a single file attached to a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a plain-text notification.
type Message struct {
	To          []string
	Subject     string
	Text        string
	Attachments []Attachment
}

// Notifier sends messages.
type Notifier interface {
	Send(ctx context.Context, msg Message) (sent bool, err error)
}

// =============================================================================
// LOG NOTIFIER
// =============================================================================

// LogNotifier logs instead of sending. It never reports a message as sent.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Send(_ context.Context, msg Message) (bool, error) {
	n.Logger.Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("mail not configured, notification not sent")
	return false, nil
}

// =============================================================================
// SMTP NOTIFIER
// =============================================================================

// DeliverFunc delivers a composed message.
type DeliverFunc func(ctx context.Context, msg *mail.Msg) error

// SMTPNotifier sends mail through an SMTP relay. TLS is used when the
// relay offers it.
type SMTPNotifier struct {
	Addr     string // host:port
	From     string
	Username string
	Password string

	// Deliver defaults to dialing Addr.
	Deliver DeliverFunc
	Now     func() time.Time
}

var errNoRecipients = errors.New("message has no recipients")

func (n *SMTPNotifier) Send(ctx context.Context, msg Message) (bool, error) {
	if n.Addr == "" || n.From == "" {
		return false, nil
	}
	if len(msg.To) == 0 {
		return false, errNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m, err := n.compose(msg)
	if err != nil {
		return false, fmt.Errorf("compose mail: %w", err)
	}
	deliver := n.Deliver
	if deliver == nil {
		deliver = n.dialAndSend
	}
	if err := deliver(ctx, m); err != nil {
		return false, fmt.Errorf("send mail: %w", err)
	}
	return true, nil
}

func (n *SMTPNotifier) compose(msg Message) (*mail.Msg, error) {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	m := mail.NewMsg()
	if err := m.From(n.From); err != nil {
		return nil, err
	}
	if err := m.To(msg.To...); err != nil {
		return nil, err
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(now())
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, msg.Text)

	for _, a := range msg.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		err := m.AttachReader(a.Filename, bytes.NewReader(a.Content),
			mail.WithFileContentType(mail.ContentType(contentType)))
		if err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}
	return m, nil
}

func (n *SMTPNotifier) dialAndSend(ctx context.Context, m *mail.Msg) error {
	host, portText, err := net.SplitHostPort(n.Addr)
	if err != nil {
		return fmt.Errorf("smtp addr %q: %w", n.Addr, err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		return fmt.Errorf("smtp port %q: %w", portText, err)
	}
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if n.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.Username),
			mail.WithPassword(n.Password),
		)
	}
	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, m)
}

var (
	_ Notifier = LogNotifier{}
	_ Notifier = (*SMTPNotifier)(nil)
)
