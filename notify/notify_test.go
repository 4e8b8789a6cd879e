package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	netmail "net/mail"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type capturedMail struct {
	ctx context.Context
	msg *mail.Msg
}

func capture(c *capturedMail) DeliverFunc {
	return func(ctx context.Context, msg *mail.Msg) error {
		*c = capturedMail{ctx: ctx, msg: msg}
		return nil
	}
}

func neverDeliver(t *testing.T) DeliverFunc {
	return func(context.Context, *mail.Msg) error {
		t.Fatal("should not send")
		return nil
	}
}

type ctxKey struct{}

func TestSMTPNotifier_ComposesAttachment(t *testing.T) {
	// GIVEN: a configured notifier
	var got capturedMail
	n := &SMTPNotifier{
		Addr:     "smtp.example.com:587",
		From:     "recon@example.com",
		Username: "user",
		Password: "secret",
		Deliver:  capture(&got),
		Now:      func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) },
	}
	content := bytes.Repeat([]byte("xlsx"), 100)
	ctx := context.WithValue(context.Background(), ctxKey{}, "scheduler")

	// WHEN: sending a message with an attachment
	sent, err := n.Send(ctx, Message{
		To:      []string{"ops@example.com"},
		Subject: "Reconciliation Attestations Complete (2026-02-01 to 2026-03-01)",
		Text:    "All employees have completed their attestation.",
		Attachments: []Attachment{{
			Filename:    "Attestations_2026-02-01_2026-03-01.xlsx",
			ContentType: XLSXContentType,
			Content:     content,
		}},
	})

	// THEN: it is delivered with the caller's context
	require.NoError(t, err)
	assert.True(t, sent)
	require.NotNil(t, got.msg)
	assert.Equal(t, "scheduler", got.ctx.Value(ctxKey{}))

	// AND: the MIME structure carries the text and the attachment
	var raw bytes.Buffer
	_, err = got.msg.WriteTo(&raw)
	require.NoError(t, err)
	m, err := netmail.ReadMessage(&raw)
	require.NoError(t, err)
	assert.Contains(t, m.Header.Get("Subject"), "Reconciliation Attestations Complete")
	assert.Contains(t, m.Header.Get("To"), "ops@example.com")
	assert.Contains(t, m.Header.Get("From"), "recon@example.com")
	assert.NotEmpty(t, m.Header.Get("Message-ID"))
	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(m.Body, params["boundary"])
	textPart, err := mr.NextPart()
	require.NoError(t, err)
	text, err := io.ReadAll(textPart)
	require.NoError(t, err)
	assert.Contains(t, string(text), "All employees have completed their attestation.")

	filePart, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "Attestations_2026-02-01_2026-03-01.xlsx", filePart.FileName())
	body, err := io.ReadAll(filePart)
	require.NoError(t, err)
	// multipart.Reader does not decode base64 parts.
	assert.Equal(t, content, decodeBase64(t, body))
}

func TestSMTPNotifier_RejectsHeaderInjection(t *testing.T) {
	n := &SMTPNotifier{
		Addr:    "smtp.example.com:25",
		From:    "recon@example.com\r\nBcc: attacker@example.com",
		Deliver: neverDeliver(t),
	}

	sent, err := n.Send(context.Background(), Message{To: []string{"ops@example.com"}, Subject: "done"})

	assert.Error(t, err)
	assert.False(t, sent)
}

func TestSMTPNotifier_Unconfigured(t *testing.T) {
	n := &SMTPNotifier{Deliver: neverDeliver(t)}
	sent, err := n.Send(context.Background(), Message{To: []string{"a@example.com"}})
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestSMTPNotifier_CanceledContext(t *testing.T) {
	n := &SMTPNotifier{Addr: "smtp.example.com:25", From: "recon@example.com", Deliver: neverDeliver(t)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sent, err := n.Send(ctx, Message{To: []string{"a@example.com"}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, sent)
}

func TestSMTPNotifier_Failure(t *testing.T) {
	n := &SMTPNotifier{
		Addr: "smtp.example.com:25",
		From: "recon@example.com",
		Deliver: func(context.Context, *mail.Msg) error {
			return errors.New("connection refused")
		},
	}
	sent, err := n.Send(context.Background(), Message{To: []string{"a@example.com"}})
	assert.Error(t, err)
	assert.False(t, sent)

	_, err = n.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, errNoRecipients)
}

func TestSMTPNotifier_BadAddr(t *testing.T) {
	n := &SMTPNotifier{Addr: "smtp.example.com", From: "recon@example.com"}

	sent, err := n.Send(context.Background(), Message{To: []string{"a@example.com"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp addr")
	assert.False(t, sent)
}

func TestLogNotifier_NeverSends(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: zerolog.New(&buf)}

	sent, err := n.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "done"})

	require.NoError(t, err)
	assert.False(t, sent)
	assert.Contains(t, buf.String(), "done")
}

func decodeBase64(t *testing.T, raw []byte) []byte {
	t.Helper()
	clean := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
	out, err := base64.StdEncoding.DecodeString(clean)
	require.NoError(t, err)
	return out
}
