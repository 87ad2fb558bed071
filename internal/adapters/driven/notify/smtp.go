package notify

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
	"github.com/custodia-labs/policywatch/internal/logger"
)

// Ensure SMTPNotifier implements the interface.
var _ driven.Notifier = (*SMTPNotifier)(nil)

// base64LineLength is the RFC 2045 maximum encoded line length.
const base64LineLength = 76

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier delivers notifications as email.
type SMTPNotifier struct {
	settings domain.NotifySettings
	send     sendFunc
	now      func() time.Time
}

// NewSMTPNotifier creates an email notifier. smtp.SendMail upgrades the
// connection with STARTTLS when the server offers it.
func NewSMTPNotifier(settings domain.NotifySettings) *SMTPNotifier {
	if settings.SMTPPort == 0 {
		settings.SMTPPort = domain.DefaultSMTPPort
	}
	return &SMTPNotifier{
		settings: settings,
		send:     smtp.SendMail,
		now:      time.Now,
	}
}

// Notify sends the notification to its recipients, or to the configured
// recipients when it names none.
func (n *SMTPNotifier) Notify(ctx context.Context, note domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	to := note.Recipients
	if len(to) == 0 {
		to = n.settings.Recipients
	}
	if len(to) == 0 {
		logger.Debug("notify: no recipients for %q", note.Subject)
		return nil
	}

	msg, err := buildMessage(n.settings.Sender, to, note, n.now())
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	var auth smtp.Auth
	if n.settings.Password != "" {
		auth = smtp.PlainAuth("", n.settings.Sender, n.settings.Password, n.settings.SMTPHost)
	}

	addr := net.JoinHostPort(n.settings.SMTPHost, strconv.Itoa(n.settings.SMTPPort))
	if err := n.send(addr, auth, n.settings.Sender, to, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}

	logger.Debug("notify: sent %q to %d recipient(s)", note.Subject, len(to))
	return nil
}

// buildMessage renders a multipart/mixed message: a plain text body
// followed by one base64 part per attachment.
func buildMessage(from string, to []string, note domain.Notification, date time.Time) ([]byte, error) {
	boundary, err := newBoundary()
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", note.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	writeBase64(&b, []byte(note.Body))

	for _, a := range note.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&b, "Content-Disposition: %s\r\n\r\n",
			mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
		writeBase64(&b, a.Data)
	}

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.Bytes(), nil
}

func writeBase64(b *bytes.Buffer, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > base64LineLength {
		b.WriteString(encoded[:base64LineLength])
		b.WriteString("\r\n")
		encoded = encoded[base64LineLength:]
	}
	b.WriteString(encoded)
	b.WriteString("\r\n")
}

func newBoundary() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
