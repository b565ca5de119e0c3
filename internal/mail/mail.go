// Package mail delivers documents to clients by email.
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"time"

	"github.com/diewo77/go-facture/internal/config"
)

// Sender delivers one message with an optional PDF attachment.
type Sender interface {
	Send(ctx context.Context, to, subject, body string, attachment []byte, filename string) error
}

// NewSender picks the implementation from configuration: SMTP when a host is
// set, otherwise the file sender so development never emails real clients.
func NewSender(cfg config.MailConfig) Sender {
	if cfg.Host == "" {
		log.Println("SMTP host not configured, writing outbound mail to", cfg.LogPath)
		return &FileSender{Path: cfg.LogPath, From: cfg.From}
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host),
		from: cfg.From,
	}
}

// SMTPSender sends through net/smtp.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string, attachment []byte, filename string) error {
	msg := compose(s.from, to, subject, body, attachment, filename)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// FileSender appends composed messages to a local file instead of sending.
type FileSender struct {
	Path string
	From string
}

func (s *FileSender) Send(ctx context.Context, to, subject, body string, attachment []byte, filename string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create mail log dir: %w", err)
	}
	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open mail log: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- %s To: %s Subject: %s ---\n", time.Now().Format(time.RFC3339), to, subject)
	buf.Write(compose(s.From, to, subject, body, attachment, filename))
	buf.WriteString("\n--- end ---\n\n")
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write mail log: %w", err)
	}
	return nil
}

const attachmentBoundary = "go-facture-attachment"

// compose builds the full RFC 2045 message. With an attachment the message is
// multipart/mixed with the PDF base64-encoded; without, it is plain text.
func compose(from, to, subject, body string, attachment []byte, filename string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(attachment) == 0 {
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		buf.WriteString(body)
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", attachmentBoundary)

	fmt.Fprintf(&buf, "--%s\r\n", attachmentBoundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", attachmentBoundary)
	buf.WriteString("Content-Type: application/pdf\r\n")
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", filename)

	encoded := base64.StdEncoding.EncodeToString(attachment)
	// 76-character lines per RFC 2045
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	buf.WriteString("\r\n")
	fmt.Fprintf(&buf, "--%s--\r\n", attachmentBoundary)
	return buf.Bytes()
}
