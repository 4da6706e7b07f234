// Package mailer sends plain-text and HTML notification email over SMTP,
// using the standard library net/smtp directly rather than a third-party
// client — the same choice the teacher repo's own mailer makes.
package mailer

import (
	"bytes"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// Config names the SMTP relay to use. Username/Password empty means the
// relay accepts unauthenticated delivery (the common case for a local
// postfix/sendmail relay).
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
}

// Mailer sends mail through a single configured relay.
type Mailer struct {
	cfg Config
}

func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send delivers a plain-text message with an optional HTML alternative
// part to every recipient in to.
func Send(m *Mailer, from string, to []string, subject, textBody, htmlBody string) error {
	if len(to) == 0 {
		return nil
	}
	msg := compose(from, to, subject, textBody, htmlBody)
	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)

	if m.cfg.Username == "" {
		return smtp.SendMail(addr, nil, from, to, msg)
	}
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	return smtp.SendMail(addr, auth, from, to, msg)
}

const boundary = "==jobdag-notification-boundary"

func compose(from string, to []string, subject, textBody, htmlBody string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	if htmlBody == "" {
		buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		buf.WriteString(textBody)
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	buf.WriteString(textBody)
	buf.WriteString("\r\n")
	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	buf.WriteString(htmlBody)
	buf.WriteString("\r\n")
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes()
}
