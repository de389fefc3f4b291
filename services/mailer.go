package services

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// EmailResult surfaces delivery outcome in the response payload; a failed
// send never fails the itinerary request.
type EmailResult struct {
	Sent  bool   `json:"enviado"`
	To    string `json:"para,omitempty"`
	Error string `json:"erro,omitempty"`
}

// Mailer delivers the assembled itinerary over SMTP.
type Mailer struct {
	host      string
	port      string
	user      string
	pass      string
	from      string
	ioTimeout time.Duration
	logger    *zap.Logger
}

func NewMailer(host, port, user, pass, from string, logger *zap.Logger) *Mailer {
	return &Mailer{
		host: host, port: port, user: user, pass: pass, from: from,
		ioTimeout: 30 * time.Second,
		logger:    logger,
	}
}

func (m *Mailer) Configured() bool {
	return m.host != "" && m.from != ""
}

// Send emails the HTML itinerary. The connection is deadline-bounded so a
// dead or stalling SMTP host cannot block the request.
func (m *Mailer) Send(to, subject, htmlBody string) EmailResult {
	if !m.Configured() {
		return EmailResult{Sent: false, To: to, Error: "envio de e-mail não configurado"}
	}

	var headers strings.Builder
	fmt.Fprintf(&headers, "From: %s\r\n", m.from)
	fmt.Fprintf(&headers, "To: %s\r\n", to)
	fmt.Fprintf(&headers, "Subject: %s\r\n", subject)
	headers.WriteString("MIME-Version: 1.0\r\n")
	headers.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	headers.WriteString("\r\n")

	msg := []byte(headers.String() + htmlBody)

	if err := m.send(to, msg); err != nil {
		m.logger.Warn("itinerary email failed", zap.String("to", to), zap.Error(err))
		return EmailResult{Sent: false, To: to, Error: err.Error()}
	}
	return EmailResult{Sent: true, To: to}
}

func (m *Mailer) send(to string, msg []byte) error {
	addr := net.JoinHostPort(m.host, m.port)

	conn, err := net.DialTimeout("tcp", addr, 15*time.Second)
	if err != nil {
		return fmt.Errorf("smtp dial failed: %w", err)
	}
	// Deadline covers the whole SMTP conversation, not just the dial.
	conn.SetDeadline(time.Now().Add(m.ioTimeout))

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return err
		}
	}

	if m.user != "" {
		auth := smtp.PlainAuth("", m.user, m.pass, m.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(m.from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
