// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"sync"
	"time"
)

// DocumentRef identifies a document in outgoing messages
type DocumentRef struct {
	ID         uint
	Number     string
	Type       string
	ClientName string
	// URL is the public link relevant to the message (signing link or view link)
	URL string
}

// DocumentNotifier delivers workflow messages to signers and to the account owner
type DocumentNotifier interface {
	NotifySignatureRequest(ctx context.Context, signerEmail string, ref DocumentRef, message *string) error
	NotifySignatureReminder(ctx context.Context, signerEmail string, ref DocumentRef) error
	NotifyDocumentOpened(ctx context.Context, ref DocumentRef, viewedAt time.Time) error
	NotifySignatureResponded(ctx context.Context, ref DocumentRef, signerName, outcome string) error
}

// EmailProvider interface for email sending
type EmailProvider interface {
	SendEmail(ctx context.Context, email, subject, message string) error
}

// NotificationServiceImpl implements DocumentNotifier on top of an email provider
type NotificationServiceImpl struct {
	emailProvider EmailProvider
	ownerEmail    string
}

// NewNotificationService creates a new notification service.
// Owner notifications are skipped when ownerEmail is empty.
func NewNotificationService(emailProvider EmailProvider, ownerEmail string) DocumentNotifier {
	return &NotificationServiceImpl{
		emailProvider: emailProvider,
		ownerEmail:    strings.TrimSpace(ownerEmail),
	}
}

func (s *NotificationServiceImpl) NotifySignatureRequest(ctx context.Context, signerEmail string, ref DocumentRef, message *string) error {
	subject := fmt.Sprintf("Signature requested: %s %s", documentLabel(ref.Type), ref.Number)
	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\nYou are invited to review and sign %s %s", documentLabel(ref.Type), ref.Number)
	if ref.ClientName != "" {
		fmt.Fprintf(&b, " for %s", ref.ClientName)
	}
	b.WriteString(".\n")
	if message != nil && strings.TrimSpace(*message) != "" {
		fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(*message))
	}
	fmt.Fprintf(&b, "\nOpen the document: %s\n", ref.URL)
	return s.send(ctx, signerEmail, subject, b.String())
}

func (s *NotificationServiceImpl) NotifySignatureReminder(ctx context.Context, signerEmail string, ref DocumentRef) error {
	subject := fmt.Sprintf("Reminder: signature pending for %s %s", documentLabel(ref.Type), ref.Number)
	body := fmt.Sprintf("Hello,\n\nYour signature is still pending for %s %s.\n\nOpen the document: %s\n",
		documentLabel(ref.Type), ref.Number, ref.URL)
	return s.send(ctx, signerEmail, subject, body)
}

func (s *NotificationServiceImpl) NotifyDocumentOpened(ctx context.Context, ref DocumentRef, viewedAt time.Time) error {
	if s.ownerEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("%s opened: %s", documentLabel(ref.Type), ref.Number)
	body := fmt.Sprintf("%s %s was opened for the first time on %s.\nClient: %s\n",
		documentLabel(ref.Type), ref.Number, viewedAt.UTC().Format(time.RFC1123), ref.ClientName)
	return s.send(ctx, s.ownerEmail, subject, body)
}

func (s *NotificationServiceImpl) NotifySignatureResponded(ctx context.Context, ref DocumentRef, signerName, outcome string) error {
	if s.ownerEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("%s %s by %s", ref.Number, outcome, signerName)
	body := fmt.Sprintf("%s answered the signature request for %s %s: %s.\n", signerName, documentLabel(ref.Type), ref.Number, outcome)
	return s.send(ctx, s.ownerEmail, subject, body)
}

func (s *NotificationServiceImpl) send(ctx context.Context, email, subject, message string) error {
	if s.emailProvider == nil {
		return fmt.Errorf("email provider not configured")
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %s", email)
	}
	return s.emailProvider.SendEmail(ctx, email, subject, message)
}

func documentLabel(t string) string {
	switch t {
	case "quote":
		return "quote"
	case "invoice":
		return "invoice"
	case "credit_note":
		return "credit note"
	}
	return "document"
}

// SentEmail is a message captured by MockEmailProvider
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// MockEmailProvider logs messages instead of delivering them and keeps a copy
type MockEmailProvider struct {
	mu   sync.Mutex
	sent []SentEmail
	// Err, when set, is returned by every SendEmail call
	Err error
}

func NewMockEmailProvider() *MockEmailProvider {
	return &MockEmailProvider{}
}

func (p *MockEmailProvider) SendEmail(ctx context.Context, email, subject, message string) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	p.sent = append(p.sent, SentEmail{To: email, Subject: subject, Body: message})
	p.mu.Unlock()
	log.Printf("Email sent to %s [%s]", email, subject)
	return nil
}

// Sent returns a copy of every captured message
func (p *MockEmailProvider) Sent() []SentEmail {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SentEmail, len(p.sent))
	copy(out, p.sent)
	return out
}

type SMTPEmailProvider struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
}

func NewSMTPEmailProvider(host string, port int, username, password, fromEmail string) EmailProvider {
	return &SMTPEmailProvider{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
	}
}

func (p *SMTPEmailProvider) SendEmail(ctx context.Context, email, subject, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", p.fromEmail)
	fmt.Fprintf(&msg, "To: %s\r\n", email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(strings.ReplaceAll(message, "\n", "\r\n"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- smtp.SendMail(addr, auth, p.fromEmail, []string{email}, []byte(msg.String()))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to send email via SMTP to %s: %w", email, err)
		}
		log.Printf("Email sent via SMTP to %s [%s]", email, subject)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
