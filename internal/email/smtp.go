package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// defaultSendTimeout caps one SMTP conversation when no timeout is
// configured.
const defaultSendTimeout = 15 * time.Second

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	timeout   time.Duration
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
// A non-positive timeout falls back to the default.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string, timeout time.Duration) *SMTPSender {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
		timeout:   timeout,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(s.timeout),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// SendDripEmail renders and sends one drip sequence step. The template name
// comes from the sequence policy and must exist under templates/.
func (s *SMTPSender) SendDripEmail(ctx context.Context, toEmail, leadName, subject, templateName string) error {
	content, err := renderEmailTemplate(templateName, dripEmailData{
		baseEmailData: baseEmailData{
			Title:   subject,
			Heading: subject,
		},
		LeadName: leadName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

// SendAgingDigestEmail sends one admin their digest of stale leads, grouped
// by pipeline stage.
func (s *SMTPSender) SendAgingDigestEmail(ctx context.Context, toEmail, adminName string, digest AgingDigest) error {
	subject := fmt.Sprintf(subjectAgingDigestFmt, digest.TotalLeads)
	content, err := renderEmailTemplate("aging_digest.html", agingDigestEmailData{
		baseEmailData: baseEmailData{
			Title:   "Leads need attention",
			Heading: "Leads need attention",
		},
		AdminName:  adminName,
		TotalLeads: digest.TotalLeads,
		Groups:     digest.Groups,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

// SendQuoteEmail notifies a lead that their finalized quote is ready.
func (s *SMTPSender) SendQuoteEmail(ctx context.Context, toEmail, leadName, quoteNumber, quoteURL string) error {
	subject := fmt.Sprintf(subjectQuoteFmt, quoteNumber)
	content, err := renderEmailTemplate("quote_sent.html", quoteEmailData{
		baseEmailData: baseEmailData{
			Title:    "Your proposal is ready",
			Heading:  "Your proposal is ready",
			CTALabel: "View proposal",
			CTAURL:   quoteURL,
		},
		LeadName:    leadName,
		QuoteNumber: quoteNumber,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

var _ Sender = (*SMTPSender)(nil)
