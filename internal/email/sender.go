// Package email delivers outbound mail for the portal: drip sequence steps,
// aging digests for admins, and finalized quote proposals.
package email

import "context"

// DigestLead is one stale lead row in an aging digest.
type DigestLead struct {
	Name      string
	Email     string
	AgingDays int
	LeadURL   string
}

// DigestGroup collects the stale leads of one pipeline stage.
type DigestGroup struct {
	Stage string
	Leads []DigestLead
}

// AgingDigest is the rendered payload of one admin's aging alert email.
type AgingDigest struct {
	TotalLeads int
	Groups     []DigestGroup
}

// Sender abstracts outbound email delivery.
type Sender interface {
	SendDripEmail(ctx context.Context, toEmail, leadName, subject, templateName string) error
	SendAgingDigestEmail(ctx context.Context, toEmail, adminName string, digest AgingDigest) error
	SendQuoteEmail(ctx context.Context, toEmail, leadName, quoteNumber, quoteURL string) error
}

// NoopSender discards all mail. Used in development when no SMTP server is
// configured.
type NoopSender struct{}

func (NoopSender) SendDripEmail(ctx context.Context, toEmail, leadName, subject, templateName string) error {
	return nil
}

func (NoopSender) SendAgingDigestEmail(ctx context.Context, toEmail, adminName string, digest AgingDigest) error {
	return nil
}

func (NoopSender) SendQuoteEmail(ctx context.Context, toEmail, leadName, quoteNumber, quoteURL string) error {
	return nil
}

var _ Sender = NoopSender{}
