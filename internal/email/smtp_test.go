package email

import (
	"testing"
	"time"
)

func TestNewSMTPSenderTimeout(t *testing.T) {
	sender := NewSMTPSender("smtp.example.com", 587, "user", "pass", "crm@example.com", "CRM", 45*time.Second)
	if sender.timeout != 45*time.Second {
		t.Fatalf("timeout = %v, want configured 45s", sender.timeout)
	}

	sender = NewSMTPSender("smtp.example.com", 587, "user", "pass", "crm@example.com", "CRM", 0)
	if sender.timeout != defaultSendTimeout {
		t.Fatalf("timeout = %v, want default %v", sender.timeout, defaultSendTimeout)
	}
}
