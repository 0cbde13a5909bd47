package quotes

import "testing"

func TestFinalizedCopySwapsPlaceholders(t *testing.T) {
	quote := finalizedCopy(Quote{
		Title:        DraftPrefix + " Kitchen renovation",
		Terms:        PlaceholderTerms,
		PaymentTerms: PlaceholderPaymentTerms,
		Validity:     PlaceholderValidity,
	})

	if quote.Title != "Kitchen renovation" {
		t.Fatalf("title = %q, want draft marker stripped", quote.Title)
	}
	if quote.Terms != DefaultTerms {
		t.Fatalf("terms = %q, want default copy", quote.Terms)
	}
	if quote.PaymentTerms != DefaultPaymentTerms {
		t.Fatalf("payment terms = %q, want default copy", quote.PaymentTerms)
	}
	if quote.Validity != DefaultValidity {
		t.Fatalf("validity = %q, want default copy", quote.Validity)
	}
}

func TestFinalizedCopyKeepsEditedFields(t *testing.T) {
	quote := finalizedCopy(Quote{
		Title:        "Bathroom remodel",
		Terms:        "Custom terms agreed by phone",
		PaymentTerms: PlaceholderPaymentTerms,
		Validity:     "Valid until the end of the quarter",
	})

	if quote.Title != "Bathroom remodel" {
		t.Fatalf("title = %q, must stay untouched without the marker", quote.Title)
	}
	if quote.Terms != "Custom terms agreed by phone" {
		t.Fatalf("terms = %q, edited copy must be kept", quote.Terms)
	}
	if quote.PaymentTerms != DefaultPaymentTerms {
		t.Fatalf("payment terms = %q, placeholder must still be swapped", quote.PaymentTerms)
	}
	if quote.Validity != "Valid until the end of the quarter" {
		t.Fatalf("validity = %q, edited copy must be kept", quote.Validity)
	}
}
