package core

import (
	"errors"
	"testing"
)

func boolPtr(b bool) *bool       { return &b }
func floatPtr(f float64) *float64 { return &f }

func TestNormalizeFailClosedAuthDefaults(t *testing.T) {
	raw := &RawMessage{
		FromAddress: "alice@example.com",
		ToAddress:   "bob@corp.com",
		Subject:     "hello",
	}

	sig, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.SPFPass || sig.DKIMPass || sig.DMARCPass {
		t.Errorf("missing auth results must default to fail, got spf=%v dkim=%v dmarc=%v",
			sig.SPFPass, sig.DKIMPass, sig.DMARCPass)
	}
	if sig.MLScore != 0 {
		t.Errorf("missing ML score should default to 0, got %v", sig.MLScore)
	}
	if sig.FromDisplay != "" {
		t.Errorf("missing display name should be empty, got %q", sig.FromDisplay)
	}
}

func TestNormalizeMissingAddresses(t *testing.T) {
	tests := []struct {
		name string
		raw  *RawMessage
	}{
		{"nil message", nil},
		{"missing from", &RawMessage{ToAddress: "bob@corp.com"}},
		{"missing to", &RawMessage{FromAddress: "alice@example.com"}},
		{"blank from", &RawMessage{FromAddress: "   ", ToAddress: "bob@corp.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			var sigErr *SignalError
			if !errors.As(err, &sigErr) {
				t.Errorf("expected SignalError, got %v", err)
			}
		})
	}
}

func TestNormalizeSignals(t *testing.T) {
	raw := &RawMessage{
		MessageID:   "<msg1@example.com>",
		FromAddress: "Alice@Example.COM",
		FromDisplay: "Alice",
		ToAddress:   "bob@corp.com",
		Subject:     "report",
		BodyText:    "see https://example.com/a and http://example.org/b?x=1 now",
		BodyHTML:    "<p>hi</p>",
		SPFPass:     boolPtr(true),
		DKIMPass:    boolPtr(false),
		DMARCPass:   boolPtr(true),
		MLScore:     floatPtr(1.7),
		AttachmentNames: []string{"invoice.pdf", "notes.txt"},
	}

	sig, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.SenderDomain != "example.com" {
		t.Errorf("sender domain = %q, want example.com", sig.SenderDomain)
	}
	if sig.URLCount != 2 {
		t.Errorf("url count = %d, want 2 (urls %v)", sig.URLCount, sig.URLs)
	}
	if sig.AttachmentCount != 2 {
		t.Errorf("attachment count = %d, want 2", sig.AttachmentCount)
	}
	if !sig.SPFPass || sig.DKIMPass || !sig.DMARCPass {
		t.Errorf("auth booleans not carried through")
	}
	if sig.MLScore != 1 {
		t.Errorf("ml score should clamp to 1, got %v", sig.MLScore)
	}
	if !sig.HasTextBody || !sig.HasHTMLBody {
		t.Errorf("body presence flags wrong: text=%v html=%v", sig.HasTextBody, sig.HasHTMLBody)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	raw := &RawMessage{
		FromAddress: "alice@example.com",
		ToAddress:   "bob@corp.com",
		BodyText:    "visit https://example.com",
		MLScore:     floatPtr(0.42),
	}

	first, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.MLScore != second.MLScore || first.URLCount != second.URLCount ||
		first.SenderDomain != second.SenderDomain {
		t.Errorf("normalization is not deterministic: %+v vs %+v", first, second)
	}
}
