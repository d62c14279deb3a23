package gateway

import (
	"strings"
	"testing"
)

const simpleMessage = "Message-Id: <msg-1@corp.example>\r\n" +
	"From: \"Ada Example\" <ada@corp.example>\r\n" +
	"To: finance@corp.example\r\n" +
	"Subject: Quarterly report\r\n" +
	"Authentication-Results: mx.corp.example; spf=pass; dkim=pass; dmarc=pass\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Please find the report at https://reports.corp.example/q3\r\n"

const multipartMessage = "Message-Id: <msg-2@evil.test>\r\n" +
	"From: attacker@evil.test\r\n" +
	"To: victim@corp.example\r\n" +
	"Subject: =?UTF-8?Q?Urgent:_verify_your_account?=\r\n" +
	"Content-Type: multipart/mixed; boundary=frontier\r\n" +
	"\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Open the attachment immediately.\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/html\r\n" +
	"\r\n" +
	"<p>Open the attachment immediately.</p>\r\n" +
	"--frontier\r\n" +
	"Content-Type: application/octet-stream\r\n" +
	"Content-Disposition: attachment; filename=\"invoice.docm\"\r\n" +
	"\r\n" +
	"AAAA\r\n" +
	"--frontier--\r\n"

func TestParseMessageSimple(t *testing.T) {
	raw, err := ParseMessage(strings.NewReader(simpleMessage))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}

	if raw.MessageID != "msg-1@corp.example" {
		t.Errorf("MessageID = %q", raw.MessageID)
	}
	if raw.FromAddress != "ada@corp.example" {
		t.Errorf("FromAddress = %q", raw.FromAddress)
	}
	if raw.FromDisplay != "Ada Example" {
		t.Errorf("FromDisplay = %q", raw.FromDisplay)
	}
	if raw.ToAddress != "finance@corp.example" {
		t.Errorf("ToAddress = %q", raw.ToAddress)
	}
	if !strings.Contains(raw.BodyText, "https://reports.corp.example/q3") {
		t.Errorf("BodyText = %q, missing URL", raw.BodyText)
	}
	if raw.SPFPass == nil || !*raw.SPFPass {
		t.Error("SPF verdict not carried through")
	}
	if raw.DKIMPass == nil || !*raw.DKIMPass {
		t.Error("DKIM verdict not carried through")
	}
	if raw.DMARCPass == nil || !*raw.DMARCPass {
		t.Error("DMARC verdict not carried through")
	}
}

func TestParseMessageMultipart(t *testing.T) {
	raw, err := ParseMessage(strings.NewReader(multipartMessage))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}

	if raw.Subject != "Urgent: verify your account" {
		t.Errorf("Subject = %q, want decoded form", raw.Subject)
	}
	if !strings.Contains(raw.BodyText, "Open the attachment") {
		t.Errorf("BodyText = %q", raw.BodyText)
	}
	if !strings.Contains(raw.BodyHTML, "<p>") {
		t.Errorf("BodyHTML = %q", raw.BodyHTML)
	}
	if len(raw.AttachmentNames) != 1 || raw.AttachmentNames[0] != "invoice.docm" {
		t.Errorf("AttachmentNames = %v", raw.AttachmentNames)
	}
	// No auth headers on this message; verdicts must stay unreported so
	// the normalizer fails closed.
	if raw.SPFPass != nil || raw.DKIMPass != nil || raw.DMARCPass != nil {
		t.Error("auth verdicts reported without auth headers")
	}
}
