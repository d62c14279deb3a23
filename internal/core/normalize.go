package core

import (
	"math"
	"regexp"
	"strings"
)

// urlPattern finds http/https URLs in message bodies. Compiled once; the
// normalizer itself allocates nothing shared between invocations.
var urlPattern = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)

// Normalize converts a raw message descriptor into the canonical signal
// record the rest of the pipeline consumes. It is deterministic and side
// effect free: identical input always yields identical output, so a failed
// pipeline run can simply be retried.
//
// Missing optional fields default to the empty value. Missing
// authentication results default to fail, never to pass: absent evidence
// of authentication is treated the same as failed authentication.
func Normalize(raw *RawMessage) (*MessageSignals, error) {
	if raw == nil {
		return nil, &SignalError{Field: "message", Reason: "raw message is nil"}
	}
	from := strings.TrimSpace(raw.FromAddress)
	if from == "" {
		return nil, &SignalError{Field: "from_address", Reason: "sender address is required"}
	}
	to := strings.TrimSpace(raw.ToAddress)
	if to == "" {
		return nil, &SignalError{Field: "to_address", Reason: "recipient address is required"}
	}

	urls := extractURLs(raw.BodyText)
	if len(urls) == 0 && raw.BodyHTML != "" {
		urls = extractURLs(raw.BodyHTML)
	}

	sig := &MessageSignals{
		MessageID:       raw.MessageID,
		FromAddress:     from,
		FromDisplay:     strings.TrimSpace(raw.FromDisplay),
		SenderDomain:    senderDomain(from),
		ToAddress:       to,
		Subject:         raw.Subject,
		BodyText:        raw.BodyText,
		HasTextBody:     raw.BodyText != "",
		HasHTMLBody:     raw.BodyHTML != "",
		SourceIP:        raw.SourceIP,
		Size:            raw.Size,
		ReceivedAt:      raw.ReceivedAt,
		AttachmentCount: len(raw.AttachmentNames),
		AttachmentNames: append([]string(nil), raw.AttachmentNames...),
		URLCount:        len(urls),
		URLs:            urls,
		SPFPass:         boolOrFail(raw.SPFPass),
		DKIMPass:        boolOrFail(raw.DKIMPass),
		DMARCPass:       boolOrFail(raw.DMARCPass),
	}
	if raw.MLScore != nil {
		sig.MLScore = clamp01(*raw.MLScore)
	}
	return sig, nil
}

// boolOrFail implements the fail-closed default for authentication results.
func boolOrFail(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}

func senderDomain(address string) string {
	if at := strings.LastIndex(address, "@"); at >= 0 && at < len(address)-1 {
		return strings.ToLower(address[at+1:])
	}
	return ""
}

func extractURLs(text string) []string {
	if text == "" {
		return nil
	}
	return urlPattern.FindAllString(text, -1)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
