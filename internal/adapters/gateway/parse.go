package gateway

import (
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/kestrelsec/mailgate/internal/core"
)

// ParseMessage reads an RFC 5322 message and assembles the descriptor the
// triage pipeline consumes. Used by the CLI and anywhere a message arrives
// outside an SMTP session.
func ParseMessage(r io.Reader) (*core.RawMessage, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, err
	}

	content, err := extractContent(msg)
	if err != nil {
		return nil, err
	}

	raw := &core.RawMessage{
		MessageID:       strings.Trim(msg.Header.Get("Message-Id"), "<>"),
		Subject:         decodeHeader(msg.Header.Get("Subject")),
		BodyText:        content.Text,
		BodyHTML:        content.HTML,
		ReceivedAt:      time.Now().UTC(),
		AttachmentNames: content.AttachmentNames,
		Headers:         msg.Header,
	}

	if addr, err := mail.ParseAddress(msg.Header.Get("From")); err == nil {
		raw.FromAddress = addr.Address
		raw.FromDisplay = addr.Name
	} else {
		raw.FromAddress = msg.Header.Get("From")
	}
	if addrs, err := msg.Header.AddressList("To"); err == nil && len(addrs) > 0 {
		raw.ToAddress = addrs[0].Address
	} else {
		raw.ToAddress = msg.Header.Get("To")
	}

	auth := parseAuthResults(msg.Header)
	raw.SPFPass = auth.SPFPass
	raw.DKIMPass = auth.DKIMPass
	raw.DMARCPass = auth.DMARCPass

	return raw, nil
}
