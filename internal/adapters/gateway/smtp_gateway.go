package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/kestrelsec/mailgate/internal/config"
	"github.com/kestrelsec/mailgate/internal/core"
	"go.uber.org/zap"
)

// SMTPGateway receives messages from the upstream MTA as a content filter,
// runs them through the triage pipeline, stamps verdict headers and relays
// the message onward. When enforcement is enabled, blocked messages are
// rejected at the SMTP level instead of relayed.
type SMTPGateway struct {
	service        *core.TriageService
	logger         *zap.Logger
	listenAddr     string
	enforce        bool
	dispositionHdr string
	scoreHdr       string
	reasonHdr      string
	relayAddr      string
	relayPort      int
	relayEnabled   bool
	tenantID       string
	server         *smtp.Server
}

// NewSMTPGateway creates a new SMTP ingestion gateway
func NewSMTPGateway(service *core.TriageService, logger *zap.Logger, cfg config.GatewayConfig) *SMTPGateway {
	return &SMTPGateway{
		service:        service,
		logger:         logger,
		listenAddr:     cfg.ListenAddress,
		enforce:        cfg.Enforce,
		dispositionHdr: cfg.DispositionHeader,
		scoreHdr:       cfg.ScoreHeader,
		reasonHdr:      cfg.ReasonHeader,
		relayAddr:      cfg.RelayAddress,
		relayPort:      cfg.RelayPort,
		relayEnabled:   cfg.RelayEnabled,
		tenantID:       cfg.DefaultTenant,
	}
}

// Start starts the SMTP server
func (g *SMTPGateway) Start() error {
	g.server = smtp.NewServer(&smtpBackend{gateway: g})

	g.server.Addr = g.listenAddr
	g.server.Domain = "localhost"
	g.server.ReadTimeout = 30 * time.Second
	g.server.WriteTimeout = 30 * time.Second
	g.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	g.server.MaxRecipients = 50
	g.server.AllowInsecureAuth = true

	g.logger.Info("SMTP gateway starting", zap.String("address", g.listenAddr))

	go func() {
		if err := g.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				g.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP server
func (g *SMTPGateway) Stop() error {
	if g.server != nil {
		return g.server.Close()
	}
	return nil
}

// ProcessMessage evaluates a message directly, bypassing SMTP. Used for
// API-driven test evaluations.
func (g *SMTPGateway) ProcessMessage(ctx context.Context, raw *core.RawMessage) (*core.EvaluationResult, error) {
	result, _, err := g.service.Evaluate(ctx, g.tenantID, raw)
	if result != nil {
		return result, nil
	}
	return nil, err
}

// relayMessage sends the stamped message to the downstream MTA.
func (g *SMTPGateway) relayMessage(sender string, recipients []string, data []byte) error {
	relayAddr := fmt.Sprintf("%s:%d", g.relayAddr, g.relayPort)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", relayAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			g.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
		} else {
			recipientOK = true
		}
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		g.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	gateway *SMTPGateway
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	sourceIP := ""
	if addr := c.Conn().RemoteAddr(); addr != nil {
		if host, _, err := net.SplitHostPort(addr.String()); err == nil {
			sourceIP = host
		}
	}
	return &smtpSession{
		gateway:    b.gateway,
		sourceIP:   sourceIP,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	gateway    *SMTPGateway
	sourceIP   string
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// AuthPlain handles PLAIN authentication (not needed for a content filter)
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data receives the message data, runs the triage pipeline and relays or
// rejects based on the verdict.
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.gateway.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.gateway.logger.Error("Failed to parse message", zap.Error(err))
		return err
	}

	raw, err := s.buildRawMessage(msg, int64(len(rawData)))
	if err != nil {
		s.gateway.logger.Error("Failed to extract message content", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, _, evalErr := s.gateway.service.Evaluate(ctx, s.gateway.tenantID, raw)
	if result == nil {
		// Policy misconfiguration. The verdict cannot be trusted either
		// way, so hold the message at the SMTP level.
		s.gateway.logger.Error("Evaluation failed",
			zap.Error(evalErr),
			zap.String("sender", raw.FromAddress))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Message held: evaluation unavailable",
		}
	}

	if result.Disposition == core.DispositionBlocked && s.gateway.enforce {
		s.gateway.logger.Info("Rejecting blocked message",
			zap.String("from", raw.FromAddress),
			zap.String("message_id", raw.MessageID),
			zap.Float64("score", result.RiskScore))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Message blocked by policy (score: %.2f)", result.RiskScore),
		}
	}

	stamped := s.stampHeaders(msg, rawData, result)

	if s.gateway.relayEnabled {
		if err := s.gateway.relayMessage(s.sender, s.recipients, stamped); err != nil {
			s.gateway.logger.Error("Failed to relay message",
				zap.Error(err),
				zap.String("sender", raw.FromAddress))
			return err
		}
	} else {
		s.gateway.logger.Warn("Relay disabled, message verdict recorded but not forwarded")
	}

	s.gateway.logger.Info("Processed message",
		zap.String("from", raw.FromAddress),
		zap.String("message_id", raw.MessageID),
		zap.String("disposition", string(result.Disposition)),
		zap.Float64("score", result.RiskScore))

	return nil
}

// buildRawMessage assembles the message descriptor the triage pipeline
// consumes from the parsed SMTP payload.
func (s *smtpSession) buildRawMessage(msg *mail.Message, size int64) (*core.RawMessage, error) {
	content, err := extractContent(msg)
	if err != nil {
		return nil, err
	}

	raw := &core.RawMessage{
		MessageID:       strings.Trim(msg.Header.Get("Message-Id"), "<>"),
		FromAddress:     s.sender,
		Subject:         decodeHeader(msg.Header.Get("Subject")),
		BodyText:        content.Text,
		BodyHTML:        content.HTML,
		SourceIP:        s.sourceIP,
		Size:            size,
		ReceivedAt:      time.Now().UTC(),
		AttachmentNames: content.AttachmentNames,
		Headers:         msg.Header,
	}

	if len(s.recipients) > 0 {
		raw.ToAddress = s.recipients[0]
	}
	if raw.FromAddress == "" {
		raw.FromAddress = msg.Header.Get("From")
	}
	if addr, err := mail.ParseAddress(msg.Header.Get("From")); err == nil {
		raw.FromDisplay = addr.Name
		if raw.FromAddress == "" {
			raw.FromAddress = addr.Address
		}
	}

	auth := parseAuthResults(msg.Header)
	raw.SPFPass = auth.SPFPass
	raw.DKIMPass = auth.DKIMPass
	raw.DMARCPass = auth.DMARCPass

	return raw, nil
}

// stampHeaders prepends the verdict headers and reassembles the message,
// preserving the original MIME body byte for byte.
func (s *smtpSession) stampHeaders(msg *mail.Message, rawData []byte, result *core.EvaluationResult) []byte {
	var stamped bytes.Buffer

	fmt.Fprintf(&stamped, "%s: %s\r\n", s.gateway.dispositionHdr, result.Disposition)
	fmt.Fprintf(&stamped, "%s: %.4f\r\n", s.gateway.scoreHdr, result.RiskScore)
	if result.QuarantineReason != "" {
		fmt.Fprintf(&stamped, "%s: %s\r\n", s.gateway.reasonHdr, result.QuarantineReason)
	}

	for key, values := range msg.Header {
		for _, value := range values {
			fmt.Fprintf(&stamped, "%s: %s\r\n", key, value)
		}
	}
	fmt.Fprintf(&stamped, "\r\n")

	bodyStart := bytes.Index(rawData, []byte("\r\n\r\n"))
	if bodyStart >= 0 {
		stamped.Write(rawData[bodyStart+4:])
		return stamped.Bytes()
	}
	bodyStart = bytes.Index(rawData, []byte("\n\n"))
	if bodyStart >= 0 {
		stamped.Write(rawData[bodyStart+2:])
		return stamped.Bytes()
	}
	if bodyBytes, err := io.ReadAll(msg.Body); err == nil {
		stamped.Write(bodyBytes)
	}
	return stamped.Bytes()
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
