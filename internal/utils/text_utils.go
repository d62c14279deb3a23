package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TextProcessor prepares message bodies before they are sent to a remote
// anomaly scorer: oversized bodies are truncated on a UTF-8 boundary and
// invalid byte sequences are dropped.
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{logger: logger}
}

// PrepareBody truncates and sanitizes a message body in one operation.
func (tp *TextProcessor) PrepareBody(body string, maxSize int) string {
	return tp.SanitizeUTF8(tp.TruncateText(body, maxSize))
}

// TruncateText truncates text to maxSize bytes, backing up so the result
// stays valid UTF-8. A non-positive maxSize means no limit.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for len(truncated) > 0 && !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Message body truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)))

	return truncated + "\n[truncated]"
}

// SanitizeUTF8 drops invalid UTF-8 sequences from the string.
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	return strings.ToValidUTF8(text, "")
}
