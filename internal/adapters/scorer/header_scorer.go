package scorer

import (
	"context"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/kestrelsec/mailgate/internal/core"
	"go.uber.org/zap"
)

// HeaderScorer reads the anomaly score from a message header stamped by an
// upstream ML stage. It is fully deterministic, which makes it the default
// provider: two evaluations of the same message always see the same score.
type HeaderScorer struct {
	headerName string
	logger     *zap.Logger
}

// NewHeaderScorer creates a scorer that reads the named header.
func NewHeaderScorer(headerName string, logger *zap.Logger) *HeaderScorer {
	return &HeaderScorer{headerName: headerName, logger: logger}
}

// Score parses the configured header as a float in [0,1]. A missing or
// unparsable header yields a zero score rather than an error; the upstream
// stage simply hasn't scored this message.
func (s *HeaderScorer) Score(ctx context.Context, raw *core.RawMessage) (*core.AnomalyScore, error) {
	value := s.headerValue(raw)
	if value == "" {
		return &core.AnomalyScore{Score: 0, Rationale: "no anomaly score header present", Provider: "header"}, nil
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		s.logger.Warn("Unparsable anomaly score header",
			zap.String("header", s.headerName),
			zap.String("value", value),
			zap.Error(err))
		return &core.AnomalyScore{Score: 0, Rationale: "unparsable anomaly score header", Provider: "header"}, nil
	}

	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	return &core.AnomalyScore{Score: score, Rationale: "score from " + s.headerName + " header", Provider: "header"}, nil
}

func (s *HeaderScorer) headerValue(raw *core.RawMessage) string {
	if raw.Headers == nil {
		return ""
	}
	want := textproto.CanonicalMIMEHeaderKey(s.headerName)
	for name, values := range raw.Headers {
		if textproto.CanonicalMIMEHeaderKey(name) == want && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}
