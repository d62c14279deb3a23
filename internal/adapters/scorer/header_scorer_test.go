package scorer

import (
	"context"
	"testing"

	"github.com/kestrelsec/mailgate/internal/core"
	"go.uber.org/zap"
)

func TestHeaderScorer(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string][]string
		want    float64
	}{
		{
			name:    "valid score",
			headers: map[string][]string{"X-Anomaly-Score": {"0.83"}},
			want:    0.83,
		},
		{
			name:    "case insensitive header name",
			headers: map[string][]string{"x-anomaly-score": {"0.4"}},
			want:    0.4,
		},
		{
			name:    "whitespace tolerated",
			headers: map[string][]string{"X-Anomaly-Score": {"  0.25 "}},
			want:    0.25,
		},
		{
			name:    "clamped above one",
			headers: map[string][]string{"X-Anomaly-Score": {"3.5"}},
			want:    1,
		},
		{
			name:    "clamped below zero",
			headers: map[string][]string{"X-Anomaly-Score": {"-0.2"}},
			want:    0,
		},
		{
			name:    "missing header scores zero",
			headers: map[string][]string{"Subject": {"hello"}},
			want:    0,
		},
		{
			name:    "unparsable value scores zero",
			headers: map[string][]string{"X-Anomaly-Score": {"high"}},
			want:    0,
		},
		{
			name: "nil headers",
			want: 0,
		},
	}

	s := NewHeaderScorer("X-Anomaly-Score", zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Score(context.Background(), &core.RawMessage{Headers: tt.headers})
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if got.Score != tt.want {
				t.Errorf("score = %v, want %v", got.Score, tt.want)
			}
			if got.Provider != "header" {
				t.Errorf("provider = %q", got.Provider)
			}
		})
	}
}

func TestHeaderScorerIsDeterministic(t *testing.T) {
	s := NewHeaderScorer("X-Anomaly-Score", zap.NewNop())
	raw := &core.RawMessage{Headers: map[string][]string{"X-Anomaly-Score": {"0.61"}}}

	first, err := s.Score(context.Background(), raw)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := s.Score(context.Background(), raw)
		if err != nil {
			t.Fatalf("Score: %v", err)
		}
		if again.Score != first.Score {
			t.Fatalf("score changed across evaluations: %v vs %v", again.Score, first.Score)
		}
	}
}
