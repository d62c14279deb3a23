package core

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// stubAlertRepo is a minimal in-memory AlertRepository for tests.
type stubAlertRepo struct {
	mu     sync.Mutex
	alerts map[string]*Alert
	order  []string
}

func newStubAlertRepo() *stubAlertRepo {
	return &stubAlertRepo{alerts: make(map[string]*Alert)}
}

func (r *stubAlertRepo) AppendAlert(_ context.Context, alert *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *alert
	r.alerts[alert.ID] = &cp
	r.order = append(r.order, alert.ID)
	return nil
}

func (r *stubAlertRepo) GetAlert(_ context.Context, id string) (*Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok {
		return nil, &ConfigurationError{Field: "alert_id", Reason: "not found"}
	}
	cp := *a
	return &cp, nil
}

func (r *stubAlertRepo) ListAlerts(_ context.Context, tenantID string, unackedOnly bool) ([]*Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Alert
	for _, id := range r.order {
		a := r.alerts[id]
		if a.TenantID != tenantID {
			continue
		}
		if unackedOnly && a.Acknowledged {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *stubAlertRepo) AcknowledgeAlert(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok {
		return false, &ConfigurationError{Field: "alert_id", Reason: "not found"}
	}
	if a.Acknowledged {
		return false, nil
	}
	a.Acknowledged = true
	return true, nil
}

func TestAlertEmitterSeverityMapping(t *testing.T) {
	var emitter AlertEmitter
	policy := testPolicy()
	policy.EnableRealTimeAlerts = true

	tests := []struct {
		name    string
		result  *EvaluationResult
		want    AlertSeverity
		emitted bool
	}{
		{
			name: "blocked with critical factor",
			result: &EvaluationResult{
				Disposition: DispositionBlocked,
				RiskFactors: []RiskFactor{{Type: RiskContentAnalysis, Severity: SeverityCritical, Score: 0.95}},
			},
			want: AlertCritical, emitted: true,
		},
		{
			name:   "blocked without critical factor",
			result: &EvaluationResult{Disposition: DispositionBlocked},
			want:   AlertHigh, emitted: true,
		},
		{
			name:   "quarantined",
			result: &EvaluationResult{Disposition: DispositionQuarantined},
			want:   AlertWarning, emitted: true,
		},
		{
			name: "suspicious with critical factor",
			result: &EvaluationResult{
				Disposition: DispositionSuspicious,
				RiskFactors: []RiskFactor{{Type: RiskDomainReputation, Severity: SeverityCritical, Score: 0.9}},
			},
			want: AlertInfo, emitted: true,
		},
		{
			name:    "allowed emits nothing",
			result:  &EvaluationResult{Disposition: DispositionAllowed},
			emitted: false,
		},
		{
			name:    "suspicious without critical factor emits nothing",
			result:  &EvaluationResult{Disposition: DispositionSuspicious},
			emitted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := emitter.Emit(tt.result, policy)
			if !tt.emitted {
				if alert != nil {
					t.Errorf("expected no alert, got %+v", alert)
				}
				return
			}
			if alert == nil {
				t.Fatalf("expected an alert")
			}
			if alert.Severity != tt.want {
				t.Errorf("severity = %s, want %s", alert.Severity, tt.want)
			}
			if alert.Category != CategoryDetection {
				t.Errorf("category = %s, want detection", alert.Category)
			}
		})
	}
}

func TestAlertEmitterDisabledByPolicy(t *testing.T) {
	var emitter AlertEmitter
	policy := testPolicy()
	policy.EnableRealTimeAlerts = false

	if alert := emitter.Emit(&EvaluationResult{Disposition: DispositionBlocked}, policy); alert != nil {
		t.Errorf("no alert should be emitted when real-time alerts are disabled")
	}
}

func TestAlertServiceAcknowledgeIdempotent(t *testing.T) {
	repo := newStubAlertRepo()
	svc := NewAlertService(repo, nil, zap.NewNop())
	ctx := context.Background()

	result := &EvaluationResult{TenantID: "t1", MessageID: "m1", Disposition: DispositionBlocked}
	alert, err := svc.Record(ctx, result, testPolicy())
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if alert == nil {
		t.Fatalf("expected an alert")
	}

	if err := svc.Acknowledge(ctx, alert.ID); err != nil {
		t.Fatalf("first acknowledge failed: %v", err)
	}
	if err := svc.Acknowledge(ctx, alert.ID); err != nil {
		t.Errorf("second acknowledge must be a no-op, got %v", err)
	}

	stored, err := repo.GetAlert(ctx, alert.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !stored.Acknowledged {
		t.Errorf("alert should be acknowledged")
	}

	unacked, err := svc.List(ctx, "t1", true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(unacked) != 0 {
		t.Errorf("acknowledged alert still listed as unacknowledged")
	}
}
