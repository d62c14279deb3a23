package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kestrelsec/mailgate/internal/core"
	"go.uber.org/zap"
)

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenantFrom(r)

	rules, err := s.store.ListRules(r.Context(), tenant)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rules)
}

type ruleRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Pattern     string `json:"pattern"`
	Action      string `json:"action"`
	Enabled     *bool  `json:"enabled"`
	Priority    int    `json:"priority"`
	Description string `json:"description"`
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenantFrom(r)

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	now := time.Now().UTC()
	rule := &core.ContentFilterRule{
		ID:          uuid.NewString(),
		TenantID:    tenant,
		Name:        req.Name,
		Type:        core.RuleType(req.Type),
		Pattern:     req.Pattern,
		Action:      core.RuleAction(req.Action),
		Enabled:     true,
		Priority:    req.Priority,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := s.store.CreateRule(r.Context(), rule); err != nil {
		respondStoreError(w, err)
		return
	}

	s.reloadTenant(r, tenant)
	respondJSON(w, http.StatusCreated, rule)
}

func (s *Server) getRule(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenantFrom(r)
	ruleID := chi.URLParam(r, "ruleID")

	rule, err := s.store.GetRule(r.Context(), tenant, ruleID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

func (s *Server) updateRule(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenantFrom(r)
	ruleID := chi.URLParam(r, "ruleID")

	existing, err := s.store.GetRule(r.Context(), tenant, ruleID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	existing.Name = req.Name
	existing.Type = core.RuleType(req.Type)
	existing.Pattern = req.Pattern
	existing.Action = core.RuleAction(req.Action)
	existing.Priority = req.Priority
	existing.Description = req.Description
	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}
	existing.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateRule(r.Context(), existing); err != nil {
		respondStoreError(w, err)
		return
	}

	s.reloadTenant(r, tenant)
	respondJSON(w, http.StatusOK, existing)
}

func (s *Server) deleteRule(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenantFrom(r)
	ruleID := chi.URLParam(r, "ruleID")

	if err := s.store.DeleteRule(r.Context(), tenant, ruleID); err != nil {
		respondStoreError(w, err)
		return
	}

	s.reloadTenant(r, tenant)
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) enableRule(w http.ResponseWriter, r *http.Request) {
	s.setRuleEnabled(w, r, true)
}

func (s *Server) disableRule(w http.ResponseWriter, r *http.Request) {
	s.setRuleEnabled(w, r, false)
}

func (s *Server) setRuleEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	tenant := s.tenantFrom(r)
	ruleID := chi.URLParam(r, "ruleID")

	if err := s.store.SetRuleEnabled(r.Context(), tenant, ruleID, enabled); err != nil {
		respondStoreError(w, err)
		return
	}

	s.reloadTenant(r, tenant)
	respondJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

func (s *Server) getPolicy(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenantFrom(r)

	policy, err := s.store.GetPolicy(r.Context(), tenant)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, policy)
}

type policyRequest struct {
	BlockThreshold       float64 `json:"block_threshold"`
	QuarantineThreshold  float64 `json:"quarantine_threshold"`
	BlockNewDomains      bool    `json:"block_new_domains"`
	BlockMacros          bool    `json:"block_macros"`
	AllowExternalImages  bool    `json:"allow_external_images"`
	EnableRealTimeAlerts bool    `json:"enable_real_time_alerts"`
}

func (s *Server) updatePolicy(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenantFrom(r)

	var req policyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	existing, err := s.store.GetPolicy(r.Context(), tenant)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	existing.BlockThreshold = req.BlockThreshold
	existing.QuarantineThreshold = req.QuarantineThreshold
	existing.BlockNewDomains = req.BlockNewDomains
	existing.BlockMacros = req.BlockMacros
	existing.AllowExternalImages = req.AllowExternalImages
	existing.EnableRealTimeAlerts = req.EnableRealTimeAlerts
	existing.UpdatedAt = time.Now().UTC()

	// Reject before saving so an invalid policy can never take effect.
	if err := existing.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_policy", err.Error())
		return
	}

	if err := s.store.SavePolicy(r.Context(), existing); err != nil {
		respondStoreError(w, err)
		return
	}

	s.reloadTenant(r, tenant)
	respondJSON(w, http.StatusOK, existing)
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenantFrom(r)
	unackedOnly := r.URL.Query().Get("unacknowledged") == "true"

	alerts, err := s.store.ListAlerts(r.Context(), tenant, unackedOnly)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, alerts)
}

func (s *Server) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")

	changed, err := s.store.AcknowledgeAlert(r.Context(), alertID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"acknowledged": true, "changed": changed})
}

type evaluateRequest struct {
	MessageID       string              `json:"message_id"`
	FromAddress     string              `json:"from_address"`
	FromDisplay     string              `json:"from_display"`
	ToAddress       string              `json:"to_address"`
	Subject         string              `json:"subject"`
	BodyText        string              `json:"body_text"`
	BodyHTML        string              `json:"body_html"`
	SourceIP        string              `json:"source_ip"`
	Size            int64               `json:"size"`
	AttachmentNames []string            `json:"attachment_names"`
	Headers         map[string][]string `json:"headers"`
	SPFPass         *bool               `json:"spf_pass"`
	DKIMPass        *bool               `json:"dkim_pass"`
	DMARCPass       *bool               `json:"dmarc_pass"`
	MLScore         *float64            `json:"ml_score"`
}

// evaluateMessage runs a message through the full triage pipeline. Meant
// for testing rules and policies from the dashboard, so the result is
// returned even for held messages.
func (s *Server) evaluateMessage(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenantFrom(r)

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	raw := &core.RawMessage{
		MessageID:       req.MessageID,
		FromAddress:     req.FromAddress,
		FromDisplay:     req.FromDisplay,
		ToAddress:       req.ToAddress,
		Subject:         req.Subject,
		BodyText:        req.BodyText,
		BodyHTML:        req.BodyHTML,
		SourceIP:        req.SourceIP,
		Size:            req.Size,
		ReceivedAt:      time.Now().UTC(),
		AttachmentNames: req.AttachmentNames,
		Headers:         req.Headers,
		SPFPass:         req.SPFPass,
		DKIMPass:        req.DKIMPass,
		DMARCPass:       req.DMARCPass,
		MLScore:         req.MLScore,
	}

	result, _, err := s.service.Evaluate(r.Context(), tenant, raw)
	if result == nil {
		var cfgErr *core.ConfigurationError
		if errors.As(err, &cfgErr) {
			respondError(w, http.StatusConflict, "invalid_policy", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "evaluation_error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// reloadTenant refreshes the evaluation snapshot after a config change.
func (s *Server) reloadTenant(r *http.Request, tenant string) {
	if s.service == nil {
		return
	}
	if err := s.service.Reload(r.Context(), tenant); err != nil {
		s.logger.Warn("Failed to reload tenant snapshot",
			zap.String("tenant_id", tenant),
			zap.Error(err))
	}
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	var cfgErr *core.ConfigurationError
	if errors.As(err, &cfgErr) {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, "store_error", err.Error())
}
