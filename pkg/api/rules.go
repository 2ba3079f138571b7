package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/northfold/agentrelay/pkg/rules"
)

// ruleView is the wire shape of one rule, matching the field names of the
// §6 rule endpoints.
type ruleView struct {
	RuleID           string `json:"rule_id"`
	Scope            string `json:"scope"`
	ScopeID          string `json:"scope_id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Priority         int    `json:"priority"`
	Inclusion        string `json:"inclusion"`
	FileMatchPattern string `json:"file_match_pattern,omitempty"`
	Content          string `json:"content"`
	Override         bool   `json:"override"`
	Enabled          bool   `json:"enabled"`
}

func toRuleView(r rules.Rule) ruleView {
	return ruleView{
		RuleID: r.RuleID, Scope: string(r.Scope), ScopeID: r.ScopeID, Name: r.Name,
		Description: r.Description, Priority: r.Priority, Inclusion: string(r.Inclusion),
		FileMatchPattern: r.FileMatchPattern, Content: r.Content, Override: r.Override, Enabled: r.Enabled,
	}
}

// ListRules handles GET /api/rules?scope=&scope_owner=. Both query
// parameters are optional; omitting scope lists every scope level the
// caller could plausibly see (global, plus the owner-scoped levels named by
// scope_owner).
func (s *Server) ListRules(c *gin.Context) {
	scope := c.Query("scope")
	scopeOwner := c.Query("scope_owner")

	var scopes []rules.ScopeRef
	if scope != "" {
		scopes = append(scopes, rules.ScopeRef{Scope: rules.Scope(scope), ScopeID: scopeOwner})
	} else {
		scopes = []rules.ScopeRef{
			{Scope: rules.ScopeGlobal},
			{Scope: rules.ScopeUser, ScopeID: scopeOwner},
			{Scope: rules.ScopeProject, ScopeID: scopeOwner},
			{Scope: rules.ScopeSession, ScopeID: scopeOwner},
		}
	}

	matched, err := s.ruleStore.ListForScope(c.Request.Context(), scopes)
	if err != nil {
		writeError(c, err)
		return
	}

	views := make([]ruleView, 0, len(matched))
	for _, r := range matched {
		views = append(views, toRuleView(r))
	}
	c.JSON(http.StatusOK, gin.H{"rules": views})
}

// putRuleRequest is the request body for PUT /api/rules.
type putRuleRequest struct {
	RuleID           string `json:"rule_id"`
	Scope            string `json:"scope" binding:"required"`
	ScopeID          string `json:"scope_id"`
	Name             string `json:"name" binding:"required"`
	Description      string `json:"description"`
	Priority         int    `json:"priority"`
	Inclusion        string `json:"inclusion" binding:"required"`
	FileMatchPattern string `json:"file_match_pattern"`
	Content          string `json:"content" binding:"required"`
	Override         bool   `json:"override"`
	Enabled          bool   `json:"enabled"`
}

// PutRule handles PUT /api/rules: create-or-update keyed by
// (scope, scope_id, name), audited per §3a.
func (s *Server) PutRule(c *gin.Context) {
	var req putRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope{ErrorCode: "VALIDATION_ERROR", Message: err.Error()})
		return
	}

	rule := rules.Rule{
		RuleID:           req.RuleID,
		Scope:            rules.Scope(req.Scope),
		ScopeID:          req.ScopeID,
		Name:             req.Name,
		Description:      req.Description,
		Priority:         req.Priority,
		Inclusion:        rules.Inclusion(req.Inclusion),
		FileMatchPattern: req.FileMatchPattern,
		Content:          req.Content,
		Override:         req.Override,
		Enabled:          req.Enabled,
	}

	saved, err := s.ruleStore.Create(c.Request.Context(), rule)
	if err != nil {
		writeError(c, err)
		return
	}

	s.recordAudit(c, userIDFromContext(c), "rule.put", "rule", saved.RuleID, map[string]any{
		"scope": saved.Scope, "scope_id": saved.ScopeID, "name": saved.Name,
	})
	c.JSON(http.StatusOK, toRuleView(saved))
}

// DeleteRule handles DELETE /api/rules/:scope/:scope_owner/:name, audited
// per §3a. The rule is looked up by scanning ListForScope since the store's
// Delete operates on rule_id, not the natural key callers address it by.
func (s *Server) DeleteRule(c *gin.Context) {
	scope := rules.Scope(c.Param("scope"))
	scopeOwner := c.Param("scope_owner")
	name := c.Param("name")

	matched, err := s.ruleStore.ListForScope(c.Request.Context(), []rules.ScopeRef{{Scope: scope, ScopeID: scopeOwner}})
	if err != nil {
		writeError(c, err)
		return
	}

	var ruleID string
	for _, r := range matched {
		if r.Name == name {
			ruleID = r.RuleID
			break
		}
	}
	if ruleID == "" {
		c.JSON(http.StatusNotFound, errorEnvelope{ErrorCode: "SESSION_NOT_FOUND", Message: "rule not found"})
		return
	}

	if err := s.ruleStore.Delete(c.Request.Context(), ruleID); err != nil {
		writeError(c, err)
		return
	}

	s.recordAudit(c, userIDFromContext(c), "rule.delete", "rule", ruleID, map[string]any{
		"scope": scope, "scope_id": scopeOwner, "name": name,
	})
	c.Status(http.StatusNoContent)
}
