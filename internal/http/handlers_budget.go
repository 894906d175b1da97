package http

import (
	"net/http"

	"finledger/internal/auth"
	"finledger/internal/core"
	applog "finledger/internal/log"
)

type upsertBudgetRequest struct {
	CategoryID string      `json:"categoryId"`
	Period     core.Period `json:"period"`
	Amount     core.Money  `json:"amount"`
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var req upsertBudgetRequest
	if err := DecodeJSON(r, &req); err != nil {
		FromError(r, err).Write(w)
		return
	}
	if req.Period.IsZero() {
		req.Period = core.PeriodOf(s.now())
	}

	userID := auth.UserIDFromContext(r.Context())
	saved, err := s.svc.Budgets.UpsertBudget(r.Context(), userID, sanitizeInput(req.CategoryID), req.Period, req.Amount)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	s.invalidateUser(r.Context(), userID)
	logWrite(r, applog.OpUpsert, userID, saved.Period)
	NewJSONResponse().Body(saved).Write(w)
}

type copyBudgetsRequest struct {
	Period core.Period `json:"period"`
}

// handleCopyBudgets copies into the requested month, or the current one when
// the body is empty.
func (s *Server) handleCopyBudgets(w http.ResponseWriter, r *http.Request) {
	var req copyBudgetsRequest
	if r.ContentLength != 0 {
		if err := DecodeJSON(r, &req); err != nil {
			FromError(r, err).Write(w)
			return
		}
	}
	if req.Period.IsZero() {
		req.Period = core.PeriodOf(s.now())
	}

	userID := auth.UserIDFromContext(r.Context())
	res, err := s.svc.Budgets.CopyBudgets(r.Context(), userID, req.Period)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if res.Copied > 0 {
		s.invalidateUser(r.Context(), userID)
	}
	logWrite(r, applog.OpCopy, userID, res.Target)
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleBudgetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriodParam(r.URL.Query(), "period", s.now())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	usage, err := s.svc.Budgets.BudgetVsSpend(r.Context(), auth.UserIDFromContext(r.Context()), period)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(usage).Write(w)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriodParam(r.URL.Query(), "period", s.now())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	alerts := []core.BudgetAlert{}
	if userID != "" {
		found, err := s.svc.Alerts.ListAlerts(r.Context(), userID, period)
		if err != nil {
			FromError(r, err).Write(w)
			return
		}
		if found != nil {
			alerts = found
		}
	}
	NewJSONResponse().Body(alerts).Write(w)
}
