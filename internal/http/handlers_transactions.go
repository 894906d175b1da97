package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"finledger/internal/auth"
	"finledger/internal/core"
	applog "finledger/internal/log"
	"finledger/internal/services"
)

type transactionRequest struct {
	WalletID       string               `json:"walletId"`
	TargetWalletID string               `json:"targetWalletId"`
	CategoryID     string               `json:"categoryId"`
	Amount         core.Money           `json:"amount"`
	Type           core.TransactionType `json:"type"`
	Date           jsonDate             `json:"date"`
	Description    string               `json:"description"`
}

func (req transactionRequest) toTransaction(userID, id string) core.Transaction {
	return core.Transaction{
		ID:             id,
		UserID:         userID,
		WalletID:       sanitizeInput(req.WalletID),
		TargetWalletID: sanitizeInput(req.TargetWalletID),
		CategoryID:     sanitizeInput(req.CategoryID),
		Amount:         req.Amount,
		Type:           core.TransactionType(strings.ToLower(sanitizeInput(string(req.Type)))),
		Date:           req.Date.Time,
		Description:    sanitizeInput(req.Description),
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSON(r, &req); err != nil {
		FromError(r, err).Write(w)
		return
	}
	if req.Date.IsZero() {
		req.Date.Time = s.now().UTC()
	}

	userID := auth.UserIDFromContext(r.Context())
	saved, err := s.svc.Transactions.Create(r.Context(), req.toTransaction(userID, ""))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	s.invalidateUser(r.Context(), userID)
	logWrite(r, applog.OpCreate, userID, core.PeriodOf(saved.Date))
	NewJSONResponse().Status(http.StatusCreated).Body(saved).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSON(r, &req); err != nil {
		FromError(r, err).Write(w)
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	saved, err := s.svc.Transactions.Update(r.Context(), req.toTransaction(userID, mux.Vars(r)["id"]))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	s.invalidateUser(r.Context(), userID)
	logWrite(r, applog.OpUpdate, userID, core.PeriodOf(saved.Date))
	NewJSONResponse().Body(saved).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if err := s.svc.Transactions.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		FromError(r, err).Write(w)
		return
	}
	s.invalidateUser(r.Context(), userID)
	logWrite(r, applog.OpDelete, userID, core.PeriodOf(s.now()))
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleListTransactions serves GET /api/transactions. A lone from selects
// that single day; to always runs through the end of its day.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := core.TransactionFilter{
		UserID: auth.UserIDFromContext(r.Context()),
		Query:  sanitizeInput(q.Get("query")),
		Page:   1,
	}
	if typ := strings.ToLower(strings.TrimSpace(q.Get("type"))); typ != "" && typ != "all" {
		f.Type = core.TransactionType(typ)
	}
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			FromError(r, core.NewValidationError("page", "must be a positive integer")).Write(w)
			return
		}
		f.Page = n
	}

	from, err := ParseDateParam(q, "from", time.Time{})
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	to, err := ParseDateParam(q, "to", time.Time{})
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if to.IsZero() && !from.IsZero() {
		to = from
	}
	if !to.IsZero() {
		to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	f.From, f.To = from, to

	page, err := s.svc.Transactions.List(r.Context(), f)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(page).Write(w)
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit := services.DefaultRecentLimit
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			FromError(r, core.NewValidationError("limit", "must be a positive integer")).Write(w)
			return
		}
		limit = n
	}
	txs, err := s.svc.Transactions.Recent(r.Context(), auth.UserIDFromContext(r.Context()), limit)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(txs).Write(w)
}
