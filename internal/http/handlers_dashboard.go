package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"finledger/internal/auth"
	"finledger/internal/core"
	applog "finledger/internal/log"
	"finledger/internal/services"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserIDFromContext(ctx)
	now := s.now()

	var (
		d   services.Dashboard
		err error
	)
	if userID == "" {
		d, err = s.svc.Dashboard.Load(ctx, "", now)
	} else {
		d, err = s.dashboards.Load(userID, cacheKey("dashboard", core.PeriodOf(now)), func() (services.Dashboard, error) {
			return s.svc.Dashboard.Load(ctx, userID, now)
		})
	}
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(d).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Categories.List(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(cats).Write(w)
}

type categoryRequest struct {
	Name  string               `json:"name"`
	Type  core.TransactionType `json:"type"`
	Color string               `json:"color"`
}

func (req categoryRequest) toCategory(userID, id string) core.Category {
	return core.Category{
		ID:     id,
		UserID: userID,
		Name:   sanitizeInput(req.Name),
		Type:   req.Type,
		Color:  sanitizeInput(req.Color),
	}
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := DecodeJSON(r, &req); err != nil {
		FromError(r, err).Write(w)
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	saved, err := s.svc.Categories.Create(r.Context(), req.toCategory(userID, ""))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	s.invalidateUser(r.Context(), userID)
	logWrite(r, applog.OpCreate, userID, core.PeriodOf(s.now()))
	NewJSONResponse().Status(http.StatusCreated).Body(saved).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := DecodeJSON(r, &req); err != nil {
		FromError(r, err).Write(w)
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	saved, err := s.svc.Categories.Update(r.Context(), req.toCategory(userID, mux.Vars(r)["id"]))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	s.invalidateUser(r.Context(), userID)
	logWrite(r, applog.OpUpdate, userID, core.PeriodOf(s.now()))
	NewJSONResponse().Body(saved).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if err := s.svc.Categories.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		FromError(r, err).Write(w)
		return
	}
	s.invalidateUser(r.Context(), userID)
	logWrite(r, applog.OpDelete, userID, core.PeriodOf(s.now()))
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleSeedCategories(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	n, err := s.svc.Categories.SeedDefaults(r.Context(), userID)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if n > 0 {
		s.invalidateUser(r.Context(), userID)
	}
	NewJSONResponse().Body(map[string]int{"created": n}).Write(w)
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.svc.Wallets.List(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(wallets).Write(w)
}

type walletRequest struct {
	Name    string     `json:"name"`
	Balance core.Money `json:"balance"`
	Color   string     `json:"color"`
}

func (req walletRequest) toWallet(userID, id string) core.Wallet {
	return core.Wallet{
		ID:      id,
		UserID:  userID,
		Name:    sanitizeInput(req.Name),
		Balance: req.Balance,
		Color:   sanitizeInput(req.Color),
	}
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := DecodeJSON(r, &req); err != nil {
		FromError(r, err).Write(w)
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	saved, err := s.svc.Wallets.Create(r.Context(), req.toWallet(userID, ""))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	s.invalidateUser(r.Context(), userID)
	logWrite(r, applog.OpCreate, userID, core.PeriodOf(s.now()))
	NewJSONResponse().Status(http.StatusCreated).Body(saved).Write(w)
}

// handleUpdateWallet overwrites the stored balance as given; transactions
// already recorded against the wallet are not replayed.
func (s *Server) handleUpdateWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := DecodeJSON(r, &req); err != nil {
		FromError(r, err).Write(w)
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	saved, err := s.svc.Wallets.Update(r.Context(), req.toWallet(userID, mux.Vars(r)["id"]))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	s.invalidateUser(r.Context(), userID)
	logWrite(r, applog.OpUpdate, userID, core.PeriodOf(s.now()))
	NewJSONResponse().Body(saved).Write(w)
}

func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if err := s.svc.Wallets.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		FromError(r, err).Write(w)
		return
	}
	s.invalidateUser(r.Context(), userID)
	logWrite(r, applog.OpDelete, userID, core.PeriodOf(s.now()))
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
