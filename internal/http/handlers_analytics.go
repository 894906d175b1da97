package http

import (
	"net/http"

	"finledger/internal/auth"
	"finledger/internal/charts"
	"finledger/internal/core"
)

// handleMonthlySpending defaults to the six months ending with the current one.
func (s *Server) handleMonthlySpending(w http.ResponseWriter, r *http.Request) {
	current := core.PeriodOf(s.now())
	q := r.URL.Query()

	from, err := ParseDateParam(q, "from", current.Shift(-5).Start())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	to, err := ParseDateParam(q, "to", current.End())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if q.Get("to") != "" {
		// A date-only bound covers the whole day.
		to = to.AddDate(0, 0, 1).Add(-1)
	}

	rows, err := s.svc.Analytics.MonthlySpending(r.Context(), auth.UserIDFromContext(r.Context()), from, to)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(rows).Write(w)
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriodParam(r.URL.Query(), "period", s.now())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	rows, err := s.svc.Analytics.CategoryBreakdown(r.Context(), auth.UserIDFromContext(r.Context()), period)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(rows).Write(w)
}

func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriodParam(r.URL.Query(), "period", s.now())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	rows, err := s.svc.Analytics.CategoryBreakdown(r.Context(), auth.UserIDFromContext(r.Context()), period)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	img, err := charts.CategoryPie(rows)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().PNG(img).Write(w)
}

func (s *Server) handlePeriodSummary(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriodParam(r.URL.Query(), "period", s.now())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	summary, err := s.svc.Analytics.PeriodSummary(r.Context(), auth.UserIDFromContext(r.Context()), period)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

// history serves the six month series from the read-model cache.
func (s *Server) history(r *http.Request) ([]core.HistoryPoint, error) {
	anchor, err := ParseDateParam(r.URL.Query(), "anchor", s.now())
	if err != nil {
		return nil, err
	}
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		return s.svc.History.SixMonthHistory(r.Context(), "", anchor)
	}

	return s.histories.Load(userID, cacheKey("history", core.PeriodOf(anchor)), func() ([]core.HistoryPoint, error) {
		return s.svc.History.SixMonthHistory(r.Context(), userID, anchor)
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	points, err := s.history(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(points).Write(w)
}

func (s *Server) handleHistoryChart(w http.ResponseWriter, r *http.Request) {
	points, err := s.history(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	img, err := charts.HistoryChart(points)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().PNG(img).Write(w)
}
