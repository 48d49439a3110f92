package http

import (
	"context"
	"net/http"

	"fintrax/internal/core"
	"fintrax/internal/log"
	"fintrax/internal/services"
)

func (s *Server) handleExpenseCategories(w http.ResponseWriter, r *http.Request) {
	s.categories(w, r, core.Expense)
}

func (s *Server) handleIncomeCategories(w http.ResponseWriter, r *http.Request) {
	s.categories(w, r, core.Income)
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request, typ core.TransactionType) {
	q, err := ParseChartQuery(r.URL.Query())
	if err != nil {
		s.fail(w, r, log.ComponentCharts, log.OpParse, err)
		return
	}
	data, err := s.charts.Categories(r.Context(), typ, q)
	if err != nil {
		s.fail(w, r, log.ComponentCharts, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(data).Write(w)
}

func (s *Server) handleIncomeTrend(w http.ResponseWriter, r *http.Request) {
	chart(s, w, r, s.charts.IncomeTrend)
}

func (s *Server) handleNetWorth(w http.ResponseWriter, r *http.Request) {
	chart(s, w, r, s.charts.NetWorth)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	chart(s, w, r, s.charts.Balance)
}

// chart parses the common query parameters and serves one chart payload.
func chart[T any](s *Server, w http.ResponseWriter, r *http.Request, build func(context.Context, services.ChartQuery) (T, error)) {
	q, err := ParseChartQuery(r.URL.Query())
	if err != nil {
		s.fail(w, r, log.ComponentCharts, log.OpParse, err)
		return
	}
	data, err := build(r.Context(), q)
	if err != nil {
		s.fail(w, r, log.ComponentCharts, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(data).Write(w)
}
