package http

import (
	"context"
	"net/http"

	"tamerun/internal/auth"
	"tamerun/internal/core"
	"tamerun/internal/log"
	"tamerun/internal/services"
)

type monthNav struct {
	Month core.YearMonth
	Prev  core.YearMonth
	Next  core.YearMonth
}

func newMonthNav(m core.YearMonth) monthNav {
	return monthNav{Month: m, Prev: m.Prev(), Next: m.Next()}
}

type recentRow struct {
	Transaction core.Transaction
	Category    core.Category
}

type dashboardPage struct {
	Email    string
	Nav      monthNav
	Overview services.Overview
	Recent   []recentRow
}

func (s *Server) today() core.Date {
	return core.DateOf(s.nowFn())
}

// handleDashboard renders the monthly summary and goal progress.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withReadTimeout(r.Context())
	defer cancel()

	today := s.today()
	month := ParseMonthParam(r.URL.Query(), today)

	ov, err := s.deps.Dashboard.Overview(ctx, owner(r), month, today)
	if err != nil {
		fail(w, r, "Dashboard overview failed", err)
		return
	}

	recent, err := s.withCategories(ctx, ov.Recent)
	if err != nil {
		fail(w, r, "Dashboard categories failed", err)
		return
	}

	id, _ := auth.FromContext(r.Context())
	s.render(w, r, http.StatusOK, "dashboard.html", dashboardPage{
		Email:    id.Email,
		Nav:      newMonthNav(month),
		Overview: ov,
		Recent:   recent,
	})
}

func (s *Server) withCategories(ctx context.Context, txs []core.Transaction) ([]recentRow, error) {
	cats, err := s.deps.Catalog.List(ctx, "")
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]core.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	rows := make([]recentRow, 0, len(txs))
	for _, t := range txs {
		c, ok := byID[t.CategoryID]
		if !ok {
			c = core.Category{Name: "Unknown", Icon: core.DefaultCategoryIcon, Color: core.DefaultCategoryColor}
		}
		rows = append(rows, recentRow{Transaction: t, Category: c})
	}
	return rows, nil
}

type statsPage struct {
	Email     string
	Nav       monthNav
	Kind      core.Kind
	Breakdown services.Breakdown
	PieCX     float64
	PieCY     float64
	PieR      float64
}

// handleStats renders the category breakdown and pie chart. An htmx request
// gets only the stats panel.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withReadTimeout(r.Context())
	defer cancel()

	query := r.URL.Query()
	month := ParseMonthParam(query, s.today())
	kind := ParseKindParam(query, core.KindExpense)

	b, err := s.deps.Dashboard.Breakdown(ctx, owner(r), month, kind)
	if err != nil {
		fail(w, r, "Stats breakdown failed", err)
		return
	}

	log.FromContext(ctx).DebugContext(ctx, "Stats rendered",
		log.FieldMonth, month.String(),
		log.FieldKind, string(kind),
		"categories", len(b.Totals))

	id, _ := auth.FromContext(r.Context())
	page := statsPage{
		Email:     id.Email,
		Nav:       newMonthNav(month),
		Kind:      kind,
		Breakdown: b,
		PieCX:     core.PieCenterX,
		PieCY:     core.PieCenterY,
		PieR:      core.PieRadius,
	}
	name := "stats.html"
	if r.Header.Get("HX-Request") == "true" {
		name = "stats_panel"
	}
	s.render(w, r, http.StatusOK, name, page)
}
