package http

import (
	"fmt"
	"net/http"

	"tamerun/internal/auth"
	"tamerun/internal/core"
	"tamerun/internal/log"
)

type inputPage struct {
	Email          string
	Kind           core.Kind
	Categories     []core.Category
	Today          core.Date
	ReceiptEnabled bool
}

// handleInput renders the manual entry form with the receipt uploader.
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withReadTimeout(r.Context())
	defer cancel()

	kind := ParseKindParam(r.URL.Query(), core.KindExpense)
	cats, err := s.deps.Catalog.List(ctx, kind)
	if err != nil {
		fail(w, r, "Load categories failed", err)
		return
	}

	id, _ := auth.FromContext(r.Context())
	s.render(w, r, http.StatusOK, "input.html", inputPage{
		Email:          id.Email,
		Kind:           kind,
		Categories:     cats,
		Today:          s.today(),
		ReceiptEnabled: s.deps.Receipts != nil && s.deps.Receipts.Enabled(),
	})
}

// handleCategoryOptions renders the <option> list for a kind, used when the
// form switches between expense and income.
func (s *Server) handleCategoryOptions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withReadTimeout(r.Context())
	defer cancel()

	kind, err := core.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		fail(w, r, "Invalid category kind", err)
		return
	}
	cats, err := s.deps.Catalog.List(ctx, kind)
	if err != nil {
		fail(w, r, "Load categories failed", err)
		return
	}
	s.render(w, r, http.StatusOK, "category_options", cats)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	t, err := ParseTransactionForm(r.PostForm, owner(r), s.today())
	if err != nil {
		fail(w, r, "Transaction form rejected", err)
		return
	}

	id, err := s.deps.Transactions.Create(r.Context(), t)
	if err != nil {
		fail(w, r, "Create transaction failed", err)
		return
	}

	log.FromContext(r.Context()).DebugContext(r.Context(), "Transaction form handled", log.FieldTxID, id)

	verb := "Expense"
	if t.Kind == core.KindIncome {
		verb = "Income"
	}
	SuccessResponse(fmt.Sprintf("%s of %s recorded", verb, core.FormatAmount(t.Amount))).
		TriggerTransactionCreated(core.MonthOf(t.Date).String(), string(t.Kind)).
		TriggerFormReset().
		Write(w)
}
