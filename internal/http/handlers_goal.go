package http

import (
	"fmt"
	"net/http"

	"tamerun/internal/core"
)

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	g, err := ParseGoalForm(r.PostForm, owner(r))
	if err != nil {
		fail(w, r, "Goal form rejected", err)
		return
	}

	id, err := s.deps.Goals.Create(r.Context(), g)
	if err != nil {
		fail(w, r, "Create goal failed", err)
		return
	}

	SuccessResponse(fmt.Sprintf("Goal %q created", g.Name)).
		TriggerGoalUpdated(id).
		TriggerFormReset().
		Write(w)
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	goalID, err := parseID(r.PathValue("id"))
	if err != nil {
		fail(w, r, "Invalid goal id", fmt.Errorf("goal %q: %w", r.PathValue("id"), core.ErrNotFound))
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	amount, err := core.ParseAmount(r.PostForm.Get("amount"))
	if err != nil {
		fail(w, r, "Contribution rejected", fmt.Errorf("amount: %w", err))
		return
	}

	if err := s.deps.Goals.Contribute(r.Context(), owner(r), goalID, amount); err != nil {
		fail(w, r, "Contribute to goal failed", err)
		return
	}

	SuccessResponse(fmt.Sprintf("Added %s to the goal", core.FormatAmount(amount))).
		TriggerGoalUpdated(goalID).
		Write(w)
}
