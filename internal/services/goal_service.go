package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"tamerun/internal/core"
	"tamerun/internal/log"
	"tamerun/internal/ports"
)

var ErrInvalidContribution = errors.New("contribution must be greater than zero")

type GoalService struct {
	store  ports.GoalStore
	logger *log.Logger
}

func NewGoalService(store ports.GoalStore, logger *log.Logger) *GoalService {
	return &GoalService{store: store, logger: logger.WithComponent(log.ComponentDashboard)}
}

func (s *GoalService) Create(ctx context.Context, g core.NewGoal) (int64, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.CreateGoal(ctx, g)
	if err != nil {
		return 0, fmt.Errorf("save goal: %w", err)
	}
	s.logger.InfoContext(ctx, "Savings goal created",
		log.FieldUserID, g.UserID,
		log.FieldGoalID, id,
		log.FieldOperation, log.OpCreate)
	return id, nil
}

// Contribute adds amount to a goal owned by owner.
func (s *GoalService) Contribute(ctx context.Context, owner string, goalID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidContribution
	}
	if err := s.store.AddToGoal(ctx, owner, goalID, amount); err != nil {
		return fmt.Errorf("contribute to goal %d: %w", goalID, err)
	}
	s.logger.InfoContext(ctx, "Savings goal contribution",
		log.FieldUserID, owner,
		log.FieldGoalID, goalID,
		log.FieldAmount, amount.String())
	return nil
}
