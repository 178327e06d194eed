package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/incomiq/incomiq/internal/common"
	"github.com/incomiq/incomiq/internal/logging"
	"github.com/incomiq/incomiq/internal/models"
	"github.com/incomiq/incomiq/internal/repositories/repomanager"
)

const (
	maxAmount         = 1000000
	maxSourceLen      = 50
	maxDescriptionLen = 200
	maxNameLen        = 100

	defaultPaymentMethod = "upi"
	defaultGoalIcon      = "piggy-bank"
)

// DocumentService implements the typed operations on incomes, expenses,
// goals and rules. All operations act on the caller's own partition; the
// demo identity reads and writes the regular demo-user-001 partition.
type DocumentService struct {
	repos  repomanager.RepositoryManager
	creds  *CredentialService
	logger logging.Logger
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(m repomanager.RepositoryManager, creds *CredentialService, logger logging.Logger) *DocumentService {
	return &DocumentService{repos: m, creds: creds, logger: logger}
}

// markActive flips the new-account flag after the caller's first mutation.
// Demo callers have no account record to flip.
func (s *DocumentService) markActive(ctx context.Context, identity *models.Identity) {
	if identity.IsDemo || !identity.IsNewAccount {
		return
	}
	if err := s.creds.MarkActive(ctx, identity.Email); err != nil {
		s.logger.Warn(ctx, "failed to mark account active", "email", identity.Email, "error", err)
		return
	}
	identity.IsNewAccount = false
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, msg)
}

func validateIncome(rec *models.Income) error {
	if rec.Amount <= 0 || rec.Amount > maxAmount {
		return validationError("amount must be between 0 and 1000000")
	}
	if n := len(strings.TrimSpace(rec.SourceName)); n < 1 || n > maxSourceLen {
		return validationError("source name must be 1 to 50 characters")
	}
	if !slices.Contains(models.IncomeCategories, rec.Category) {
		return validationError("unknown income category")
	}
	if rec.Date == "" {
		return validationError("date is required")
	}
	if len(rec.Description) > maxDescriptionLen {
		return validationError("description must be at most 200 characters")
	}
	return nil
}

func validateExpense(rec *models.Expense) error {
	if rec.Amount <= 0 || rec.Amount > maxAmount {
		return validationError("amount must be between 0 and 1000000")
	}
	if !slices.Contains(models.ExpenseCategories, rec.Category) {
		return validationError("unknown expense category")
	}
	if n := len(rec.Description); n < 1 || n > maxDescriptionLen {
		return validationError("description must be 1 to 200 characters")
	}
	if rec.Date == "" {
		return validationError("date is required")
	}
	if rec.PaymentMethod == "" {
		rec.PaymentMethod = defaultPaymentMethod
	}
	return nil
}

func validateGoal(rec *models.Goal) error {
	if n := len(strings.TrimSpace(rec.Name)); n < 1 || n > maxNameLen {
		return validationError("name must be 1 to 100 characters")
	}
	if rec.TargetAmount <= 0 {
		return validationError("target amount must be positive")
	}
	if rec.MonthlyContribution < 0 {
		return validationError("monthly contribution must not be negative")
	}
	return nil
}

func validateRule(rec *models.Rule) error {
	if n := len(strings.TrimSpace(rec.Name)); n < 1 || n > maxNameLen {
		return validationError("name must be 1 to 100 characters")
	}
	return nil
}

// ListIncomes returns the caller's incomes, newest date first, optionally
// filtered by category.
func (s *DocumentService) ListIncomes(ctx context.Context, identity *models.Identity, category string) ([]*models.Income, error) {
	recs, err := s.repos.Documents().Incomes().List(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	if category != "" {
		kept := recs[:0]
		for _, rec := range recs {
			if rec.Category == category {
				kept = append(kept, rec)
			}
		}
		recs = kept
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date > recs[j].Date })
	return recs, nil
}

// AddIncome validates and stores one income record.
func (s *DocumentService) AddIncome(ctx context.Context, identity *models.Identity, rec *models.Income) (*models.Income, error) {
	if err := validateIncome(rec); err != nil {
		return nil, err
	}
	stored, err := s.repos.Documents().Incomes().Append(ctx, identity.ID, rec)
	if err != nil {
		return nil, err
	}
	s.markActive(ctx, identity)
	return stored, nil
}

// AddIncomesBulk validates and stores a batch of income records, such as a
// parsed CSV upload. The whole batch is rejected if any record fails
// validation.
func (s *DocumentService) AddIncomesBulk(ctx context.Context, identity *models.Identity, recs []*models.Income) (int, error) {
	for i, rec := range recs {
		if err := validateIncome(rec); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	n, err := s.repos.Documents().Incomes().AppendBulk(ctx, identity.ID, recs)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.markActive(ctx, identity)
	}
	return n, nil
}

// DeleteIncome removes one income by id.
func (s *DocumentService) DeleteIncome(ctx context.Context, identity *models.Identity, id string) error {
	deleted, err := s.repos.Documents().Incomes().Delete(ctx, identity.ID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return common.ErrorNotFound
	}
	return nil
}

// ListExpenses returns the caller's expenses, newest date first, optionally
// filtered by category.
func (s *DocumentService) ListExpenses(ctx context.Context, identity *models.Identity, category string) ([]*models.Expense, error) {
	recs, err := s.repos.Documents().Expenses().List(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	if category != "" {
		kept := recs[:0]
		for _, rec := range recs {
			if rec.Category == category {
				kept = append(kept, rec)
			}
		}
		recs = kept
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date > recs[j].Date })
	return recs, nil
}

// AddExpense validates and stores one expense record. An empty payment
// method defaults to upi.
func (s *DocumentService) AddExpense(ctx context.Context, identity *models.Identity, rec *models.Expense) (*models.Expense, error) {
	if err := validateExpense(rec); err != nil {
		return nil, err
	}
	stored, err := s.repos.Documents().Expenses().Append(ctx, identity.ID, rec)
	if err != nil {
		return nil, err
	}
	s.markActive(ctx, identity)
	return stored, nil
}

// AddExpensesBulk validates and stores a batch of expense records.
func (s *DocumentService) AddExpensesBulk(ctx context.Context, identity *models.Identity, recs []*models.Expense) (int, error) {
	for i, rec := range recs {
		if err := validateExpense(rec); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	n, err := s.repos.Documents().Expenses().AppendBulk(ctx, identity.ID, recs)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.markActive(ctx, identity)
	}
	return n, nil
}

// DeleteExpense removes one expense by id.
func (s *DocumentService) DeleteExpense(ctx context.Context, identity *models.Identity, id string) error {
	deleted, err := s.repos.Documents().Expenses().Delete(ctx, identity.ID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return common.ErrorNotFound
	}
	return nil
}

// ListGoals returns the caller's savings goals in creation order.
func (s *DocumentService) ListGoals(ctx context.Context, identity *models.Identity) ([]*models.Goal, error) {
	return s.repos.Documents().Goals().List(ctx, identity.ID)
}

// CreateGoal stores a new goal. CurrentAmount always starts at zero no
// matter what the caller sent.
func (s *DocumentService) CreateGoal(ctx context.Context, identity *models.Identity, rec *models.Goal) (*models.Goal, error) {
	if err := validateGoal(rec); err != nil {
		return nil, err
	}
	rec.CurrentAmount = 0
	if rec.Icon == "" {
		rec.Icon = defaultGoalIcon
	}

	stored, err := s.repos.Documents().Goals().Append(ctx, identity.ID, rec)
	if err != nil {
		return nil, err
	}
	s.markActive(ctx, identity)
	return stored, nil
}

// AddMoney contributes to a goal, clamping the balance at the target.
func (s *DocumentService) AddMoney(ctx context.Context, identity *models.Identity, goalID string, amount float64) (*models.Goal, error) {
	if amount <= 0 {
		return nil, validationError("amount must be positive")
	}
	goal, err := s.repos.Documents().Goals().Update(ctx, identity.ID, goalID, func(g *models.Goal) error {
		g.CurrentAmount = min(g.CurrentAmount+amount, g.TargetAmount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.markActive(ctx, identity)
	return goal, nil
}

// DeleteGoal removes one goal by id.
func (s *DocumentService) DeleteGoal(ctx context.Context, identity *models.Identity, id string) error {
	deleted, err := s.repos.Documents().Goals().Delete(ctx, identity.ID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return common.ErrorNotFound
	}
	return nil
}

// ListRules returns the caller's savings rules in creation order.
func (s *DocumentService) ListRules(ctx context.Context, identity *models.Identity) ([]*models.Rule, error) {
	return s.repos.Documents().Rules().List(ctx, identity.ID)
}

// CreateRule stores a new rule, active with zeroed usage counters.
func (s *DocumentService) CreateRule(ctx context.Context, identity *models.Identity, rec *models.Rule) (*models.Rule, error) {
	if err := validateRule(rec); err != nil {
		return nil, err
	}
	rec.IsActive = true
	rec.Priority = 1
	rec.TotalSaved = 0
	rec.TimesTriggered = 0
	rec.LastTriggered = nil

	stored, err := s.repos.Documents().Rules().Append(ctx, identity.ID, rec)
	if err != nil {
		return nil, err
	}
	s.markActive(ctx, identity)
	return stored, nil
}

// ToggleRule flips a rule between active and paused.
func (s *DocumentService) ToggleRule(ctx context.Context, identity *models.Identity, id string) (*models.Rule, error) {
	return s.repos.Documents().Rules().Update(ctx, identity.ID, id, func(r *models.Rule) error {
		r.IsActive = !r.IsActive
		return nil
	})
}

// DeleteRule removes one rule by id.
func (s *DocumentService) DeleteRule(ctx context.Context, identity *models.Identity, id string) error {
	deleted, err := s.repos.Documents().Rules().Delete(ctx, identity.ID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return common.ErrorNotFound
	}
	return nil
}

// RuleTemplate is a prebuilt rule offered as a starting point.
type RuleTemplate struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Condition   models.RuleCondition `json:"condition"`
	Action      models.RuleAction    `json:"action"`
	Safety      models.RuleSafety    `json:"safety"`
}

// RuleTemplates returns the static template catalog.
func (s *DocumentService) RuleTemplates() []RuleTemplate {
	return []RuleTemplate{
		{
			ID:          "conservative",
			Name:        "Conservative Saver",
			Description: "Save 10% of every income, keep ₹5,000 minimum balance",
			Condition:   models.RuleCondition{Field: "income_amount", Operator: "greater_than", Value: 0},
			Action:      models.RuleAction{Type: "percentage", Value: 10, Destination: "Savings Account"},
			Safety:      models.RuleSafety{MinBalance: 5000, MinIncome: 5000},
		},
		{
			ID:          "aggressive",
			Name:        "Aggressive Growth",
			Description: "Save 30% of freelance income for investments",
			Condition:   models.RuleCondition{Field: "income_category", Operator: "equals", Value: 0},
			Action:      models.RuleAction{Type: "percentage", Value: 30, Destination: "Investment Fund"},
			Safety:      models.RuleSafety{MinBalance: 10000, MinIncome: 15000},
		},
		{
			ID:          "emergency",
			Name:        "Emergency First",
			Description: "Save ₹500 fixed from each income above ₹2,000",
			Condition:   models.RuleCondition{Field: "income_amount", Operator: "greater_than", Value: 2000},
			Action:      models.RuleAction{Type: "fixed", Value: 500, Destination: "Emergency Fund"},
			Safety:      models.RuleSafety{MinBalance: 3000, MinIncome: 0},
		},
		{
			ID:          "goal",
			Name:        "Goal-Oriented",
			Description: "Round up earnings to nearest ₹100, direct to top goal",
			Condition:   models.RuleCondition{Field: "income_amount", Operator: "greater_than", Value: 100},
			Action:      models.RuleAction{Type: "round_up", Value: 100, Destination: "Top Goal"},
			Safety:      models.RuleSafety{MinBalance: 2000, MinIncome: 0},
		},
	}
}

// SeedDemo populates the demo partition with goals and rules once. It is a
// no-op when the partition already has goals.
func (s *DocumentService) SeedDemo(ctx context.Context) error {
	goals := s.repos.Documents().Goals()

	existing, err := goals.List(ctx, DemoUserID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	demoGoals := []*models.Goal{
		{Name: "Emergency Fund", TargetAmount: 100000, CurrentAmount: 45000, TargetDate: "2025-12-31", Icon: "shield", MonthlyContribution: 8000},
		{Name: "New Laptop", TargetAmount: 75000, CurrentAmount: 32000, TargetDate: "2025-09-30", Icon: "laptop", MonthlyContribution: 10000},
		{Name: "Goa Vacation", TargetAmount: 50000, CurrentAmount: 18000, TargetDate: "2025-08-15", Icon: "palmtree", MonthlyContribution: 6000},
	}
	if _, err := goals.AppendBulk(ctx, DemoUserID, demoGoals); err != nil {
		return err
	}

	demoRules := []*models.Rule{
		{
			Name:      "Save 20% of Freelance Income",
			Condition: models.RuleCondition{Field: "income_category", Operator: "equals", Value: 0},
			Action:    models.RuleAction{Type: "percentage", Value: 20, Destination: "Emergency Fund"},
			Safety:    models.RuleSafety{MinBalance: 5000, MinIncome: 10000},
		},
		{
			Name:      "Round Up Delivery Earnings",
			Condition: models.RuleCondition{Field: "income_amount", Operator: "greater_than", Value: 500},
			Action:    models.RuleAction{Type: "round_up", Value: 100, Destination: "Vacation Fund"},
			Safety:    models.RuleSafety{MinBalance: 3000, MinIncome: 0},
		},
		{
			Name:      "Fixed Save on High Income Days",
			Condition: models.RuleCondition{Field: "daily_income", Operator: "greater_than", Value: 3000},
			Action:    models.RuleAction{Type: "fixed", Value: 500, Destination: "Investment Fund"},
			Safety:    models.RuleSafety{MinBalance: 10000, MinIncome: 15000},
		},
	}
	for _, rule := range demoRules {
		rule.IsActive = true
		rule.Priority = 1
		rule.TotalSaved = 15000
		rule.TimesTriggered = 12
	}
	if _, err := s.repos.Documents().Rules().AppendBulk(ctx, DemoUserID, demoRules); err != nil {
		return err
	}

	s.logger.Info(ctx, "demo data seeded", "user", DemoUserID)
	return nil
}
