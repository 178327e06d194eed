package models

import "time"

// Collection names understood by the document store.
const (
	CollectionIncomes  = "incomes"
	CollectionExpenses = "expenses"
	CollectionRules    = "rules"
	CollectionGoals    = "goals"
)

// Collections lists every known collection, in the order reports scan them.
var Collections = []string{
	CollectionIncomes,
	CollectionExpenses,
	CollectionRules,
	CollectionGoals,
}

// Record carries the server-assigned fields common to every document.
// Within one (user, collection) partition record IDs are unique; UserID
// always equals the partition the record is stored under.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Meta exposes the embedded Record so generic store code can assign
// server-side fields without knowing the concrete document type.
func (r *Record) Meta() *Record { return r }

// Document is implemented by every record stored in a collection.
type Document interface {
	Meta() *Record
}

// Income categories accepted from callers.
const (
	IncomeFreelance = "freelance"
	IncomeDelivery  = "delivery"
	IncomeContent   = "content"
	IncomeRideshare = "rideshare"
	IncomeTutoring  = "tutoring"
	IncomeEcommerce = "ecommerce"
	IncomeOther     = "other"
)

// IncomeCategories enumerates valid income categories.
var IncomeCategories = []string{
	IncomeFreelance, IncomeDelivery, IncomeContent, IncomeRideshare,
	IncomeTutoring, IncomeEcommerce, IncomeOther,
}

// ExpenseCategories enumerates valid expense categories.
var ExpenseCategories = []string{
	"rent", "food", "transport", "utilities", "entertainment",
	"healthcare", "education", "shopping", "bills", "other",
}

// Income is a single earned-income record. Date is an ISO YYYY-MM-DD day;
// ISO ordering makes plain string comparison valid for date windows.
type Income struct {
	Record
	Amount      float64 `json:"amount"`
	SourceName  string  `json:"source_name"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	Description string  `json:"description,omitempty"`
}

// Expense is a single spending record.
type Expense struct {
	Record
	Amount        float64 `json:"amount"`
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	Date          string  `json:"date"`
	PaymentMethod string  `json:"payment_method"`
}

// Goal is a savings goal. CurrentAmount is clamped to [0, TargetAmount] on
// every contribution.
type Goal struct {
	Record
	Name                string  `json:"name"`
	TargetAmount        float64 `json:"target_amount"`
	CurrentAmount       float64 `json:"current_amount"`
	TargetDate          string  `json:"target_date"`
	Icon                string  `json:"icon"`
	MonthlyContribution float64 `json:"monthly_contribution"`
}

// RuleCondition triggers a savings rule when the named field satisfies the
// operator against the value.
type RuleCondition struct {
	Field    string  `json:"field"`
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
}

// RuleAction describes what a savings rule does when triggered.
type RuleAction struct {
	Type        string  `json:"type"`
	Value       float64 `json:"value"`
	Destination string  `json:"destination"`
}

// RuleSafety bounds a rule so it never drains the account.
type RuleSafety struct {
	MinBalance float64 `json:"min_balance"`
	MinIncome  float64 `json:"min_income"`
}

// Rule is an automated savings rule with usage counters.
type Rule struct {
	Record
	Name           string        `json:"name"`
	Condition      RuleCondition `json:"condition"`
	Action         RuleAction    `json:"action"`
	Safety         RuleSafety    `json:"safety"`
	IsActive       bool          `json:"is_active"`
	Priority       int           `json:"priority"`
	TotalSaved     float64       `json:"total_saved"`
	TimesTriggered int           `json:"times_triggered"`
	LastTriggered  *time.Time    `json:"last_triggered"`
}
