package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incomiq/incomiq/internal/common"
	"github.com/incomiq/incomiq/internal/models"
	"github.com/incomiq/incomiq/internal/repositories/repomanager"
)

type adminEnv struct {
	dir     string
	manager repomanager.RepositoryManager
	creds   *CredentialService
	admin   *AdminService
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()
	dir := t.TempDir()
	m, err := repomanager.NewFileRepositoryManager(dir)
	require.NoError(t, err)
	return &adminEnv{
		dir:     dir,
		manager: m,
		creds:   newCredentialService(t, m),
		admin:   NewAdminService(m, newTestLogger(t), "test-salt", []string{"ops@incomiq.com"}),
	}
}

func (e *adminEnv) signup(t *testing.T, email string) string {
	t.Helper()
	account, _, err := e.creds.Signup(context.Background(), email, "secret1", "Test User")
	require.NoError(t, err)
	return account.ID
}

func daysAgo(n int) string {
	return time.Now().AddDate(0, 0, -n).Format("2006-01-02")
}

// seedReportData creates two accounts: one in a prolonged low-income
// stretch, one earning well with two large expenses and two rules.
func seedReportData(t *testing.T, env *adminEnv) (lowID, highID string) {
	t.Helper()
	ctx := context.Background()
	docs := env.manager.Documents()

	lowID = env.signup(t, "low@gmail.com")
	highID = env.signup(t, "high@gmail.com")

	_, err := docs.Incomes().AppendBulk(ctx, lowID, []*models.Income{
		{Amount: 9000, SourceName: "Swiggy Delivery", Category: models.IncomeDelivery, Date: daysAgo(20)},
		{Amount: 12000, SourceName: "Zomato", Category: models.IncomeDelivery, Date: daysAgo(40)},
	})
	require.NoError(t, err)

	_, err = docs.Incomes().AppendBulk(ctx, highID, []*models.Income{
		{Amount: 300000, SourceName: "Toptal", Category: models.IncomeFreelance, Date: daysAgo(10)},
	})
	require.NoError(t, err)

	_, err = docs.Expenses().AppendBulk(ctx, highID, []*models.Expense{
		{Amount: 60000, Category: "shopping", Description: "New workstation", Date: daysAgo(5), PaymentMethod: "card"},
		{Amount: 120000, Category: "rent", Description: "Annual rent advance", Date: daysAgo(3), PaymentMethod: "upi"},
	})
	require.NoError(t, err)

	_, err = docs.Rules().AppendBulk(ctx, highID, []*models.Rule{
		{
			Name:      "Save 20%",
			Condition: models.RuleCondition{Field: "income_amount", Operator: "greater_than", Value: 0},
			Action:    models.RuleAction{Type: "percentage", Value: 20},
			IsActive:  true,
		},
		{
			Name:      "Fixed save",
			Condition: models.RuleCondition{Field: "daily_income", Operator: "greater_than", Value: 3000},
			Action:    models.RuleAction{Type: "fixed", Value: 500},
			IsActive:  false,
		},
	})
	require.NoError(t, err)

	return lowID, highID
}

func TestAuthorize_Gate(t *testing.T) {
	env := newAdminEnv(t)

	assert.NoError(t, env.admin.Authorize(&models.Identity{IsAdmin: true}))
	assert.NoError(t, env.admin.Authorize(&models.Identity{IsDemo: true}))
	assert.NoError(t, env.admin.Authorize(&models.Identity{Email: "ops@incomiq.com"}))
	assert.ErrorIs(t, env.admin.Authorize(&models.Identity{Email: "user@gmail.com"}), common.ErrForbidden)
}

func TestAnonymize_StableDistinctOpaque(t *testing.T) {
	env := newAdminEnv(t)

	a := env.admin.anonymize("account-aaaa")
	b := env.admin.anonymize("account-bbbb")

	assert.Equal(t, a, env.admin.anonymize("account-aaaa"), "same account must map to the same pseudonym")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "USER_"))
	assert.NotContains(t, a, "account-aaaa")

	other := NewAdminService(env.manager, newTestLogger(t), "other-salt", nil)
	assert.NotEqual(t, a, other.anonymize("account-aaaa"), "pseudonyms must depend on the salt")
}

func TestDashboard_Report(t *testing.T) {
	env := newAdminEnv(t)
	lowID, _ := seedReportData(t, env)

	report, err := env.admin.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Summary.TotalUsers)
	assert.Equal(t, 2, report.Summary.ActiveUsers30d)
	assert.Equal(t, float64(321000), report.Summary.TotalIncome)
	assert.Equal(t, float64(180000), report.Summary.TotalExpenses)
	assert.Equal(t, float64(141000), report.Summary.TotalSavings)

	require.Len(t, report.LowIncomeAlerts, 1)
	alert := report.LowIncomeAlerts[0]
	assert.Equal(t, env.admin.anonymize(lowID), alert.UserID)
	assert.Equal(t, float64(7000), alert.AvgMonthlyIncome)
	assert.Equal(t, "high", alert.Severity)

	require.Len(t, report.LargeTransactions, 2)
	for _, tx := range report.LargeTransactions {
		assert.Greater(t, tx.Amount, float64(largeTransactionCutoff))
	}

	assert.Equal(t, map[string]int{"income_amount": 1, "daily_income": 1}, report.RuleUsage)
	assert.NotEmpty(t, report.IncomeTrends)
	assert.NotEmpty(t, report.Timestamp)
}

func TestLowIncomeAlerts_Report(t *testing.T) {
	env := newAdminEnv(t)
	lowID, _ := seedReportData(t, env)

	report, err := env.admin.LowIncomeAlerts(context.Background())
	require.NoError(t, err)

	// The high earner sits above the 20000 cutoff.
	require.Equal(t, 1, report.TotalAlerts)
	alert := report.Alerts[0]
	assert.Equal(t, env.admin.anonymize(lowID), alert.UserID)
	assert.Equal(t, "critical", alert.Status)
	assert.Equal(t, 2, alert.NumTransactions)
	assert.Equal(t, float64(9000), alert.IncomeSources["Swiggy Delivery"])
	assert.Contains(t, alert.Recommendation, "emergency fund")
}

func TestRuleAnalytics_Report(t *testing.T) {
	env := newAdminEnv(t)
	seedReportData(t, env)

	report, err := env.admin.RuleAnalytics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalRules)
	assert.Equal(t, 1, report.ActiveRules)
	assert.Equal(t, map[string]int{"percentage": 1, "fixed": 1}, report.RuleTypes)
	assert.Equal(t, map[string]int{
		"income_amount_greater_than": 1,
		"daily_income_greater_than":  1,
	}, report.ConditionTypes)
	assert.Equal(t, float64(1), report.AvgRulesPerUser)
}

func TestComplianceTransactions_Report(t *testing.T) {
	env := newAdminEnv(t)
	seedReportData(t, env)
	ctx := context.Background()

	report, err := env.admin.ComplianceTransactions(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, float64(largeTransactionCutoff), report.Threshold)
	require.Equal(t, 2, report.TotalFlagged)
	assert.Equal(t, float64(120000), report.Transactions[0].Amount, "largest first")
	assert.Equal(t, "Very large transaction - review required", report.Transactions[0].FlagReason)
	assert.Equal(t, "Large transaction", report.Transactions[1].FlagReason)

	strict, err := env.admin.ComplianceTransactions(ctx, 100000)
	require.NoError(t, err)
	require.Equal(t, 1, strict.TotalFlagged)
	assert.Equal(t, float64(100000), strict.Threshold)
}

func TestUsersOverview_Report(t *testing.T) {
	env := newAdminEnv(t)
	lowID, highID := seedReportData(t, env)

	report, err := env.admin.UsersOverview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalUsers)
	require.Len(t, report.Users, 2)

	byID := map[string]UserOverview{}
	for _, u := range report.Users {
		byID[u.UserID] = u
	}

	low := byID[env.admin.anonymize(lowID)]
	assert.Equal(t, float64(21000), low.TotalIncome)
	assert.Equal(t, 2, low.NumIncomes)
	assert.Zero(t, low.NumExpenses)

	high := byID[env.admin.anonymize(highID)]
	assert.Equal(t, float64(120000), high.Savings)
	assert.Equal(t, 2, high.NumRules)
}

func TestReports_UnreadableCollectionDegradesToEmpty(t *testing.T) {
	env := newAdminEnv(t)
	lowID, _ := seedReportData(t, env)

	path := filepath.Join(env.dir, lowID+"_incomes.json")
	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0o660))

	report, err := env.admin.Dashboard(context.Background())
	require.NoError(t, err, "one bad partition must not fail the report")

	assert.Equal(t, 2, report.Summary.TotalUsers)
	assert.Equal(t, float64(300000), report.Summary.TotalIncome, "the unreadable account counts as empty")
	assert.Empty(t, report.LowIncomeAlerts)
}
