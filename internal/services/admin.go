package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/incomiq/incomiq/internal/common"
	"github.com/incomiq/incomiq/internal/logging"
	"github.com/incomiq/incomiq/internal/models"
	"github.com/incomiq/incomiq/internal/repositories/repomanager"
)

const (
	activityWindowDays  = 30
	lowIncomeWindowDays = 90

	dashboardLowIncomeCutoff = 15000
	highSeverityCutoff       = 10000
	alertLowIncomeCutoff     = 20000

	largeTransactionCutoff = 50000
	reviewRequiredCutoff   = 100000

	dashboardAlertLimit       = 10
	dashboardTransactionLimit = 20
	alertEndpointLimit        = 20
	complianceLimit           = 50
	overviewLimit             = 50
	trendAccountLimit         = 10
	trendMonthLimit           = 6

	// scanConcurrency bounds the per-account fan-out when building reports.
	scanConcurrency = 4
)

// AdminService builds anonymized cross-account reports. It only ever reads.
type AdminService struct {
	repos       repomanager.RepositoryManager
	logger      logging.Logger
	anonSalt    []byte
	adminEmails map[string]bool

	// now is a seam for tests.
	now func() time.Time
}

// NewAdminService constructs an AdminService. adminEmails extends the admin
// gate beyond accounts flagged IsAdmin.
func NewAdminService(m repomanager.RepositoryManager, logger logging.Logger, anonSalt string, adminEmails []string) *AdminService {
	allowed := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		allowed[CanonicalEmail(email)] = true
	}
	return &AdminService{
		repos:       m,
		logger:      logger,
		anonSalt:    []byte(anonSalt),
		adminEmails: allowed,
		now:         time.Now,
	}
}

// Authorize checks the admin gate: flagged admins, the demo identity and
// allow-listed emails pass.
func (s *AdminService) Authorize(identity *models.Identity) error {
	if identity.IsAdmin || identity.IsDemo || s.adminEmails[identity.Email] {
		return nil
	}
	return common.ErrForbidden
}

// anonymize derives a stable pseudonym for an account id. HMAC keyed with
// the configured salt keeps the mapping stable per deployment while making
// the raw id unrecoverable from reports.
func (s *AdminService) anonymize(accountID string) string {
	mac := hmac.New(sha256.New, s.anonSalt)
	mac.Write([]byte(accountID))
	return "USER_" + hex.EncodeToString(mac.Sum(nil))[:12]
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// accountSnapshot is everything one report needs about one account.
type accountSnapshot struct {
	account  *models.Account
	incomes  []*models.Income
	expenses []*models.Expense
	rules    []*models.Rule
}

// gatherSnapshots loads every account's collections, fanning out with a
// bounded errgroup. A collection that fails to read degrades to empty so a
// single bad partition cannot take the whole report down.
func (s *AdminService) gatherSnapshots(ctx context.Context) ([]*accountSnapshot, error) {
	accountList, err := s.repos.Accounts().List(ctx)
	if err != nil {
		return nil, err
	}

	snapshots := make([]*accountSnapshot, len(accountList))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for i, account := range accountList {
		g.Go(func() error {
			snap := &accountSnapshot{account: account}

			docs := s.repos.Documents()
			var readErr error
			if snap.incomes, readErr = docs.Incomes().List(gctx, account.ID); readErr != nil {
				s.logger.Warn(gctx, "unreadable incomes, using empty", "account", account.ID, "error", readErr)
				snap.incomes = nil
			}
			if snap.expenses, readErr = docs.Expenses().List(gctx, account.ID); readErr != nil {
				s.logger.Warn(gctx, "unreadable expenses, using empty", "account", account.ID, "error", readErr)
				snap.expenses = nil
			}
			if snap.rules, readErr = docs.Rules().List(gctx, account.ID); readErr != nil {
				s.logger.Warn(gctx, "unreadable rules, using empty", "account", account.ID, "error", readErr)
				snap.rules = nil
			}

			snapshots[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// recentIncomes returns the incomes created or dated inside the trailing
// window.
func recentIncomes(incomes []*models.Income, cutoff time.Time) []*models.Income {
	cutoffDate := cutoff.Format("2006-01-02")
	var recent []*models.Income
	for _, inc := range incomes {
		if inc.CreatedAt.After(cutoff) || inc.Date > cutoffDate {
			recent = append(recent, inc)
		}
	}
	return recent
}

// LowIncomeAlert flags an account whose trailing 90-day average monthly
// income fell under a cutoff.
type LowIncomeAlert struct {
	UserID           string             `json:"user_id"`
	AvgMonthlyIncome float64            `json:"avg_monthly_income"`
	Period           string             `json:"period,omitempty"`
	Severity         string             `json:"severity,omitempty"`
	IncomeSources    map[string]float64 `json:"income_sources,omitempty"`
	NumTransactions  int                `json:"num_transactions,omitempty"`
	Status           string             `json:"status,omitempty"`
	Recommendation   string             `json:"recommendation,omitempty"`
}

// LargeTransaction is an expense big enough to surface in reports.
type LargeTransaction struct {
	UserID        string  `json:"user_id"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Amount        float64 `json:"amount"`
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	Date          string  `json:"date"`
	FlagReason    string  `json:"flag_reason,omitempty"`
}

// IncomeTrend groups one account's income by month.
type IncomeTrend struct {
	UserID      string             `json:"user_id"`
	MonthlyData map[string]float64 `json:"monthly_data"`
}

// DashboardSummary aggregates totals across every account.
type DashboardSummary struct {
	TotalUsers     int     `json:"total_users"`
	ActiveUsers30d int     `json:"active_users_30d"`
	TotalIncome    float64 `json:"total_income"`
	TotalExpenses  float64 `json:"total_expenses"`
	TotalSavings   float64 `json:"total_savings"`
}

// DashboardReport is the full admin dashboard payload.
type DashboardReport struct {
	Summary           DashboardSummary   `json:"summary"`
	IncomeTrends      []IncomeTrend      `json:"income_trends"`
	LowIncomeAlerts   []LowIncomeAlert   `json:"low_income_alerts"`
	LargeTransactions []LargeTransaction `json:"large_transactions"`
	RuleUsage         map[string]int     `json:"rule_usage"`
	Timestamp         string             `json:"timestamp"`
}

// Dashboard builds the cross-account dashboard report.
func (s *AdminService) Dashboard(ctx context.Context) (*DashboardReport, error) {
	snapshots, err := s.gatherSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	activityCutoff := now.AddDate(0, 0, -activityWindowDays)
	incomeCutoff := now.AddDate(0, 0, -lowIncomeWindowDays)

	report := &DashboardReport{
		RuleUsage: map[string]int{},
		Timestamp: now.Format(time.RFC3339),
	}
	report.Summary.TotalUsers = len(snapshots)

	for _, snap := range snapshots {
		anonID := s.anonymize(snap.account.ID)

		var incomeTotal, expenseTotal float64
		active := false
		for _, inc := range snap.incomes {
			incomeTotal += inc.Amount
			if inc.CreatedAt.After(activityCutoff) {
				active = true
			}
		}
		for _, exp := range snap.expenses {
			expenseTotal += exp.Amount
			if exp.CreatedAt.After(activityCutoff) {
				active = true
			}
		}
		report.Summary.TotalIncome += incomeTotal
		report.Summary.TotalExpenses += expenseTotal
		if active {
			report.Summary.ActiveUsers30d++
		}

		if recent := recentIncomes(snap.incomes, incomeCutoff); len(recent) > 0 {
			var sum float64
			for _, inc := range recent {
				sum += inc.Amount
			}
			avgMonthly := sum / 3
			if avgMonthly < dashboardLowIncomeCutoff {
				severity := "medium"
				if avgMonthly < highSeverityCutoff {
					severity = "high"
				}
				report.LowIncomeAlerts = append(report.LowIncomeAlerts, LowIncomeAlert{
					UserID:           anonID,
					AvgMonthlyIncome: round2(avgMonthly),
					Period:           "Last 3 months",
					Severity:         severity,
				})
			}
		}

		for _, exp := range snap.expenses {
			if exp.Amount > largeTransactionCutoff {
				report.LargeTransactions = append(report.LargeTransactions, LargeTransaction{
					UserID:      anonID,
					Amount:      exp.Amount,
					Category:    exp.Category,
					Date:        exp.Date,
					Description: truncate(exp.Description, 50),
				})
			}
		}

		for _, rule := range snap.rules {
			report.RuleUsage[rule.Condition.Field]++
		}
	}

	for _, snap := range snapshots[:min(len(snapshots), trendAccountLimit)] {
		monthly := map[string]float64{}
		for _, inc := range snap.incomes {
			month := inc.Date
			if month == "" {
				month = inc.CreatedAt.Format("2006-01-02")
			}
			if len(month) >= 7 {
				monthly[month[:7]] += inc.Amount
			}
		}
		if len(monthly) == 0 {
			continue
		}
		report.IncomeTrends = append(report.IncomeTrends, IncomeTrend{
			UserID:      s.anonymize(snap.account.ID),
			MonthlyData: lastMonths(monthly, trendMonthLimit),
		})
	}

	report.Summary.TotalIncome = round2(report.Summary.TotalIncome)
	report.Summary.TotalExpenses = round2(report.Summary.TotalExpenses)
	report.Summary.TotalSavings = round2(report.Summary.TotalIncome - report.Summary.TotalExpenses)
	report.LowIncomeAlerts = report.LowIncomeAlerts[:min(len(report.LowIncomeAlerts), dashboardAlertLimit)]
	report.LargeTransactions = report.LargeTransactions[:min(len(report.LargeTransactions), dashboardTransactionLimit)]

	return report, nil
}

// lastMonths keeps the n most recent entries of a YYYY-MM keyed map.
func lastMonths(monthly map[string]float64, n int) map[string]float64 {
	months := make([]string, 0, len(monthly))
	for month := range monthly {
		months = append(months, month)
	}
	sort.Strings(months)
	if len(months) > n {
		months = months[len(months)-n:]
	}
	kept := make(map[string]float64, len(months))
	for _, month := range months {
		kept[month] = monthly[month]
	}
	return kept
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// LowIncomeReport is the dedicated low-income alert payload.
type LowIncomeReport struct {
	TotalAlerts int              `json:"total_alerts"`
	Alerts      []LowIncomeAlert `json:"alerts"`
}

// LowIncomeAlerts builds the detailed low-income report with a wider cutoff
// than the dashboard.
func (s *AdminService) LowIncomeAlerts(ctx context.Context) (*LowIncomeReport, error) {
	snapshots, err := s.gatherSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().AddDate(0, 0, -lowIncomeWindowDays)

	var alerts []LowIncomeAlert
	for _, snap := range snapshots {
		recent := recentIncomes(snap.incomes, cutoff)
		if len(recent) == 0 {
			continue
		}

		var sum float64
		sources := map[string]float64{}
		for _, inc := range recent {
			sum += inc.Amount
			sources[inc.SourceName] += inc.Amount
		}
		avgMonthly := sum / 3
		if avgMonthly >= alertLowIncomeCutoff {
			continue
		}

		status := "warning"
		recommendation := "Monitor income stability"
		if avgMonthly < highSeverityCutoff {
			status = "critical"
			recommendation = "Consider enabling emergency fund alerts"
		}
		alerts = append(alerts, LowIncomeAlert{
			UserID:           s.anonymize(snap.account.ID),
			AvgMonthlyIncome: round2(avgMonthly),
			IncomeSources:    sources,
			NumTransactions:  len(recent),
			Status:           status,
			Recommendation:   recommendation,
		})
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].AvgMonthlyIncome < alerts[j].AvgMonthlyIncome
	})

	report := &LowIncomeReport{TotalAlerts: len(alerts)}
	report.Alerts = alerts[:min(len(alerts), alertEndpointLimit)]
	return report, nil
}

// RuleAnalyticsReport summarizes rule usage across accounts.
type RuleAnalyticsReport struct {
	TotalRules      int            `json:"total_rules"`
	ActiveRules     int            `json:"active_rules"`
	RuleTypes       map[string]int `json:"rule_types"`
	ConditionTypes  map[string]int `json:"condition_types"`
	AvgRulesPerUser float64        `json:"avg_rules_per_user"`
}

// RuleAnalytics builds the savings-rule usage report.
func (s *AdminService) RuleAnalytics(ctx context.Context) (*RuleAnalyticsReport, error) {
	snapshots, err := s.gatherSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	report := &RuleAnalyticsReport{
		RuleTypes:      map[string]int{},
		ConditionTypes: map[string]int{},
	}
	for _, snap := range snapshots {
		report.TotalRules += len(snap.rules)
		for _, rule := range snap.rules {
			if rule.IsActive {
				report.ActiveRules++
			}
			report.RuleTypes[rule.Action.Type]++
			report.ConditionTypes[rule.Condition.Field+"_"+rule.Condition.Operator]++
		}
	}
	report.AvgRulesPerUser = round2(float64(report.TotalRules) / math.Max(float64(len(snapshots)), 1))
	return report, nil
}

// ComplianceReport lists expenses at or above a threshold.
type ComplianceReport struct {
	TotalFlagged int                `json:"total_flagged"`
	Threshold    float64            `json:"threshold"`
	Transactions []LargeTransaction `json:"transactions"`
}

// ComplianceTransactions flags expenses at or above minAmount, largest
// first. A non-positive minAmount uses the default threshold.
func (s *AdminService) ComplianceTransactions(ctx context.Context, minAmount float64) (*ComplianceReport, error) {
	if minAmount <= 0 {
		minAmount = largeTransactionCutoff
	}

	snapshots, err := s.gatherSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	var flagged []LargeTransaction
	for _, snap := range snapshots {
		anonID := s.anonymize(snap.account.ID)
		for _, exp := range snap.expenses {
			if exp.Amount < minAmount {
				continue
			}
			reason := "Large transaction"
			if exp.Amount >= reviewRequiredCutoff {
				reason = "Very large transaction - review required"
			}
			flagged = append(flagged, LargeTransaction{
				UserID:        anonID,
				TransactionID: exp.ID,
				Amount:        exp.Amount,
				Category:      exp.Category,
				Description:   truncate(exp.Description, 100),
				Date:          exp.Date,
				FlagReason:    reason,
			})
		}
	}

	sort.Slice(flagged, func(i, j int) bool { return flagged[i].Amount > flagged[j].Amount })

	report := &ComplianceReport{
		TotalFlagged: len(flagged),
		Threshold:    minAmount,
	}
	report.Transactions = flagged[:min(len(flagged), complianceLimit)]
	return report, nil
}

// UserOverview summarizes one account without identifying it.
type UserOverview struct {
	UserID        string  `json:"user_id"`
	TotalIncome   float64 `json:"total_income"`
	TotalExpenses float64 `json:"total_expenses"`
	Savings       float64 `json:"savings"`
	NumIncomes    int     `json:"num_incomes"`
	NumExpenses   int     `json:"num_expenses"`
	NumRules      int     `json:"num_rules"`
	CreatedAt     string  `json:"created_at"`
}

// UsersOverviewReport is the anonymized per-account listing.
type UsersOverviewReport struct {
	TotalUsers int            `json:"total_users"`
	Users      []UserOverview `json:"users"`
}

// UsersOverview builds the anonymized account listing.
func (s *AdminService) UsersOverview(ctx context.Context) (*UsersOverviewReport, error) {
	snapshots, err := s.gatherSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	report := &UsersOverviewReport{TotalUsers: len(snapshots)}
	for _, snap := range snapshots[:min(len(snapshots), overviewLimit)] {
		var incomeTotal, expenseTotal float64
		for _, inc := range snap.incomes {
			incomeTotal += inc.Amount
		}
		for _, exp := range snap.expenses {
			expenseTotal += exp.Amount
		}
		report.Users = append(report.Users, UserOverview{
			UserID:        s.anonymize(snap.account.ID),
			TotalIncome:   round2(incomeTotal),
			TotalExpenses: round2(expenseTotal),
			Savings:       round2(incomeTotal - expenseTotal),
			NumIncomes:    len(snap.incomes),
			NumExpenses:   len(snap.expenses),
			NumRules:      len(snap.rules),
			CreatedAt:     snap.account.CreatedAt.Format(time.RFC3339),
		})
	}
	return report, nil
}
