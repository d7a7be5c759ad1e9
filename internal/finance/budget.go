package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fmmarmello/finAI/internal/models"
)

var hundred = decimal.NewFromInt(100)

// BudgetStatus описывает расход бюджета категории за месяц.
type BudgetStatus struct {
	BudgetID   uuid.UUID       `json:"budget_id"`
	Category   string          `json:"category"`
	Ceiling    decimal.Decimal `json:"ceiling"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	OverBudget bool            `json:"over_budget"`
	Progress   float64         `json:"progress"`
}

// TrackBudget считает потраченное по категории бюджета за указанный месяц.
// В расчет идут только проведенные расходы. Нулевой или отрицательный лимит
// не отвергается, прогресс в этом случае равен 0 или 100.
func TrackBudget(budget models.Budget, transactions []models.Transaction, year int, month time.Month) BudgetStatus {
	r := MonthRange(year, month)
	key := FoldCategory(budget.Category)

	spent := decimal.Zero
	for _, tx := range transactions {
		if !tx.IsSettled() || !tx.IsExpense() || !r.Contains(tx.Date) {
			continue
		}
		if FoldCategory(tx.Category) != key {
			continue
		}
		spent = spent.Add(tx.Amount)
	}

	remaining := budget.Amount.Sub(spent)
	return BudgetStatus{
		BudgetID:   budget.ID,
		Category:   budget.Category,
		Ceiling:    budget.Amount,
		Spent:      spent,
		Remaining:  remaining,
		OverBudget: remaining.IsNegative(),
		Progress:   progress(spent, budget.Amount),
	}
}

// TrackBudgets применяет TrackBudget к каждому бюджету.
func TrackBudgets(budgets []models.Budget, transactions []models.Transaction, year int, month time.Month) []BudgetStatus {
	out := make([]BudgetStatus, 0, len(budgets))
	for _, budget := range budgets {
		out = append(out, TrackBudget(budget, transactions, year, month))
	}
	return out
}

func progress(spent, ceiling decimal.Decimal) float64 {
	if !ceiling.IsPositive() {
		if spent.IsPositive() {
			return 100
		}
		return 0
	}

	value, _ := spent.Mul(hundred).Div(ceiling).Round(2).Float64()
	return value
}
