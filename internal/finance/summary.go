package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fmmarmello/finAI/internal/models"
)

// Summary содержит итоги по проведенным транзакциям за период.
type Summary struct {
	Income     decimal.Decimal            `json:"income"`
	Expense    decimal.Decimal            `json:"expense"`
	Balance    decimal.Decimal            `json:"balance"`
	ByCategory map[string]decimal.Decimal `json:"by_category"`
	Count      int                        `json:"count"`
}

// MonthSummary связывает месяц с его итогами.
type MonthSummary struct {
	Month   time.Time `json:"month"`
	Summary Summary   `json:"summary"`
}

// Summarize считает доходы, расходы, баланс и расходы по категориям.
// Учитываются только проведенные транзакции внутри интервала.
func Summarize(transactions []models.Transaction, r Range) Summary {
	summary := Summary{
		Income:     decimal.Zero,
		Expense:    decimal.Zero,
		ByCategory: make(map[string]decimal.Decimal),
	}

	for _, tx := range transactions {
		if !tx.IsSettled() || !r.Contains(tx.Date) {
			continue
		}

		switch tx.Type {
		case models.TransactionTypeIncome:
			summary.Income = summary.Income.Add(tx.Amount)
		case models.TransactionTypeExpense:
			summary.Expense = summary.Expense.Add(tx.Amount)
			summary.ByCategory[tx.Category] = summary.ByCategory[tx.Category].Add(tx.Amount)
		default:
			continue
		}
		summary.Count++
	}

	summary.Balance = summary.Income.Sub(summary.Expense)
	return summary
}

// SettledIn возвращает проведенные транзакции, попавшие в интервал.
func SettledIn(transactions []models.Transaction, r Range) []models.Transaction {
	out := make([]models.Transaction, 0)
	for _, tx := range transactions {
		if tx.IsSettled() && r.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out
}

// MonthlyTrend считает итоги за months месяцев, заканчивая месяцем end.
// Результат упорядочен от старого месяца к новому.
func MonthlyTrend(transactions []models.Transaction, end time.Time, months int) []MonthSummary {
	if months <= 0 {
		return []MonthSummary{}
	}

	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]MonthSummary, 0, months)
	for i := months - 1; i >= 0; i-- {
		month := AddMonths(last, -i)
		out = append(out, MonthSummary{
			Month:   month,
			Summary: Summarize(transactions, MonthRange(month.Year(), month.Month())),
		})
	}

	return out
}
