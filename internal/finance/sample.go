package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fmmarmello/finAI/internal/models"
)

type sampleRow struct {
	key         string
	description string
	amount      string
	txType      models.TransactionType
	day         int
	category    string
}

var sampleRows = []sampleRow{
	{"1", "Salário", "5000", models.TransactionTypeIncome, 1, IncomeCategory},
	{"2", "Aluguel", "1500", models.TransactionTypeExpense, 5, "Moradia"},
	{"3", "Supermercado", "450", models.TransactionTypeExpense, 7, "Alimentação"},
	{"4", "Conta de Luz", "150", models.TransactionTypeExpense, 10, "Moradia"},
	{"5", "Netflix", "39.90", models.TransactionTypeExpense, 12, "Assinaturas & Serviços"},
	{"6", "Cinema", "60", models.TransactionTypeExpense, 15, "Lazer"},
	{"7", "Uber", "25.50", models.TransactionTypeExpense, 18, "Transporte"},
}

var sampleBudgets = []struct {
	category string
	amount   string
}{
	{"Alimentação", "800"},
	{"Transporte", "200"},
	{"Lazer", "300"},
	{"Moradia", "1800"},
}

// SampleTransactions возвращает демонстрационные операции за май 2024.
// Идентификаторы детерминированы от пользователя, повторный посев их не дублирует.
func SampleTransactions(userID uuid.UUID) []models.Transaction {
	out := make([]models.Transaction, 0, len(sampleRows))
	for _, row := range sampleRows {
		out = append(out, models.Transaction{
			ID:          uuid.NewSHA1(userID, []byte("sample-"+row.key)),
			UserID:      userID,
			Description: row.description,
			Amount:      decimal.RequireFromString(row.amount),
			Type:        row.txType,
			Date:        time.Date(2024, time.May, row.day, 0, 0, 0, 0, time.UTC),
			Category:    row.category,
			Source:      models.SourceSample,
			Status:      models.StatusSettled,
		})
	}
	return out
}

// SampleBudgets возвращает демонстрационные месячные лимиты.
func SampleBudgets(userID uuid.UUID) []models.Budget {
	out := make([]models.Budget, 0, len(sampleBudgets))
	for _, row := range sampleBudgets {
		out = append(out, models.Budget{
			UserID:   userID,
			Category: row.category,
			Amount:   decimal.RequireFromString(row.amount),
		})
	}
	return out
}
