package ai

import (
	"github.com/shopspring/decimal"

	"github.com/fmmarmello/finAI/internal/finance"
	"github.com/fmmarmello/finAI/internal/models"
)

// TransactionSnapshot is the part of a transaction the model sees.
type TransactionSnapshot struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Type        string          `json:"type"`
}

type CategorizeInput struct {
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
}

type categorizeResponse struct {
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Suggestion is a category from the user's set. Empty Category means no suggestion.
type Suggestion struct {
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type AnalyzeSpendingInput struct {
	Transactions []TransactionSnapshot `json:"transactions"`
	Currency     string                `json:"currency"`
}

type InsightsResponse struct {
	TrendAnalysis          string `json:"trendAnalysis"`
	AnomalyDetection       string `json:"anomalyDetection"`
	RecurringSubscriptions string `json:"recurringSubscriptions"`
	SpendingSummary        string `json:"spendingSummary"`
}

type ChatInput struct {
	Query        string                `json:"query"`
	Transactions []TransactionSnapshot `json:"transactions"`
	Currency     string                `json:"currency"`
}

type ChatResponse struct {
	Answer string `json:"answer"`
}

type extractResponse struct {
	Transactions []extractedTransaction `json:"transactions"`
}

type extractedTransaction struct {
	Date              string          `json:"date"`
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"`
	InstallmentNumber *int            `json:"installmentNumber,omitempty"`
	TotalInstallments *int            `json:"totalInstallments,omitempty"`
}

// ExtractResult holds the usable rows of a document and how many were dropped.
type ExtractResult struct {
	Items   []finance.ExtractedItem
	Skipped int
}

// Snapshots converts stored transactions into model input.
func Snapshots(transactions []models.Transaction) []TransactionSnapshot {
	out := make([]TransactionSnapshot, 0, len(transactions))
	for _, tx := range transactions {
		out = append(out, TransactionSnapshot{
			Date:        tx.Date.Format(finance.DateLayout),
			Description: tx.Description,
			Amount:      tx.Amount,
			Category:    tx.Category,
			Type:        string(tx.Type),
		})
	}
	return out
}
