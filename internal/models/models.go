package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

type TransactionStatus string

type TransactionSource string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"

	StatusPending TransactionStatus = "pending"
	StatusSettled TransactionStatus = "settled"

	SourceManual   TransactionSource = "manual"
	SourceUpload   TransactionSource = "upload"
	SourceSample   TransactionSource = "sample"
	SourceTemplate TransactionSource = "template"
)

// Valid сообщает, что тип транзакции известен.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Valid сообщает, что статус транзакции известен.
func (s TransactionStatus) Valid() bool {
	return s == StatusPending || s == StatusSettled
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         *string   `json:"name,omitempty"`
	Currency     string    `json:"currency"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Transaction хранит одну операцию пользователя. Знак суммы задается полем Type,
// Amount всегда положителен.
type Transaction struct {
	ID                uuid.UUID         `json:"id"`
	UserID            uuid.UUID         `json:"user_id"`
	Description       string            `json:"description"`
	Amount            decimal.Decimal   `json:"amount"`
	Type              TransactionType   `json:"type"`
	Date              time.Time         `json:"date"`
	Category          string            `json:"category"`
	Source            TransactionSource `json:"source"`
	Status            TransactionStatus `json:"status"`
	IsRecurring       bool              `json:"is_recurring"`
	InstallmentNumber *int              `json:"installment_number,omitempty"`
	TotalInstallments *int              `json:"total_installments,omitempty"`
	ConfidenceScore   *float64          `json:"confidence_score,omitempty"`
	TemplateID        *uuid.UUID        `json:"template_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// DateLayout задает формат календарной даты без времени.
const DateLayout = "2006-01-02"

// transactionJSON подменяет дату строкой YYYY-MM-DD.
type transactionJSON struct {
	*transactionFields
	Date string `json:"date"`
}

type transactionFields Transaction

// MarshalJSON пишет дату операции без времени.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		transactionFields: (*transactionFields)(&t),
		Date:              t.Date.Format(DateLayout),
	})
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	aux := transactionJSON{transactionFields: (*transactionFields)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		t.Date = time.Time{}
		return nil
	}

	date, err := time.Parse(DateLayout, aux.Date)
	if err != nil {
		return err
	}
	t.Date = date
	return nil
}

// IsSettled сообщает, что транзакция проведена.
func (t Transaction) IsSettled() bool {
	return t.Status == StatusSettled
}

// IsExpense сообщает, что транзакция является расходом.
func (t Transaction) IsExpense() bool {
	return t.Type == TransactionTypeExpense
}

type Budget struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Category struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

type ExpenseTemplate struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Insight хранит последний AI-анализ расходов за месяц.
type Insight struct {
	ID                     uuid.UUID `json:"id"`
	UserID                 uuid.UUID `json:"user_id"`
	Period                 time.Time `json:"period"`
	TrendAnalysis          string    `json:"trend_analysis"`
	AnomalyDetection       string    `json:"anomaly_detection"`
	RecurringSubscriptions string    `json:"recurring_subscriptions"`
	SpendingSummary        string    `json:"spending_summary"`
	Currency               string    `json:"currency"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

type RefreshToken struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy *uuid.UUID `json:"replaced_by,omitempty"`
}
