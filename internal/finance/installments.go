package finance

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fmmarmello/finAI/internal/models"
)

// SignPolicy определяет, как знак извлеченной суммы превращается в тип транзакции.
type SignPolicy string

const (
	// SignPositiveExpense: неотрицательная сумма это расход, отрицательная это доход.
	SignPositiveExpense SignPolicy = "positive-expense"
	// SignNegativeExpense: отрицательная сумма это расход, остальные это доход.
	SignNegativeExpense SignPolicy = "negative-expense"
)

// ParseSignPolicy разбирает имя политики знака. Пустая строка дает политику по умолчанию.
func ParseSignPolicy(value string) (SignPolicy, error) {
	switch SignPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", SignPositiveExpense:
		return SignPositiveExpense, nil
	case SignNegativeExpense:
		return SignNegativeExpense, nil
	default:
		return "", fmt.Errorf("unknown sign policy %q", value)
	}
}

// TypeOf возвращает тип транзакции для суммы со знаком.
func (p SignPolicy) TypeOf(amount decimal.Decimal) models.TransactionType {
	if p == SignNegativeExpense {
		if amount.IsNegative() {
			return models.TransactionTypeExpense
		}
		return models.TransactionTypeIncome
	}

	if amount.IsNegative() {
		return models.TransactionTypeIncome
	}
	return models.TransactionTypeExpense
}

// ExtractedItem это строка, извлеченная из загруженного документа.
type ExtractedItem struct {
	Date              time.Time       `json:"date"`
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"`
	InstallmentNumber *int            `json:"installment_number,omitempty"`
	TotalInstallments *int            `json:"total_installments,omitempty"`
}

// IsInstallment сообщает, что строка описывает одну из нескольких частей покупки.
func (i ExtractedItem) IsInstallment() bool {
	if i.InstallmentNumber == nil || i.TotalInstallments == nil {
		return false
	}
	n, total := *i.InstallmentNumber, *i.TotalInstallments
	return total > 1 && n >= 1 && n <= total
}

type ExpandOptions struct {
	UserID   uuid.UUID
	Today    time.Time
	Policy   SignPolicy
	Category string
}

// StatusFor возвращает pending для будущей даты и settled для сегодняшней или прошедшей.
func StatusFor(date, today time.Time) models.TransactionStatus {
	if Day(date).After(Day(today)) {
		return models.StatusPending
	}
	return models.StatusSettled
}

// ExpandInstallments превращает извлеченную строку в транзакции. Для рассрочки N из T
// создаются записи N..T: текущая с исходной датой и будущие со сдвигом на (i-N) месяцев,
// всегда в статусе pending. Строка без рассрочки дает одну запись. Нулевая сумма
// не дает ни одной записи.
func ExpandInstallments(item ExtractedItem, opts ExpandOptions) []models.Transaction {
	if item.Amount.IsZero() {
		return nil
	}

	category := strings.TrimSpace(opts.Category)
	if category == "" {
		category = FallbackCategory
	}

	base := models.Transaction{
		UserID:      opts.UserID,
		Description: item.Description,
		Amount:      item.Amount.Abs(),
		Type:        opts.Policy.TypeOf(item.Amount),
		Date:        Day(item.Date),
		Category:    category,
		Source:      models.SourceUpload,
		Status:      StatusFor(item.Date, opts.Today),
	}

	if !item.IsInstallment() {
		base.ID = uuid.New()
		return []models.Transaction{base}
	}

	n, total := *item.InstallmentNumber, *item.TotalInstallments
	stem := stripInstallmentCounter(item.Description, n, total)

	out := make([]models.Transaction, 0, total-n+1)
	for i := n; i <= total; i++ {
		tx := base
		tx.ID = uuid.New()
		tx.Description = installmentDescription(stem, i, total)
		tx.InstallmentNumber = intPtr(i)
		tx.TotalInstallments = intPtr(total)
		if i > n {
			tx.Date = AddMonths(base.Date, i-n)
			tx.Status = models.StatusPending
		}
		out = append(out, tx)
	}

	return out
}

// stripInstallmentCounter убирает из описания все счетчики вида N/T, "N of T" и
// "N de T" именно этой части. Другие пары чисел, например даты, остаются.
func stripInstallmentCounter(description string, number, total int) string {
	counter := regexp.MustCompile(fmt.Sprintf(`(?i)\b0*%d\s*(?:/|of|de)\s*0*%d\b`, number, total))
	return strings.Join(strings.Fields(counter.ReplaceAllString(description, " ")), " ")
}

func installmentDescription(stem string, number, total int) string {
	suffix := fmt.Sprintf("(%d/%d)", number, total)
	if stem == "" {
		return suffix
	}
	return stem + " " + suffix
}

func intPtr(value int) *int {
	return &value
}
