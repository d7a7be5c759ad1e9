package finance

import (
	"time"

	"github.com/google/uuid"

	"github.com/fmmarmello/finAI/internal/models"
)

// NeedsFollowUp сообщает, что проведение транзакции порождает следующий экземпляр:
// это ожидающий повторяющийся расход.
func NeedsFollowUp(tx models.Transaction) bool {
	return tx.IsExpense() && tx.IsRecurring && tx.Status == models.StatusPending
}

// NextInstance строит ожидающую транзакцию на месяц позже исходной.
// Описание, сумма, категория, тип, источник, шаблон и флаг повтора копируются.
func NextInstance(tx models.Transaction) models.Transaction {
	next := tx
	next.ID = uuid.New()
	next.Date = AddMonths(tx.Date, 1)
	next.Status = models.StatusPending
	next.ConfidenceScore = nil
	next.InstallmentNumber = nil
	next.TotalInstallments = nil
	next.CreatedAt = time.Time{}
	next.UpdatedAt = time.Time{}
	return next
}
