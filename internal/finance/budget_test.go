package finance

import (
	"testing"
	"time"

	"github.com/fmmarmello/finAI/internal/models"
)

// TestTrackBudgetUnderCeiling проверяет остаток при расходе ниже лимита.
func TestTrackBudgetUnderCeiling(t *testing.T) {
	budget := models.Budget{Category: "Alimentação", Amount: dec("800")}

	status := TrackBudget(budget, sampleMonth(), 2024, time.May)

	if !status.Spent.Equal(dec("450")) {
		t.Fatalf("expected spent 450, got %s", status.Spent)
	}
	if !status.Remaining.Equal(dec("350")) {
		t.Fatalf("expected remaining 350, got %s", status.Remaining)
	}
	if status.OverBudget {
		t.Fatal("expected budget not to be exceeded")
	}
	if status.Progress != 56.25 {
		t.Fatalf("expected progress 56.25, got %v", status.Progress)
	}
}

// TestTrackBudgetOverCeiling проверяет отрицательный остаток и флаг превышения.
func TestTrackBudgetOverCeiling(t *testing.T) {
	budget := models.Budget{Category: "Alimentação", Amount: dec("800")}
	transactions := append(sampleMonth(),
		tx(models.TransactionTypeExpense, models.StatusSettled, "450", "alimentação", date(2024, time.May, 15)),
	)

	status := TrackBudget(budget, transactions, 2024, time.May)

	if !status.Spent.Equal(dec("900")) {
		t.Fatalf("expected spent 900, got %s", status.Spent)
	}
	if !status.Remaining.Equal(dec("-100")) {
		t.Fatalf("expected remaining -100, got %s", status.Remaining)
	}
	if !status.OverBudget {
		t.Fatal("expected budget to be exceeded")
	}
}

// TestTrackBudgetIgnoresPendingAndOtherMonths проверяет, что ожидающие и чужие месяцы не учитываются.
func TestTrackBudgetIgnoresPendingAndOtherMonths(t *testing.T) {
	budget := models.Budget{Category: "Lazer", Amount: dec("300")}

	status := TrackBudget(budget, sampleMonth(), 2024, time.May)
	if !status.Spent.IsZero() {
		t.Fatalf("expected nothing spent in May, got %s", status.Spent)
	}

	status = TrackBudget(budget, sampleMonth(), 2024, time.June)
	if !status.Spent.Equal(dec("70")) {
		t.Fatalf("expected 70 spent in June, got %s", status.Spent)
	}
}

// TestTrackBudgetDegenerateCeiling проверяет отсутствие деления на ноль.
func TestTrackBudgetDegenerateCeiling(t *testing.T) {
	status := TrackBudget(models.Budget{Category: "Moradia", Amount: dec("0")}, sampleMonth(), 2024, time.May)

	if !status.Remaining.Equal(dec("-150")) || !status.OverBudget {
		t.Fatalf("expected remaining -150 and over budget, got %+v", status)
	}
	if status.Progress != 100 {
		t.Fatalf("expected progress 100, got %v", status.Progress)
	}

	status = TrackBudget(models.Budget{Category: "Saúde", Amount: dec("-10")}, sampleMonth(), 2024, time.May)
	if status.Progress != 0 {
		t.Fatalf("expected progress 0 with nothing spent, got %v", status.Progress)
	}
}

// TestTrackBudgets проверяет расчет для списка бюджетов.
func TestTrackBudgets(t *testing.T) {
	budgets := []models.Budget{
		{Category: "Alimentação", Amount: dec("800")},
		{Category: "Moradia", Amount: dec("1800")},
	}

	statuses := TrackBudgets(budgets, sampleMonth(), 2024, time.May)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !statuses[1].Remaining.Equal(dec("1650")) {
		t.Fatalf("expected Moradia remaining 1650, got %s", statuses[1].Remaining)
	}
}
