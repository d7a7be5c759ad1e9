package finance

import (
	"reflect"
	"testing"

	"github.com/fmmarmello/finAI/internal/models"
)

// TestFoldCategory проверяет сравнение без учета регистра для не-ASCII названий.
func TestFoldCategory(t *testing.T) {
	if FoldCategory(" ALIMENTAÇÃO ") != FoldCategory("alimentação") {
		t.Fatal("expected folded names to match")
	}
	if FoldCategory("Saúde") == FoldCategory("Saude") {
		t.Fatal("accents must stay significant")
	}
}

// TestMatchCategory проверяет поиск в сохраненном написании.
func TestMatchCategory(t *testing.T) {
	got, ok := MatchCategory(DefaultCategories, "moradia")
	if !ok || got != "Moradia" {
		t.Fatalf("expected Moradia, got %q (ok=%v)", got, ok)
	}

	if HasCategory(DefaultCategories, "Viagem") {
		t.Fatal("unexpected match for unknown category")
	}
	if HasCategory(DefaultCategories, "  ") {
		t.Fatal("blank name must not match")
	}
}

// TestNormalizeCategoryName проверяет очистку и ограничения названия.
func TestNormalizeCategoryName(t *testing.T) {
	got, err := NormalizeCategoryName("  Pets   e  Vet ")
	if err != nil || got != "Pets e Vet" {
		t.Fatalf("unexpected result %q (%v)", got, err)
	}

	if _, err := NormalizeCategoryName("   "); err == nil {
		t.Fatal("expected error for blank name")
	}
}

// TestBudgetableCategories проверяет исключение дохода и занятых категорий.
func TestBudgetableCategories(t *testing.T) {
	budgets := []models.Budget{{Category: "alimentação"}, {Category: "Moradia"}}

	got := BudgetableCategories([]string{"Alimentação", "Transporte", "Moradia", "Salário", "Lazer"}, budgets)
	want := []string{"Transporte", "Lazer"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
