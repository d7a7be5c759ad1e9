package finance

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/fmmarmello/finAI/internal/models"
)

const (
	// FallbackCategory получают строки из документов, пока пользователь не выберет категорию.
	FallbackCategory = "Outros"
	// IncomeCategory не предлагается для бюджетов.
	IncomeCategory = "Salário"

	maxCategoryLength = 50
)

// DefaultCategories выдаются новому пользователю.
var DefaultCategories = []string{
	"Alimentação",
	"Transporte",
	"Assinaturas & Serviços",
	"Moradia",
	"Lazer",
	"Saúde",
	"Compras",
	IncomeCategory,
	FallbackCategory,
}

var ErrInvalidCategory = errors.New("invalid category name")

// FoldCategory приводит название категории к форме для сравнения без учета регистра.
func FoldCategory(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// NormalizeCategoryName обрезает пробелы и проверяет длину названия.
func NormalizeCategoryName(name string) (string, error) {
	trimmed := strings.Join(strings.Fields(name), " ")
	if trimmed == "" || utf8.RuneCountInString(trimmed) > maxCategoryLength {
		return "", ErrInvalidCategory
	}
	return trimmed, nil
}

// HasCategory ищет название в списке без учета регистра.
func HasCategory(categories []string, name string) bool {
	_, ok := MatchCategory(categories, name)
	return ok
}

// MatchCategory возвращает название из списка в его сохраненном написании.
func MatchCategory(categories []string, name string) (string, bool) {
	key := FoldCategory(name)
	if key == "" {
		return "", false
	}
	for _, category := range categories {
		if FoldCategory(category) == key {
			return category, true
		}
	}
	return "", false
}

// CategoryNames извлекает названия в порядке сортировки.
func CategoryNames(categories []models.Category) []string {
	out := make([]string, 0, len(categories))
	for _, category := range categories {
		out = append(out, category.Name)
	}
	return out
}

// BudgetableCategories возвращает категории, для которых еще можно создать бюджет:
// без категории дохода и без уже занятых бюджетами.
func BudgetableCategories(categories []string, budgets []models.Budget) []string {
	taken := make(map[string]struct{}, len(budgets)+1)
	taken[FoldCategory(IncomeCategory)] = struct{}{}
	for _, budget := range budgets {
		taken[FoldCategory(budget.Category)] = struct{}{}
	}

	out := make([]string, 0, len(categories))
	for _, category := range categories {
		if _, ok := taken[FoldCategory(category)]; ok {
			continue
		}
		out = append(out, category)
	}
	return out
}
