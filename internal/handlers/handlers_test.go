package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fmmarmello/finAI/internal/ai"
	"github.com/fmmarmello/finAI/internal/finance"
	"github.com/fmmarmello/finAI/internal/models"
	"github.com/fmmarmello/finAI/internal/notifications"
	"github.com/fmmarmello/finAI/internal/repository"
)

// TestRenameCategoryKeepsTransactionLabels проверяет, что переименование не трогает транзакции и бюджеты.
func TestRenameCategoryKeepsTransactionLabels(t *testing.T) {
	userID := uuid.New()
	categories := newMemCategories(userID, "Alimentação", "Transporte")
	stored := models.Transaction{
		ID:       uuid.New(),
		UserID:   userID,
		Category: "Alimentação",
		Type:     models.TransactionTypeExpense,
		Status:   models.StatusSettled,
		Amount:   decimal.NewFromInt(45),
		Date:     day(2024, time.May, 10),
	}
	transactions := newMemTransactions(stored)
	budgets := &memBudgets{items: []models.Budget{{ID: uuid.New(), UserID: userID, Category: "Alimentação", Amount: decimal.NewFromInt(800)}}}
	notifier := &recordingNotifier{}

	h := NewCategoryHandler(categories, notifier)
	c, rec := newContext(http.MethodPatch, "/api/v1/categories", `{"name":"  Comida "}`, userID)
	if err := h.Rename(withID(c, categories.items[0].ID)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if categories.items[0].Name != "Comida" {
		t.Fatalf("expected renamed category, got %q", categories.items[0].Name)
	}
	if got := transactions.items[stored.ID].Category; got != "Alimentação" {
		t.Fatalf("expected transaction label to stay, got %q", got)
	}
	if transactions.mutations != 0 {
		t.Fatalf("expected no transaction writes, got %d", transactions.mutations)
	}
	if budgets.items[0].Category != "Alimentação" {
		t.Fatalf("expected budget label to stay, got %q", budgets.items[0].Category)
	}
	if len(notifier.changes) != 1 || notifier.changes[0].collection != notifications.CollectionCategories {
		t.Fatalf("unexpected notifications %+v", notifier.changes)
	}

	// Новые транзакции принимают только текущее название.
	txHandler := NewTransactionHandler(transactions, categories, nil, fixedClock)
	c, rec = newContext(http.MethodPost, "/api/v1/transactions",
		`{"description":"Mercado","amount":10,"type":"expense","date":"2024-05-14","category":"Alimentação"}`, userID)
	if err := txHandler.Create(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for old category name, got %d", rec.Code)
	}
}

// TestRenameCategoryConflict проверяет запрет дубликата без учета регистра.
func TestRenameCategoryConflict(t *testing.T) {
	userID := uuid.New()
	categories := newMemCategories(userID, "Alimentação", "Transporte")

	h := NewCategoryHandler(categories, nil)
	c, rec := newContext(http.MethodPatch, "/api/v1/categories", `{"name":"ALIMENTAÇÃO"}`, userID)
	if err := h.Rename(withID(c, categories.items[1].ID)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if categories.items[1].Name != "Transporte" {
		t.Fatalf("expected name unchanged, got %q", categories.items[1].Name)
	}
}

// TestCreateTransactionFutureIsPending проверяет статус pending для будущей даты.
func TestCreateTransactionFutureIsPending(t *testing.T) {
	userID := uuid.New()
	transactions := newMemTransactions()
	notifier := &recordingNotifier{}

	h := NewTransactionHandler(transactions, newMemCategories(userID, "Alimentação", "Moradia"), notifier, fixedClock)
	c, rec := newContext(http.MethodPost, "/api/v1/transactions",
		`{"description":" Aluguel ","amount":"1800.00","type":"expense","date":"2024-06-01","category":"moradia","is_recurring":true}`, userID)
	if err := h.Create(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created models.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Status != models.StatusPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}
	if created.Category != "Moradia" || created.Description != "Aluguel" {
		t.Fatalf("unexpected normalization %q / %q", created.Category, created.Description)
	}
	if !created.IsRecurring || created.Source != models.SourceManual {
		t.Fatalf("unexpected flags %+v", created)
	}
	if len(notifier.changes) != 1 || notifier.changes[0].action != notifications.ActionCreated {
		t.Fatalf("unexpected notifications %+v", notifier.changes)
	}
}

// TestCreateIncomeNeverRecurring проверяет сброс флага повтора для дохода.
func TestCreateIncomeNeverRecurring(t *testing.T) {
	userID := uuid.New()
	transactions := newMemTransactions()

	h := NewTransactionHandler(transactions, newMemCategories(userID, "Salário"), nil, fixedClock)
	c, rec := newContext(http.MethodPost, "/api/v1/transactions",
		`{"description":"Salário","amount":5000,"type":"income","date":"2024-05-15","category":"Salário","is_recurring":true}`, userID)
	if err := h.Create(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	for _, tx := range transactions.items {
		if tx.IsRecurring {
			t.Fatal("expected income to be non-recurring")
		}
		if tx.Status != models.StatusSettled {
			t.Fatalf("expected settled for today, got %s", tx.Status)
		}
	}
}

// TestCreateTransactionValidation проверяет отказ для неизвестной категории и неположительной суммы.
func TestCreateTransactionValidation(t *testing.T) {
	userID := uuid.New()
	transactions := newMemTransactions()
	h := NewTransactionHandler(transactions, newMemCategories(userID, "Lazer"), nil, fixedClock)

	bodies := []string{
		`{"description":"Cinema","amount":30,"type":"expense","date":"2024-05-10","category":"Viagem"}`,
		`{"description":"Cinema","amount":0,"type":"expense","date":"2024-05-10","category":"Lazer"}`,
		`{"description":"Cinema","amount":-5,"type":"expense","date":"2024-05-10","category":"Lazer"}`,
		`{"description":"Cinema","amount":30,"type":"expense","date":"10/05/2024","category":"Lazer"}`,
		`{"description":"Cinema","amount":30,"type":"transfer","date":"2024-05-10","category":"Lazer"}`,
	}

	for _, body := range bodies {
		c, rec := newContext(http.MethodPost, "/api/v1/transactions", body, userID)
		if err := h.Create(c); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rec.Code)
		}
	}

	if transactions.mutations != 0 {
		t.Fatalf("expected nothing stored, got %d writes", transactions.mutations)
	}
}

// TestSettleRecurringExpense проверяет создание записи на следующий месяц и отказ при повторном проведении.
func TestSettleRecurringExpense(t *testing.T) {
	userID := uuid.New()
	pending := models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Description: "Academia",
		Amount:      decimal.NewFromInt(120),
		Type:        models.TransactionTypeExpense,
		Date:        day(2024, time.January, 31),
		Category:    "Saúde",
		Source:      models.SourceManual,
		Status:      models.StatusPending,
		IsRecurring: true,
	}
	transactions := newMemTransactions(pending)
	notifier := &recordingNotifier{}
	h := NewTransactionHandler(transactions, newMemCategories(userID, "Saúde"), notifier, fixedClock)

	c, rec := newContext(http.MethodPost, "/api/v1/transactions/settle", "", userID)
	if err := h.Settle(withID(c, pending.ID)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result repository.SettleResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Settled.Status != models.StatusSettled {
		t.Fatalf("expected settled, got %s", result.Settled.Status)
	}
	if result.FollowUp == nil {
		t.Fatal("expected follow-up transaction")
	}
	if got := result.FollowUp.Date.Format(finance.DateLayout); got != "2024-02-29" {
		t.Fatalf("expected follow-up on 2024-02-29, got %s", got)
	}
	if len(notifier.changes) != 2 {
		t.Fatalf("expected settled and created events, got %+v", notifier.changes)
	}

	c, rec = newContext(http.MethodPost, "/api/v1/transactions/settle", "", userID)
	if err := h.Settle(withID(c, pending.ID)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second settle, got %d", rec.Code)
	}
	if len(transactions.items) != 2 {
		t.Fatalf("expected exactly one follow-up, got %d transactions", len(transactions.items))
	}
}

// TestBudgetCreateRules проверяет запрет бюджета для дохода и дубликата категории.
func TestBudgetCreateRules(t *testing.T) {
	userID := uuid.New()
	budgets := &memBudgets{}
	h := NewBudgetHandler(budgets, newMemTransactions(), newMemCategories(userID, "Lazer", "Salário"), nil, fixedClock)

	cases := []struct {
		body string
		code int
	}{
		{`{"category":"lazer","amount":300}`, http.StatusCreated},
		{`{"category":"LAZER","amount":100}`, http.StatusConflict},
		{`{"category":"Salário","amount":100}`, http.StatusBadRequest},
		{`{"category":"Viagem","amount":100}`, http.StatusBadRequest},
		{`{"category":"Lazer","amount":0}`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		c, rec := newContext(http.MethodPost, "/api/v1/budgets", tc.body, userID)
		if err := h.Create(c); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.Code != tc.code {
			t.Fatalf("expected %d for %s, got %d", tc.code, tc.body, rec.Code)
		}
	}

	if len(budgets.items) != 1 || budgets.items[0].Category != "Lazer" {
		t.Fatalf("unexpected budgets %+v", budgets.items)
	}
}

// TestCategorizeFailureGivesEmptySuggestion проверяет пустую подсказку со статусом 200 при сбое модели.
func TestCategorizeFailureGivesEmptySuggestion(t *testing.T) {
	userID := uuid.New()
	h := NewAIHandler(ai.NewService(failingClient{}), newMemTransactions(), newMemCategories(userID, "Transporte"),
		&memInsights{}, nil, nil, AIAudit{}, fixedClock, "BRL")

	c, rec := newContext(http.MethodPost, "/api/v1/ai/categorize", `{"description":"Uber para o trabalho"}`, userID)
	if err := h.Categorize(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var suggestion ai.Suggestion
	if err := json.Unmarshal(rec.Body.Bytes(), &suggestion); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if suggestion.Category != "" || suggestion.Confidence != nil {
		t.Fatalf("expected empty suggestion, got %+v", suggestion)
	}
}

// TestChatFallbackAnswer проверяет стандартный ответ при сбое модели.
func TestChatFallbackAnswer(t *testing.T) {
	userID := uuid.New()
	h := NewAIHandler(ai.NewService(failingClient{}), newMemTransactions(), newMemCategories(userID),
		&memInsights{}, nil, nil, AIAudit{}, fixedClock, "BRL")

	c, rec := newContext(http.MethodPost, "/api/v1/ai/chat", `{"query":"Quanto gastei com lazer?"}`, userID)
	if err := h.Chat(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var answer ai.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rec.Code != http.StatusOK || answer.Answer != ai.FallbackAnswer {
		t.Fatalf("expected fallback answer, got %d %+v", rec.Code, answer)
	}
}

// TestAnalyzeSpendingNeedsSettledTransactions проверяет порог в четыре проведенные транзакции.
func TestAnalyzeSpendingNeedsSettledTransactions(t *testing.T) {
	userID := uuid.New()
	txs := make([]models.Transaction, 0, 4)
	for i := 1; i <= 4; i++ {
		status := models.StatusSettled
		if i == 4 {
			status = models.StatusPending
		}
		txs = append(txs, models.Transaction{
			ID:       uuid.New(),
			UserID:   userID,
			Amount:   decimal.NewFromInt(int64(10 * i)),
			Type:     models.TransactionTypeExpense,
			Date:     day(2024, time.May, i),
			Category: "Lazer",
			Status:   status,
		})
	}

	insights := &memInsights{}
	h := NewAIHandler(ai.NewService(failingClient{}), newMemTransactions(txs...), newMemCategories(userID),
		insights, nil, nil, AIAudit{}, fixedClock, "BRL")

	c, rec := newContext(http.MethodPost, "/api/v1/ai/insights?year=2024&month=5", "", userID)
	if err := h.AnalyzeSpending(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if len(insights.saved) != 0 {
		t.Fatal("expected no insight to be stored")
	}
}

// TestApplyTemplate проверяет создание повторяющегося расхода по шаблону.
func TestApplyTemplate(t *testing.T) {
	userID := uuid.New()
	template := models.ExpenseTemplate{ID: uuid.New(), UserID: userID, Name: "Academia", Category: "Saúde"}
	templates := &memTemplates{items: []models.ExpenseTemplate{template}}
	transactions := newMemTransactions()
	h := NewTemplateHandler(templates, transactions, newMemCategories(userID, "Lazer"), nil, fixedClock)

	c, rec := newContext(http.MethodPost, "/api/v1/templates/apply", `{"amount":"120"}`, userID)
	if err := h.Apply(withID(c, template.ID)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created models.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Category != "Saúde" || created.Description != "Academia" {
		t.Fatalf("unexpected transaction %+v", created)
	}
	if !created.IsRecurring || created.Source != models.SourceTemplate || created.Type != models.TransactionTypeExpense {
		t.Fatalf("unexpected flags %+v", created)
	}
	if created.TemplateID == nil || *created.TemplateID != template.ID {
		t.Fatal("expected template link")
	}
	if created.Status != models.StatusSettled || created.Date.Format(finance.DateLayout) != "2024-05-15" {
		t.Fatalf("expected settled today, got %s on %s", created.Status, created.Date.Format(finance.DateLayout))
	}

	c, rec = newContext(http.MethodPost, "/api/v1/templates/apply", `{"amount":"120","date":"2024-06-10"}`, userID)
	if err := h.Apply(withID(c, template.ID)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Status != models.StatusPending {
		t.Fatalf("expected pending for future date, got %s", created.Status)
	}

	c, rec = newContext(http.MethodPost, "/api/v1/templates/apply", `{"amount":"0"}`, userID)
	if err := h.Apply(withID(c, template.ID)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero amount, got %d", rec.Code)
	}

	c, rec = newContext(http.MethodPost, "/api/v1/templates/apply", `{"amount":"10"}`, userID)
	if err := h.Apply(withID(c, uuid.New())); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown template, got %d", rec.Code)
	}
	if len(transactions.items) != 2 {
		t.Fatalf("expected two transactions, got %d", len(transactions.items))
	}
}

// TestParseFilterByMonth проверяет построение интервала по year/month.
func TestParseFilterByMonth(t *testing.T) {
	h := NewTransactionHandler(newMemTransactions(), nil, nil, fixedClock)

	c, _ := newContext(http.MethodGet, "/api/v1/transactions?year=2024&month=2", "", uuid.New())
	filter, err := h.parseFilter(c)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if filter.From == nil || filter.To == nil {
		t.Fatal("expected bounded filter")
	}
	if filter.From.Format(finance.DateLayout) != "2024-02-01" || filter.To.Format(finance.DateLayout) != "2024-02-29" {
		t.Fatalf("unexpected range %s..%s", filter.From, filter.To)
	}

	c, _ = newContext(http.MethodGet, "/api/v1/transactions?from=2024-03-10&to=2024-03-01", "", uuid.New())
	if _, err := h.parseFilter(c); err == nil {
		t.Fatal("expected error for inverted range")
	}

	c, _ = newContext(http.MethodGet, "/api/v1/transactions?month=13", "", uuid.New())
	if _, err := h.parseFilter(c); err == nil {
		t.Fatal("expected error for invalid month")
	}
}

// TestParseMonthDefaultsToToday проверяет текущий месяц по умолчанию.
func TestParseMonthDefaultsToToday(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/api/v1/summary", "", uuid.New())

	year, month, err := parseMonth(c, fixedClock.Today())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if year != 2024 || month != time.May {
		t.Fatalf("expected 2024-05, got %d-%d", year, month)
	}
}

// TestWriteTransactionsCSV проверяет формат выгрузки.
func TestWriteTransactionsCSV(t *testing.T) {
	total, number := 3, 2
	tx := models.Transaction{
		ID:                uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Description:       "Notebook, parcela",
		Amount:            decimal.RequireFromString("1250.5"),
		Type:              models.TransactionTypeExpense,
		Date:              day(2024, time.May, 3),
		Category:          "Compras",
		Source:            models.SourceUpload,
		Status:            models.StatusPending,
		InstallmentNumber: &number,
		TotalInstallments: &total,
		CreatedAt:         time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	if err := writeTransactionsCSV(&buf, []models.Transaction{tx}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,date,description") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	want := `11111111-1111-1111-1111-111111111111,2024-05-03,"Notebook, parcela",expense,Compras,1250.50,pending,upload,false,2,3,2024-05-01T10:00:00Z`
	if lines[1] != want {
		t.Fatalf("unexpected row\n got: %s\nwant: %s", lines[1], want)
	}
}
