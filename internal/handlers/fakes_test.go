package handlers

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/fmmarmello/finAI/internal/ai"
	"github.com/fmmarmello/finAI/internal/auth"
	"github.com/fmmarmello/finAI/internal/finance"
	"github.com/fmmarmello/finAI/internal/models"
	"github.com/fmmarmello/finAI/internal/notifications"
	"github.com/fmmarmello/finAI/internal/repository"
)

var fixedClock = Clock{
	Location: time.UTC,
	Now:      func() time.Time { return time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC) },
}

type testValidator struct {
	v *validator.Validate
}

func newTestValidator() *testValidator {
	v := validator.New()
	_ = v.RegisterValidation("yyyymmdd", func(fl validator.FieldLevel) bool {
		_, err := finance.ParseDate(fl.Field().String())
		return err == nil
	})
	return &testValidator{v: v}
}

func (tv *testValidator) Validate(i interface{}) error {
	return tv.v.Struct(i)
}

func newContext(method, target, body string, userID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = newTestValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	c := e.NewContext(req, rec)
	c.Set(auth.ContextUserIDKey, userID)
	return c, rec
}

func withID(c echo.Context, id uuid.UUID) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	return c
}

type memTransactions struct {
	items     map[uuid.UUID]models.Transaction
	mutations int
	// failAfter >= 0 ограничивает число успешных Create.
	failAfter int
}

func newMemTransactions(txs ...models.Transaction) *memTransactions {
	store := &memTransactions{items: make(map[uuid.UUID]models.Transaction), failAfter: -1}
	for _, tx := range txs {
		store.items[tx.ID] = tx
	}
	return store
}

func (m *memTransactions) List(_ context.Context, userID uuid.UUID, filter repository.TransactionFilter) ([]models.Transaction, error) {
	out := make([]models.Transaction, 0)
	for _, tx := range m.items {
		if tx.UserID != userID {
			continue
		}
		if filter.From != nil && tx.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.Date.After(*filter.To) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (m *memTransactions) GetByID(_ context.Context, userID, id uuid.UUID) (models.Transaction, error) {
	tx, ok := m.items[id]
	if !ok || tx.UserID != userID {
		return models.Transaction{}, repository.ErrNotFound
	}
	return tx, nil
}

var errStoreDown = errors.New("store down")

func (m *memTransactions) Create(_ context.Context, tx models.Transaction) (models.Transaction, error) {
	if m.failAfter >= 0 && m.mutations >= m.failAfter {
		return models.Transaction{}, errStoreDown
	}
	m.mutations++
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	m.items[tx.ID] = tx
	return tx, nil
}

func (m *memTransactions) CreateMany(ctx context.Context, transactions []models.Transaction) ([]models.Transaction, error) {
	created := make([]models.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		saved, err := m.Create(ctx, tx)
		if err != nil {
			return created, err
		}
		created = append(created, saved)
	}
	return created, nil
}

func (m *memTransactions) Update(_ context.Context, userID, id uuid.UUID, patch repository.TransactionPatch) (models.Transaction, error) {
	m.mutations++
	tx, ok := m.items[id]
	if !ok || tx.UserID != userID {
		return models.Transaction{}, repository.ErrNotFound
	}
	if patch.Category != nil {
		tx.Category = *patch.Category
	}
	if patch.Description != nil {
		tx.Description = *patch.Description
	}
	m.items[id] = tx
	return tx, nil
}

func (m *memTransactions) Delete(_ context.Context, userID, id uuid.UUID) error {
	m.mutations++
	tx, ok := m.items[id]
	if !ok || tx.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memTransactions) Settle(ctx context.Context, userID, id uuid.UUID) (repository.SettleResult, error) {
	tx, ok := m.items[id]
	if !ok || tx.UserID != userID {
		return repository.SettleResult{}, repository.ErrNotFound
	}
	if tx.IsSettled() {
		return repository.SettleResult{}, repository.ErrConflict
	}

	m.mutations++
	result := repository.SettleResult{}
	if finance.NeedsFollowUp(tx) {
		next, _ := m.Create(ctx, finance.NextInstance(tx))
		result.FollowUp = &next
	}

	tx.Status = models.StatusSettled
	m.items[id] = tx
	result.Settled = tx
	return result, nil
}

type memCategories struct {
	items []models.Category
}

func newMemCategories(userID uuid.UUID, names ...string) *memCategories {
	store := &memCategories{}
	for i, name := range names {
		store.items = append(store.items, models.Category{ID: uuid.New(), UserID: userID, Name: name, SortOrder: i})
	}
	return store
}

func (m *memCategories) List(_ context.Context, userID uuid.UUID) ([]models.Category, error) {
	out := make([]models.Category, 0, len(m.items))
	for _, category := range m.items {
		if category.UserID == userID {
			out = append(out, category)
		}
	}
	return out, nil
}

func (m *memCategories) Names(ctx context.Context, userID uuid.UUID) ([]string, error) {
	categories, _ := m.List(ctx, userID)
	return finance.CategoryNames(categories), nil
}

func (m *memCategories) Add(ctx context.Context, userID uuid.UUID, name string) (models.Category, error) {
	names, _ := m.Names(ctx, userID)
	if finance.HasCategory(names, name) {
		return models.Category{}, repository.ErrConflict
	}
	category := models.Category{ID: uuid.New(), UserID: userID, Name: name, SortOrder: len(m.items)}
	m.items = append(m.items, category)
	return category, nil
}

func (m *memCategories) Rename(_ context.Context, userID, id uuid.UUID, name string) (models.Category, error) {
	index := -1
	for i, category := range m.items {
		if category.UserID != userID {
			continue
		}
		if category.ID == id {
			index = i
			continue
		}
		if finance.FoldCategory(category.Name) == finance.FoldCategory(name) {
			return models.Category{}, repository.ErrConflict
		}
	}
	if index < 0 {
		return models.Category{}, repository.ErrNotFound
	}
	m.items[index].Name = name
	return m.items[index], nil
}

func (m *memCategories) Delete(_ context.Context, userID, id uuid.UUID) error {
	for i, category := range m.items {
		if category.ID == id && category.UserID == userID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memCategories) Reorder(_ context.Context, _ uuid.UUID, orderedIDs []uuid.UUID) error {
	if len(orderedIDs) != len(m.items) {
		return repository.ErrInvalid
	}
	for order, id := range orderedIDs {
		for i := range m.items {
			if m.items[i].ID == id {
				m.items[i].SortOrder = order
			}
		}
	}
	return nil
}

type memBudgets struct {
	items []models.Budget
}

func (m *memBudgets) List(_ context.Context, userID uuid.UUID) ([]models.Budget, error) {
	out := make([]models.Budget, 0, len(m.items))
	for _, budget := range m.items {
		if budget.UserID == userID {
			out = append(out, budget)
		}
	}
	return out, nil
}

func (m *memBudgets) Create(_ context.Context, userID uuid.UUID, category string, amount decimal.Decimal) (models.Budget, error) {
	for _, budget := range m.items {
		if budget.UserID == userID && finance.FoldCategory(budget.Category) == finance.FoldCategory(category) {
			return models.Budget{}, repository.ErrConflict
		}
	}
	budget := models.Budget{ID: uuid.New(), UserID: userID, Category: category, Amount: amount}
	m.items = append(m.items, budget)
	return budget, nil
}

func (m *memBudgets) Update(_ context.Context, userID, id uuid.UUID, amount decimal.Decimal) (models.Budget, error) {
	for i, budget := range m.items {
		if budget.ID == id && budget.UserID == userID {
			m.items[i].Amount = amount
			return m.items[i], nil
		}
	}
	return models.Budget{}, repository.ErrNotFound
}

func (m *memBudgets) Delete(_ context.Context, userID, id uuid.UUID) error {
	for i, budget := range m.items {
		if budget.ID == id && budget.UserID == userID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type memTemplates struct {
	items []models.ExpenseTemplate
}

func (m *memTemplates) List(_ context.Context, userID uuid.UUID) ([]models.ExpenseTemplate, error) {
	out := make([]models.ExpenseTemplate, 0, len(m.items))
	for _, template := range m.items {
		if template.UserID == userID {
			out = append(out, template)
		}
	}
	return out, nil
}

func (m *memTemplates) GetByID(_ context.Context, userID, id uuid.UUID) (models.ExpenseTemplate, error) {
	for _, template := range m.items {
		if template.ID == id && template.UserID == userID {
			return template, nil
		}
	}
	return models.ExpenseTemplate{}, repository.ErrNotFound
}

func (m *memTemplates) Create(_ context.Context, userID uuid.UUID, name, category string) (models.ExpenseTemplate, error) {
	template := models.ExpenseTemplate{ID: uuid.New(), UserID: userID, Name: name, Category: category}
	m.items = append(m.items, template)
	return template, nil
}

func (m *memTemplates) Update(_ context.Context, userID, id uuid.UUID, name, category *string) (models.ExpenseTemplate, error) {
	for i, template := range m.items {
		if template.ID != id || template.UserID != userID {
			continue
		}
		if name != nil {
			m.items[i].Name = *name
		}
		if category != nil {
			m.items[i].Category = *category
		}
		return m.items[i], nil
	}
	return models.ExpenseTemplate{}, repository.ErrNotFound
}

func (m *memTemplates) Delete(_ context.Context, userID, id uuid.UUID) error {
	for i, template := range m.items {
		if template.ID == id && template.UserID == userID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type memInsights struct {
	saved []models.Insight
}

func (m *memInsights) Upsert(_ context.Context, insight models.Insight) (models.Insight, error) {
	insight.ID = uuid.New()
	m.saved = append(m.saved, insight)
	return insight, nil
}

func (m *memInsights) Get(_ context.Context, userID uuid.UUID, period time.Time) (models.Insight, error) {
	for _, insight := range m.saved {
		if insight.UserID == userID && insight.Period.Equal(period) {
			return insight, nil
		}
	}
	return models.Insight{}, repository.ErrNotFound
}

type recordedChange struct {
	collection notifications.Collection
	action     string
}

type recordingNotifier struct {
	changes []recordedChange
}

func (r *recordingNotifier) Changed(_ uuid.UUID, collection notifications.Collection, action string, _ uuid.UUID) {
	r.changes = append(r.changes, recordedChange{collection: collection, action: action})
}

// scriptedClient отвечает заранее заданным текстом и запоминает сообщения.
type scriptedClient struct {
	reply    string
	messages []ai.Message
}

func (s *scriptedClient) Chat(_ context.Context, messages []ai.Message) (string, []byte, error) {
	s.messages = messages
	return s.reply, []byte(s.reply), nil
}

type failingClient struct{}

func (failingClient) Chat(context.Context, []ai.Message) (string, []byte, error) {
	return "", nil, errors.New("provider unavailable")
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}
