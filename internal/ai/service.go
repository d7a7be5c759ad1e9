package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/fmmarmello/finAI/internal/finance"
)

const (
	minDescriptionLength = 3
	systemPrompt         = "You are a personal finance assistant. Respond with JSON only, without extra text."
)

// FallbackAnswer возвращается пользователю, когда чат недоступен.
const FallbackAnswer = "Desculpe, não consegui processar sua solicitação no momento."

var (
	// ErrNotRequested означает, что запрос к модели не отправлялся.
	ErrNotRequested = errors.New("ai request not sent")
	ErrNoCategory   = errors.New("ai category does not match user categories")
)

type Service struct {
	client Client
}

// NewService создает сервис работы с AI-клиентом.
func NewService(client Client) *Service {
	return &Service{client: client}
}

// Categorize предлагает категорию из набора пользователя. Ответ модели
// привязывается к ближайшему названию из списка.
func (s *Service) Categorize(ctx context.Context, input CategorizeInput) (Suggestion, string, []byte, error) {
	if utf8.RuneCountInString(strings.TrimSpace(input.Description)) < minDescriptionLength || len(input.Categories) == 0 {
		return Suggestion{}, "", nil, ErrNotRequested
	}

	prompt, err := buildPrompt(`Select the most appropriate category for the transaction description from the list of available categories.

Requirements:
- Output JSON only, no code fences.
- The category must be copied exactly from "categories".
- Schema: {"category": string, "confidence": number between 0 and 1}`, input)
	if err != nil {
		return Suggestion{}, "", nil, err
	}

	var response categorizeResponse
	raw, err := s.ask(ctx, prompt, nil, &response)
	if err != nil {
		return Suggestion{}, prompt, raw, err
	}

	category, ok := snapCategory(response.Category, input.Categories)
	if !ok {
		return Suggestion{}, prompt, raw, fmt.Errorf("%w: %q", ErrNoCategory, response.Category)
	}

	return Suggestion{Category: category, Confidence: clampConfidence(response.Confidence)}, prompt, raw, nil
}

// AnalyzeSpending запрашивает анализ трат: тренды, аномалии, подписки и итог.
func (s *Service) AnalyzeSpending(ctx context.Context, input AnalyzeSpendingInput) (InsightsResponse, string, []byte, error) {
	prompt, err := buildPrompt(`You are a personal finance advisor. Analyze the transactions and provide insights on spending trends, anomalies and recurring subscriptions.

Requirements:
- Output JSON only, no code fences.
- Write every field in Brazilian Portuguese, amounts in the given currency.
- Schema:
{
  "trendAnalysis": string,
  "anomalyDetection": string,
  "recurringSubscriptions": string,
  "spendingSummary": string
}
- recurringSubscriptions lists the subscriptions found and their total monthly cost.`, input)
	if err != nil {
		return InsightsResponse{}, "", nil, err
	}

	var response InsightsResponse
	raw, err := s.ask(ctx, prompt, nil, &response)
	if err != nil {
		return InsightsResponse{}, prompt, raw, err
	}

	normalizeInsights(&response)
	if err := validateInsights(response); err != nil {
		return InsightsResponse{}, prompt, raw, err
	}

	return response, prompt, raw, nil
}

// Chat отвечает на вопрос пользователя по его транзакциям.
func (s *Service) Chat(ctx context.Context, input ChatInput) (ChatResponse, string, []byte, error) {
	if strings.TrimSpace(input.Query) == "" {
		return ChatResponse{}, "", nil, ErrNotRequested
	}

	prompt, err := buildPrompt(`Você é um assistente financeiro amigável do app FinAI. Responda à pergunta do usuário ("query") com base nas transações fornecidas. Seja conciso e direto.

Requisitos:
- Responda em português do Brasil.
- Saída apenas em JSON, sem blocos de código.
- Esquema: {"answer": string}`, input)
	if err != nil {
		return ChatResponse{}, "", nil, err
	}

	var response ChatResponse
	raw, err := s.ask(ctx, prompt, nil, &response)
	if err != nil {
		return ChatResponse{}, prompt, raw, err
	}

	response.Answer = strings.TrimSpace(response.Answer)
	if response.Answer == "" {
		return ChatResponse{}, prompt, raw, errors.New("answer is required")
	}

	return response, prompt, raw, nil
}

// ExtractDocument извлекает операции из выписки или чека. Строки без даты,
// описания или с нулевой суммой отбрасываются и учитываются в Skipped.
func (s *Service) ExtractDocument(ctx context.Context, document Attachment) (ExtractResult, string, []byte, error) {
	prompt := `You are an expert financial data extraction specialist. Extract every transaction from the attached document (receipt, credit card statement, etc.).

Requirements:
- Output JSON only, no code fences.
- Schema:
{
  "transactions": [
    {"date": "YYYY-MM-DD", "description": string, "amount": number, "installmentNumber": integer, "totalInstallments": integer}
  ]
}
- If a transaction is an installment (e.g. "Parcela 2/12", "2 of 12", "item 3/6"), put the current installment into installmentNumber and the total into totalInstallments. Otherwise omit both fields.`

	var response extractResponse
	raw, err := s.ask(ctx, prompt, []Attachment{document}, &response)
	if err != nil {
		return ExtractResult{}, prompt, raw, err
	}

	result := ExtractResult{Items: make([]finance.ExtractedItem, 0, len(response.Transactions))}
	for _, row := range response.Transactions {
		item, ok := toExtractedItem(row)
		if !ok {
			result.Skipped++
			continue
		}
		result.Items = append(result.Items, item)
	}

	return result, prompt, raw, nil
}

func (s *Service) ask(ctx context.Context, prompt string, attachments []Attachment, target any) ([]byte, error) {
	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt, Attachments: attachments},
	}

	content, raw, err := s.client.Chat(ctx, messages)
	if err != nil {
		return raw, err
	}

	if err := parseJSON(content, target); err != nil {
		return raw, err
	}

	return raw, nil
}

func buildPrompt(instructions string, input any) (string, error) {
	payload, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s\n\nInput:\n%s", instructions, string(payload)), nil
}

func parseJSON(input string, target any) error {
	payload := extractJSON(input)
	if payload == "" {
		return errors.New("ai response does not contain json")
	}

	return json.Unmarshal([]byte(payload), target)
}

func extractJSON(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimPrefix(strings.TrimSpace(trimmed), "json")
		trimmed = strings.TrimSpace(trimmed)
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}

	return trimmed[start : end+1]
}

// snapCategory ищет точное совпадение без учета регистра, затем ближайшее
// по расстоянию Левенштейна в пределах трети длины названия.
func snapCategory(answer string, categories []string) (string, bool) {
	if match, ok := finance.MatchCategory(categories, answer); ok {
		return match, true
	}

	key := finance.FoldCategory(answer)
	if key == "" {
		return "", false
	}

	best := ""
	bestDistance := -1
	for _, category := range categories {
		distance := levenshtein.ComputeDistance(key, finance.FoldCategory(category))
		if bestDistance == -1 || distance < bestDistance {
			best, bestDistance = category, distance
		}
	}

	limit := utf8.RuneCountInString(best) / 3
	if limit < 1 {
		limit = 1
	}
	if bestDistance < 0 || bestDistance > limit {
		return "", false
	}

	return best, true
}

func clampConfidence(value *float64) *float64 {
	if value == nil {
		return nil
	}
	clamped := *value
	if clamped < 0 {
		clamped = 0
	}
	if clamped > 1 {
		clamped = 1
	}
	return &clamped
}

func normalizeInsights(response *InsightsResponse) {
	response.TrendAnalysis = strings.TrimSpace(response.TrendAnalysis)
	response.AnomalyDetection = strings.TrimSpace(response.AnomalyDetection)
	response.RecurringSubscriptions = strings.TrimSpace(response.RecurringSubscriptions)
	response.SpendingSummary = strings.TrimSpace(response.SpendingSummary)
}

func validateInsights(response InsightsResponse) error {
	if response.TrendAnalysis == "" || response.AnomalyDetection == "" ||
		response.RecurringSubscriptions == "" || response.SpendingSummary == "" {
		return errors.New("insights response is incomplete")
	}
	return nil
}

func toExtractedItem(row extractedTransaction) (finance.ExtractedItem, bool) {
	date, err := finance.ParseDate(strings.TrimSpace(row.Date))
	if err != nil {
		return finance.ExtractedItem{}, false
	}

	description := strings.TrimSpace(row.Description)
	if description == "" || row.Amount.IsZero() {
		return finance.ExtractedItem{}, false
	}

	return finance.ExtractedItem{
		Date:              date,
		Description:       description,
		Amount:            row.Amount,
		InstallmentNumber: row.InstallmentNumber,
		TotalInstallments: row.TotalInstallments,
	}, true
}
