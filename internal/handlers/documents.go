package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fmmarmello/finAI/internal/ai"
	"github.com/fmmarmello/finAI/internal/auth"
	"github.com/fmmarmello/finAI/internal/finance"
	"github.com/fmmarmello/finAI/internal/models"
	"github.com/fmmarmello/finAI/internal/notifications"
	"github.com/fmmarmello/finAI/internal/repository"
)

const documentField = "file"

type DocumentHandler struct {
	Service          *ai.Service
	Transactions     TransactionStore
	Notifier         Notifier
	Audit            AIAudit
	Clock            Clock
	Policy           finance.SignPolicy
	FallbackCategory string
	MaxUploadBytes   int64
}

// NewDocumentHandler создает обработчик загрузки выписок и чеков.
func NewDocumentHandler(service *ai.Service, transactions TransactionStore, notifier Notifier, audit AIAudit, clock Clock, cfg DocumentOptions) *DocumentHandler {
	return &DocumentHandler{
		Service:          service,
		Transactions:     transactions,
		Notifier:         notifier,
		Audit:            audit,
		Clock:            clock,
		Policy:           cfg.Policy,
		FallbackCategory: cfg.FallbackCategory,
		MaxUploadBytes:   cfg.MaxUploadBytes,
	}
}

type DocumentOptions struct {
	Policy           finance.SignPolicy
	FallbackCategory string
	MaxUploadBytes   int64
}

type DocumentResponse struct {
	Transactions []models.Transaction `json:"transactions"`
	Extracted    int                  `json:"extracted"`
	Skipped      int                  `json:"skipped"`
	Incomplete   bool                 `json:"incomplete,omitempty"`
}

type documentAudit struct {
	FileName string `json:"file_name"`
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// Upload извлекает операции из документа и сохраняет их. Рассрочка N из T
// разворачивается в записи N..T. Вставка идет по одной записи: при сбое
// в ответе остаются уже сохраненные и флаг incomplete.
func (h *DocumentHandler) Upload(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	header, err := c.FormFile(documentField)
	if err != nil {
		return badRequest(c, "file is required")
	}
	if h.MaxUploadBytes > 0 && header.Size > h.MaxUploadBytes {
		return errorJSON(c, http.StatusRequestEntityTooLarge, "file too large")
	}

	file, err := header.Open()
	if err != nil {
		return badRequest(c, "invalid file")
	}
	defer file.Close()

	data, err := readLimited(file, h.MaxUploadBytes)
	if err != nil {
		if errors.Is(err, errFileTooLarge) {
			return errorJSON(c, http.StatusRequestEntityTooLarge, "file too large")
		}
		return badRequest(c, "invalid file")
	}

	document, err := ai.DetectDocument(data)
	if err != nil {
		if errors.Is(err, ai.ErrUnsupportedDocument) {
			return errorJSON(c, http.StatusUnsupportedMediaType, err.Error())
		}
		return badRequest(c, "invalid file")
	}

	ctx := c.Request().Context()

	result, prompt, raw, err := h.Service.ExtractDocument(ctx, document)
	h.Audit.record(ctx, userID, repository.AIRequestDocument, prompt,
		documentAudit{FileName: header.Filename, MIMEType: document.MIMEType, Size: len(data)},
		result.Items, raw, err)
	if err != nil {
		return errorJSON(c, http.StatusBadGateway, "document extraction failed")
	}

	opts := finance.ExpandOptions{
		UserID:   userID,
		Today:    h.Clock.Today(),
		Policy:   h.Policy,
		Category: h.FallbackCategory,
	}

	pending := make([]models.Transaction, 0, len(result.Items))
	for _, item := range result.Items {
		pending = append(pending, finance.ExpandInstallments(item, opts)...)
	}

	created, err := h.Transactions.CreateMany(ctx, pending)
	response := DocumentResponse{
		Transactions: created,
		Extracted:    len(result.Items),
		Skipped:      result.Skipped,
	}
	if err != nil {
		slog.Error("document import stopped",
			slog.String("user_id", userID.String()),
			slog.Int("created", len(created)),
			slog.Int("total", len(pending)),
			slog.String("error", err.Error()),
		)
		if len(created) == 0 {
			return serverError(c)
		}
		response.Incomplete = true
	}

	if len(created) > 0 {
		notify(h.Notifier, userID, notifications.CollectionTransactions, notifications.ActionCreated, uuid.Nil)
	}

	return c.JSON(http.StatusCreated, response)
}

var errFileTooLarge = errors.New("file too large")

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errFileTooLarge
	}
	return data, nil
}
