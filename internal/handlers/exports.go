package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fmmarmello/finAI/internal/auth"
	"github.com/fmmarmello/finAI/internal/finance"
	"github.com/fmmarmello/finAI/internal/models"
)

const timeLayout = time.RFC3339

var transactionCSVHeader = []string{
	"id",
	"date",
	"description",
	"type",
	"category",
	"amount",
	"status",
	"source",
	"is_recurring",
	"installment_number",
	"total_installments",
	"created_at",
}

// ExportCSV выгружает транзакции в CSV с теми же фильтрами, что и List.
func (h *TransactionHandler) ExportCSV(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	filter, err := h.parseFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	transactions, err := h.Transactions.List(c.Request().Context(), userID, filter)
	if err != nil {
		return serverError(c)
	}

	var buf bytes.Buffer
	if err := writeTransactionsCSV(&buf, transactions); err != nil {
		return serverError(c)
	}

	filename := "transactions-" + h.Clock.Today().Format(finance.DateLayout) + ".csv"
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func writeTransactionsCSV(buf *bytes.Buffer, transactions []models.Transaction) error {
	writer := csv.NewWriter(buf)
	if err := writer.Write(transactionCSVHeader); err != nil {
		return err
	}

	for _, tx := range transactions {
		record := []string{
			tx.ID.String(),
			tx.Date.Format(finance.DateLayout),
			tx.Description,
			string(tx.Type),
			tx.Category,
			tx.Amount.StringFixed(2),
			string(tx.Status),
			string(tx.Source),
			strconv.FormatBool(tx.IsRecurring),
			formatOptionalInt(tx.InstallmentNumber),
			formatOptionalInt(tx.TotalInstallments),
			tx.CreatedAt.UTC().Format(timeLayout),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatOptionalInt(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}
