package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse - тело любого ответа с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, ErrorResponse{Error: message})
}

func badRequest(c echo.Context, message string) error {
	return errorJSON(c, http.StatusBadRequest, message)
}

func unauthorized(c echo.Context) error {
	return errorJSON(c, http.StatusUnauthorized, "invalid credentials")
}

func forbidden(c echo.Context) error {
	return errorJSON(c, http.StatusForbidden, "access denied")
}

func notFound(c echo.Context, message string) error {
	return errorJSON(c, http.StatusNotFound, message)
}

func conflict(c echo.Context, message string) error {
	return errorJSON(c, http.StatusConflict, message)
}

func serverError(c echo.Context) error {
	return errorJSON(c, http.StatusInternalServerError, "internal server error")
}
