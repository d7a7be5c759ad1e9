package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fmmarmello/finAI/internal/auth"
	"github.com/fmmarmello/finAI/internal/models"
	"github.com/fmmarmello/finAI/internal/repository"
)

type AuthHandler struct {
	Users           *repository.UserRepository
	Tokens          *repository.RefreshTokenRepository
	TokenManager    *auth.TokenManager
	Sessions        SessionCloser
	DefaultCurrency string
}

// SessionCloser закрывает живые SSE-подписки пользователя.
type SessionCloser interface {
	CloseUser(userID uuid.UUID) int
}

// NewAuthHandler создает обработчик авторизации.
func NewAuthHandler(users *repository.UserRepository, tokens *repository.RefreshTokenRepository, manager *auth.TokenManager, sessions SessionCloser, defaultCurrency string) *AuthHandler {
	return &AuthHandler{
		Users:           users,
		Tokens:          tokens,
		TokenManager:    manager,
		Sessions:        sessions,
		DefaultCurrency: defaultCurrency,
	}
}

type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Currency *string `json:"currency" validate:"omitempty,iso4217"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	All          bool   `json:"all"`
}

type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Currency *string `json:"currency" validate:"omitempty,iso4217"`
}

type AuthUser struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Name     *string   `json:"name,omitempty"`
	Currency string    `json:"currency"`
}

type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         AuthUser `json:"user"`
}

type UserResponse struct {
	User AuthUser `json:"user"`
}

// Register регистрирует пользователя, создает ему стандартные категории и выдает токены.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	passwordHash, err := auth.HashPassword(req.Password)
	switch {
	case errors.Is(err, auth.ErrPasswordTooLong):
		return badRequest(c, "password too long")
	case err != nil:
		return serverError(c)
	}

	currency := h.DefaultCurrency
	if req.Currency != nil {
		currency = *normalizeCurrency(req.Currency)
	}

	ctx := c.Request().Context()
	user, err := h.Users.Create(ctx, normalizeEmail(req.Email), passwordHash, normalizeName(req.Name), currency)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict(c, "user already exists")
		}
		return serverError(c)
	}

	session, err := h.startSession(ctx, user, nil)
	if err != nil {
		return serverError(c)
	}
	return c.JSON(http.StatusCreated, session)
}

// Login проверяет пароль и открывает новую сессию.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	ctx := c.Request().Context()
	user, err := h.Users.GetByEmail(ctx, normalizeEmail(req.Email))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return unauthorized(c)
	case err != nil:
		return serverError(c)
	}

	if auth.ComparePassword(user.PasswordHash, req.Password) != nil {
		return unauthorized(c)
	}

	session, err := h.startSession(ctx, user, nil)
	if err != nil {
		return serverError(c)
	}
	return c.JSON(http.StatusOK, session)
}

// Refresh обменивает действующий refresh-токен на новую пару, старый отзывается.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	ctx := c.Request().Context()
	stored, err := h.activeRefreshToken(ctx, req.RefreshToken)
	switch {
	case errors.Is(err, errInvalidSession):
		return unauthorized(c)
	case err != nil:
		return serverError(c)
	}

	user, err := h.Users.GetByID(ctx, stored.UserID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return unauthorized(c)
	case err != nil:
		return serverError(c)
	}

	session, err := h.startSession(ctx, user, &stored.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// токен успели отозвать параллельным запросом
		return unauthorized(c)
	case err != nil:
		return serverError(c)
	}
	return c.JSON(http.StatusOK, session)
}

// Logout отзывает refresh-токен (или все токены пользователя при all=true)
// и закрывает открытые потоки событий.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	userID, refreshID, err := h.TokenManager.RefreshIdentity(req.RefreshToken)
	if err != nil {
		return unauthorized(c)
	}

	ctx := c.Request().Context()
	if req.All {
		_, err = h.Tokens.RevokeAllForUser(ctx, userID)
	} else {
		err = h.Tokens.Revoke(ctx, refreshID, nil)
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return serverError(c)
	}

	if h.Sessions != nil {
		h.Sessions.CloseUser(userID)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me возвращает профиль текущего пользователя.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := h.Users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return userError(c, err)
	}
	return c.JSON(http.StatusOK, UserResponse{User: toAuthUser(user)})
}

// UpdateProfile меняет имя и валюту пользователя.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}
	if req.Name == nil && req.Currency == nil {
		return badRequest(c, "nothing to update")
	}

	user, err := h.Users.UpdateProfile(c.Request().Context(), userID, trimmedPtr(req.Name), normalizeCurrency(req.Currency))
	if err != nil {
		return userError(c, err)
	}
	return c.JSON(http.StatusOK, UserResponse{User: toAuthUser(user)})
}

var errInvalidSession = errors.New("invalid session")

// activeRefreshToken находит сохраненный токен и проверяет подпись, срок,
// отзыв и совпадение хэша.
func (h *AuthHandler) activeRefreshToken(ctx context.Context, raw string) (models.RefreshToken, error) {
	userID, refreshID, err := h.TokenManager.RefreshIdentity(raw)
	if err != nil {
		return models.RefreshToken{}, errInvalidSession
	}

	stored, err := h.Tokens.GetByID(ctx, refreshID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.RefreshToken{}, errInvalidSession
	}
	if err != nil {
		return models.RefreshToken{}, err
	}

	valid := stored.RevokedAt == nil &&
		time.Now().Before(stored.ExpiresAt) &&
		stored.UserID == userID &&
		auth.CompareTokenHash(stored.TokenHash, raw)
	if !valid {
		return models.RefreshToken{}, errInvalidSession
	}
	return stored, nil
}

// startSession выдает пару токенов. С previous старый refresh-токен
// отзывается в той же транзакции, что и сохраняется новый.
func (h *AuthHandler) startSession(ctx context.Context, user models.User, previous *uuid.UUID) (AuthResponse, error) {
	refreshID := uuid.New()
	pair, err := h.TokenManager.NewTokenPair(user.ID, refreshID)
	if err != nil {
		return AuthResponse{}, err
	}

	token := models.RefreshToken{
		ID:        refreshID,
		UserID:    user.ID,
		TokenHash: auth.HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
	}
	if previous != nil {
		err = h.Tokens.Rotate(ctx, *previous, token)
	} else {
		err = h.Tokens.Create(ctx, token)
	}
	if err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         toAuthUser(user),
	}, nil
}

func userError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "user not found")
	}
	return serverError(c)
}

func toAuthUser(user models.User) AuthUser {
	return AuthUser{ID: user.ID, Email: user.Email, Name: user.Name, Currency: user.Currency}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeName превращает пустое имя в nil.
func normalizeName(name *string) *string {
	name = trimmedPtr(name)
	if name == nil || *name == "" {
		return nil
	}
	return name
}

func normalizeCurrency(currency *string) *string {
	if currency == nil {
		return nil
	}
	upper := strings.ToUpper(strings.TrimSpace(*currency))
	return &upper
}
