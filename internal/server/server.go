package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/fmmarmello/finAI/internal/ai"
	"github.com/fmmarmello/finAI/internal/auth"
	"github.com/fmmarmello/finAI/internal/config"
	"github.com/fmmarmello/finAI/internal/handlers"
	"github.com/fmmarmello/finAI/internal/notifications"
	"github.com/fmmarmello/finAI/internal/repository"
)

// multipartOverhead оставляет место под заголовки multipart сверх лимита файла.
const multipartOverhead = 1 << 20

// New собирает HTTP-сервер Echo с роутами и зависимостями.
func New(cfg config.Config, logger *slog.Logger, db *pgxpool.Pool, hub *notifications.Hub) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}
	if hub == nil {
		hub = notifications.NewHub()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	clock := handlers.Clock{Location: cfg.Finance.Location}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	insightRepo := repository.NewInsightRepository(db)
	aiRepo := repository.NewAIRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	aiService := ai.NewService(newAIClient(cfg.AI))
	audit := handlers.AIAudit{Log: aiRepo, Provider: cfg.AI.Provider, Model: cfg.AI.Model}

	set := handlerSet{
		auth:         handlers.NewAuthHandler(userRepo, tokenRepo, tokenManager, hub, cfg.Finance.Currency),
		transactions: handlers.NewTransactionHandler(transactionRepo, categoryRepo, hub, clock),
		budgets:      handlers.NewBudgetHandler(budgetRepo, transactionRepo, categoryRepo, hub, clock),
		categories:   handlers.NewCategoryHandler(categoryRepo, hub),
		templates:    handlers.NewTemplateHandler(templateRepo, transactionRepo, categoryRepo, hub, clock),
		stats:        handlers.NewStatsHandler(transactionRepo, budgetRepo, clock),
		ai:           handlers.NewAIHandler(aiService, transactionRepo, categoryRepo, insightRepo, userRepo, hub, audit, clock, cfg.Finance.Currency),
		documents: handlers.NewDocumentHandler(aiService, transactionRepo, hub, audit, clock, handlers.DocumentOptions{
			Policy:           cfg.Finance.SignPolicy,
			FallbackCategory: cfg.Finance.FallbackCategory,
			MaxUploadBytes:   cfg.Finance.MaxUploadBytes,
		}),
		seed: handlers.NewSeedHandler(func(ctx context.Context, userID uuid.UUID) (repository.SeedResult, error) {
			return repository.SeedSampleData(ctx, db, userID)
		}, hub),
		notifications: handlers.NewNotificationHandler(hub, handlers.StoreSnapshots{
			Transactions: transactionRepo,
			Budgets:      budgetRepo,
			Categories:   categoryRepo,
			Templates:    templateRepo,
			Insights:     insightRepo,
			Clock:        clock,
		}),
		admin:  handlers.NewAdminHandler(adminRepo),
		health: handlers.Health(db),
	}

	registerRoutes(e, set, routeMiddleware{
		auth:            auth.JWTMiddleware(tokenManager),
		admin:           handlers.AdminMiddleware(userRepo, cfg.Admin.Emails),
		authRateLimiter: authRateLimiter(cfg.Auth),
		aiRateLimiter:   aiRateLimiter(cfg.AI),
		uploadLimit:     middleware.BodyLimit(fmt.Sprintf("%d", cfg.Finance.MaxUploadBytes+multipartOverhead)),
	})

	return e
}

func newAIClient(cfg config.AIConfig) ai.Client {
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		return ai.NewGeminiClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.MaxOutputTokens)
	default:
		return ai.NewGroqClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.MaxOutputTokens)
	}
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// requestLogger пишет одну запись на запрос; 5xx уходят уровнем error.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			attrs := make([]slog.Attr, 0, 8)
			attrs = append(attrs,
				slog.String("request_id", v.RequestID),
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			)
			if userID, ok := auth.UserIDFromContext(c); ok {
				attrs = append(attrs, slog.Any("user_id", userID))
			}
			if v.Error != nil {
				attrs = append(attrs, slog.Any("error", v.Error))
			}

			logger.LogAttrs(c.Request().Context(), level, "request completed", attrs...)
			return nil
		},
	})
}

func authRateLimiter(cfg config.AuthConfig) echo.MiddlewareFunc {
	return rateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
}

func aiRateLimiter(cfg config.AIConfig) echo.MiddlewareFunc {
	return rateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
}

func rateLimiter(perMinute, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60.0),
		Burst:     burst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiter(store)
}
