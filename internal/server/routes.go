package server

import (
	"github.com/labstack/echo/v4"

	"github.com/fmmarmello/finAI/internal/handlers"
)

type handlerSet struct {
	auth          *handlers.AuthHandler
	transactions  *handlers.TransactionHandler
	budgets       *handlers.BudgetHandler
	categories    *handlers.CategoryHandler
	templates     *handlers.TemplateHandler
	stats         *handlers.StatsHandler
	ai            *handlers.AIHandler
	documents     *handlers.DocumentHandler
	seed          *handlers.SeedHandler
	notifications *handlers.NotificationHandler
	admin         *handlers.AdminHandler
	health        echo.HandlerFunc
}

type routeMiddleware struct {
	auth            echo.MiddlewareFunc
	admin           echo.MiddlewareFunc
	authRateLimiter echo.MiddlewareFunc
	aiRateLimiter   echo.MiddlewareFunc
	uploadLimit     echo.MiddlewareFunc
}

func registerRoutes(e *echo.Echo, h handlerSet, mw routeMiddleware) {
	e.GET("/health", h.health)

	api := e.Group("/api/v1")
	api.GET("/health", h.health)

	authGroup := api.Group("/auth", mw.authRateLimiter)
	authGroup.POST("/register", h.auth.Register)
	authGroup.POST("/login", h.auth.Login)
	authGroup.POST("/refresh", h.auth.Refresh)
	authGroup.POST("/logout", h.auth.Logout)
	authGroup.GET("/me", h.auth.Me, mw.auth)
	authGroup.PATCH("/me", h.auth.UpdateProfile, mw.auth)

	transactions := api.Group("/transactions", mw.auth)
	transactions.GET("", h.transactions.List)
	transactions.POST("", h.transactions.Create)
	transactions.GET("/export.csv", h.transactions.ExportCSV)
	transactions.GET("/:id", h.transactions.Get)
	transactions.PATCH("/:id", h.transactions.Update)
	transactions.DELETE("/:id", h.transactions.Delete)
	transactions.POST("/:id/settle", h.transactions.Settle)

	budgets := api.Group("/budgets", mw.auth)
	budgets.GET("", h.budgets.List)
	budgets.POST("", h.budgets.Create)
	budgets.GET("/status", h.budgets.Status)
	budgets.GET("/available-categories", h.budgets.AvailableCategories)
	budgets.PATCH("/:id", h.budgets.Update)
	budgets.DELETE("/:id", h.budgets.Delete)

	categories := api.Group("/categories", mw.auth)
	categories.GET("", h.categories.List)
	categories.POST("", h.categories.Create)
	categories.PUT("/order", h.categories.Reorder)
	categories.PATCH("/:id", h.categories.Rename)
	categories.DELETE("/:id", h.categories.Delete)

	templates := api.Group("/templates", mw.auth)
	templates.GET("", h.templates.List)
	templates.POST("", h.templates.Create)
	templates.PATCH("/:id", h.templates.Update)
	templates.DELETE("/:id", h.templates.Delete)
	templates.POST("/:id/apply", h.templates.Apply)

	summary := api.Group("/summary", mw.auth)
	summary.GET("", h.stats.Summary)
	summary.GET("/monthly", h.stats.Monthly)

	aiGroup := api.Group("/ai", mw.auth, mw.aiRateLimiter)
	aiGroup.POST("/categorize", h.ai.Categorize)
	aiGroup.POST("/insights", h.ai.AnalyzeSpending)
	aiGroup.GET("/insights", h.ai.GetInsights)
	aiGroup.POST("/chat", h.ai.Chat)

	api.POST("/documents", h.documents.Upload, mw.auth, mw.aiRateLimiter, mw.uploadLimit)
	api.POST("/seed", h.seed.Seed, mw.auth)
	api.GET("/stream", h.notifications.Stream, mw.auth)

	admin := api.Group("/admin", mw.auth, mw.admin)
	admin.GET("/users", h.admin.ListUsers)
	admin.GET("/ai-requests", h.admin.ListAIRequests)
	admin.GET("/usage", h.admin.Usage)
}
