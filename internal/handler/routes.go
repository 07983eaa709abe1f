package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/ledgerline/forecast-backend/internal/middleware"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, rateLimiter *middleware.RateLimiter, forecastHandler *ForecastHandler) {
	// API version 1
	api := e.Group("/api/v1")

	// Forecast routes (workspace-scoped)
	forecasts := api.Group("/forecasts")
	forecasts.Use(middleware.WorkspaceContext())
	forecasts.Use(middleware.RateLimitMiddleware(rateLimiter))

	forecasts.POST("", forecastHandler.CreateForecast)
	forecasts.GET("", forecastHandler.GetForecasts)
	forecasts.GET("/:id", forecastHandler.GetForecast)
	forecasts.PUT("/:id", forecastHandler.UpdateForecast)
	forecasts.DELETE("/:id", forecastHandler.DeleteForecast)

	forecasts.POST("/:id/periods/generate", forecastHandler.GeneratePeriods)
	forecasts.GET("/:id/periods", forecastHandler.GetPeriods)
	forecasts.POST("/:id/matching/run", forecastHandler.RunMatching)
	forecasts.POST("/:id/records/:recordId/archive", forecastHandler.ArchiveRecord)
	forecasts.GET("/:id/summary", forecastHandler.GetSummary)
}
