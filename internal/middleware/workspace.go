package middleware

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type contextKey string

// WorkspaceIDKey is the context key for the acting workspace
const WorkspaceIDKey contextKey = "workspace_id"

// WorkspaceHeader carries the workspace id resolved by the upstream gateway.
// Authentication and authorization happen there; this service only scopes
// data access to the workspace it is handed.
const WorkspaceHeader = "X-Workspace-ID"

// WorkspaceContext injects the workspace id from the gateway header into the
// request context. Requests without a workspace are rejected.
func WorkspaceContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(WorkspaceHeader)
			if header == "" {
				return unauthorizedError(c, "Workspace required")
			}

			id, err := strconv.ParseInt(header, 10, 32)
			if err != nil || id <= 0 {
				log.Debug().Str("header", header).Msg("Invalid workspace header")
				return unauthorizedError(c, "Invalid workspace")
			}

			ctx := context.WithValue(c.Request().Context(), WorkspaceIDKey, int32(id))
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// GetWorkspaceID extracts the workspace ID from the context
func GetWorkspaceID(c echo.Context) int32 {
	if id, ok := c.Request().Context().Value(WorkspaceIDKey).(int32); ok {
		return id
	}
	return 0
}
