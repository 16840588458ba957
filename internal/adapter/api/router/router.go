package router

import (
	"github.com/labstack/echo/v4"

	"dialist/internal/adapter/api/handler"
	"dialist/internal/adapter/api/middleware"
)

func Setup(e *echo.Echo, negotiationHandler *handler.NegotiationHandler, wsHandler *handler.WebSocketHandler, authMiddleware *middleware.AuthMiddleware) {
	SetupNegotiationRouter(e, negotiationHandler, authMiddleware)
	SetupWebSocketRouter(e, wsHandler)
	SetupHealthRouter(e)
}
