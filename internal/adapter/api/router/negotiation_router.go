package router

import (
	"github.com/labstack/echo/v4"

	"dialist/internal/adapter/api/handler"
	"dialist/internal/adapter/api/middleware"
)

// SetupNegotiationRouter wires all channel and offer routes. Every rule
// lives below the handler layer; these routes only bind, validate and
// hand off the authenticated actor.
func SetupNegotiationRouter(e *echo.Echo, negotiationHandler *handler.NegotiationHandler, authMiddleware *middleware.AuthMiddleware) {
	channelGroup := e.Group("/v1/channels")
	channelGroup.Use(authMiddleware.Authenticate)

	channelGroup.POST("/inquire", negotiationHandler.Inquire)   // POST /v1/channels/inquire - Open or reuse a channel via inquiry
	channelGroup.POST("/offer", negotiationHandler.SendOffer)   // POST /v1/channels/offer - Place an initial offer
	channelGroup.GET("", negotiationHandler.ListMyChannels)     // GET /v1/channels - List own channels
	channelGroup.GET("/:id", negotiationHandler.GetChannel)     // GET /v1/channels/:id - Get a channel

	channelGroup.POST("/:id/counter", negotiationHandler.CounterOffer) // POST /v1/channels/:id/counter
	channelGroup.POST("/:id/accept", negotiationHandler.AcceptOffer)   // POST /v1/channels/:id/accept
	channelGroup.POST("/:id/reject", negotiationHandler.RejectOffer)   // POST /v1/channels/:id/reject

	listingGroup := e.Group("/v1/listings")
	listingGroup.Use(authMiddleware.Authenticate)
	listingGroup.GET("/:listingId/channels", negotiationHandler.ListListingChannels) // owner only
}
