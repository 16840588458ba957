package handler

import (
	"github.com/labstack/echo/v4"

	"dialist/internal/usecase"
	"dialist/pkg/response"
	"dialist/pkg/utils"
)

type NegotiationHandler struct {
	negotiationUseCase *usecase.NegotiationUseCase
}

func NewNegotiationHandler(negotiationUseCase *usecase.NegotiationUseCase) *NegotiationHandler {
	return &NegotiationHandler{
		negotiationUseCase: negotiationUseCase,
	}
}

type inquireRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
	Message   string `json:"message"`
}

type sendOfferRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Message   string `json:"message"`
}

type counterOfferRequest struct {
	Amount  int64  `json:"amount" validate:"required,gt=0"`
	Message string `json:"message"`
}

func (h *NegotiationHandler) Inquire(c echo.Context) error {
	var req inquireRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	channel, err := h.negotiationUseCase.Inquire(c.Request().Context(), userID, usecase.InquireInput{
		ListingID: req.ListingID,
		Message:   req.Message,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, channel)
}

func (h *NegotiationHandler) SendOffer(c echo.Context) error {
	var req sendOfferRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	channel, err := h.negotiationUseCase.SendOffer(c.Request().Context(), userID, usecase.SendOfferInput{
		ListingID: req.ListingID,
		Amount:    req.Amount,
		Message:   req.Message,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, channel)
}

func (h *NegotiationHandler) CounterOffer(c echo.Context) error {
	var req counterOfferRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)
	channelID := c.Param("id")

	channel, err := h.negotiationUseCase.CounterOffer(c.Request().Context(), userID, channelID, usecase.CounterOfferInput{
		Amount:  req.Amount,
		Message: req.Message,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, channel)
}

func (h *NegotiationHandler) AcceptOffer(c echo.Context) error {
	userID := c.Get("uid").(string)
	channelID := c.Param("id")

	result, err := h.negotiationUseCase.AcceptOffer(c.Request().Context(), userID, channelID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

func (h *NegotiationHandler) RejectOffer(c echo.Context) error {
	userID := c.Get("uid").(string)
	channelID := c.Param("id")

	channel, err := h.negotiationUseCase.RejectOffer(c.Request().Context(), userID, channelID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, channel)
}

func (h *NegotiationHandler) GetChannel(c echo.Context) error {
	userID := c.Get("uid").(string)
	channelID := c.Param("id")

	channel, err := h.negotiationUseCase.GetChannel(c.Request().Context(), userID, channelID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, channel)
}

func (h *NegotiationHandler) ListMyChannels(c echo.Context) error {
	userID := c.Get("uid").(string)
	role := c.QueryParam("role")
	pagination := utils.GetPaginationParams(c)

	channels, total, err := h.negotiationUseCase.ListUserChannels(c.Request().Context(), userID, role, pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, channels, total, pagination.Page, pagination.PageSize)
}

func (h *NegotiationHandler) ListListingChannels(c echo.Context) error {
	userID := c.Get("uid").(string)
	listingID := c.Param("listingId")

	channels, err := h.negotiationUseCase.ListListingChannels(c.Request().Context(), userID, listingID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, channels)
}
