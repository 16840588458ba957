package handler

import (
	"github.com/labstack/echo/v4"

	"dialist/internal/domain/repository"
	"dialist/internal/infrastructure/firebase"
	"dialist/pkg/errors"
	"dialist/pkg/response"
)

// DevTokenHandler mints tokens for local testing. Its routes are only
// registered in the development environment.
type DevTokenHandler struct {
	firebaseAuth   *firebase.FirebaseAuthClient
	userRepo       repository.UserRepository
	devTokenSecret string
}

func NewDevTokenHandler(firebaseAuth *firebase.FirebaseAuthClient, userRepo repository.UserRepository, devTokenSecret string) *DevTokenHandler {
	return &DevTokenHandler{
		firebaseAuth:   firebaseAuth,
		userRepo:       userRepo,
		devTokenSecret: devTokenSecret,
	}
}

// MintToken issues an HS256 dev token for the given user, usable against
// the auth middleware without a Firebase project.
func (h *DevTokenHandler) MintToken(c echo.Context) error {
	uid := c.QueryParam("uid")
	if uid == "" {
		return response.Error(c, errors.BadRequest("uid query parameter is required", nil))
	}

	user, err := h.userRepo.GetByID(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	token, err := firebase.MintDevToken(h.devTokenSecret, user.ID)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to mint dev token", err))
	}

	return response.Success(c, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
		},
	})
}

// CustomToken issues a Firebase custom token for the given user, for
// clients that exchange it through the Firebase SDK.
func (h *DevTokenHandler) CustomToken(c echo.Context) error {
	uid := c.QueryParam("uid")
	if uid == "" {
		return response.Error(c, errors.BadRequest("uid query parameter is required", nil))
	}

	token, err := h.firebaseAuth.GenerateToken(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to generate custom token", err))
	}

	return response.Success(c, map[string]interface{}{
		"custom_token": token,
	})
}
