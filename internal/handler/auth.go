package handler

import (
	"errors"
	"merchant-phone-search/internal/dto"
	"merchant-phone-search/internal/middleware"
	"merchant-phone-search/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func (h *AuthHandler) SendCode(c echo.Context) error {
	var req dto.SendCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	if err := h.authService.SendCode(c.Request().Context(), req.Phone); err != nil {
		if errors.Is(err, service.ErrInvalidPhone) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid phone number")
		}
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "verification code sent",
	})
}

func (h *AuthHandler) VerifyCode(c echo.Context) error {
	var req dto.VerifyCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if len(req.Code) != 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid code format")
	}

	login, err := h.authService.VerifyCode(c.Request().Context(), req.Phone, req.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPhone) || errors.Is(err, service.ErrInvalidCode) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "login successful",
		"data":    login,
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	profile, err := h.authService.Profile(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    profile,
	})
}
