package handler

import (
	"errors"
	"merchant-phone-search/internal/middleware"
	"merchant-phone-search/internal/model"
	"merchant-phone-search/internal/service"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type SearchHandler struct {
	searchService service.SearchService
	authService   service.AuthService
}

func NewSearchHandler(searchService service.SearchService, authService service.AuthService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		authService:   authService,
	}
}

func (h *SearchHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()

	keywords := c.QueryParam("keywords")
	city := c.QueryParam("city")
	if keywords == "" || city == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "keywords and city are required")
	}

	page, err := intParam(c, "page", 1)
	if err != nil || page < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "page must be a positive integer")
	}
	pageSize, err := intParam(c, "pageSize", 20)
	if err != nil || pageSize < 1 || pageSize > 50 {
		return echo.NewHTTPError(http.StatusBadRequest, "pageSize must be between 1 and 50")
	}

	profile, err := h.authService.Profile(ctx, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return err
	}

	records, err := h.searchService.Search(ctx, keywords, city,
		model.MembershipType(profile.MembershipType), page, pageSize)
	if err != nil {
		// partial data still goes out; the client decides the messaging
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
			"data":    records,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    records,
	})
}

func (h *SearchHandler) Districts(c echo.Context) error {
	regions, err := h.searchService.Districts(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    regions,
	})
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
