package handler

import (
	"errors"
	"merchant-phone-search/internal/dto"
	"merchant-phone-search/internal/middleware"
	"merchant-phone-search/internal/service"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
)

type ExportHandler struct {
	exportService service.ExportService
}

func NewExportHandler(exportService service.ExportService) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
	}
}

func (h *ExportHandler) Export(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ExportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	data, err := h.exportService.Export(ctx, middleware.UserID(c), req.Data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoExportData):
			return echo.NewHTTPError(http.StatusBadRequest, "no data to export")
		case errors.Is(err, service.ErrExportForbidden):
			return echo.NewHTTPError(http.StatusForbidden, "free membership has no export permission, upgrade required")
		case errors.Is(err, service.ErrExportQuota):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return err
	}

	encoded := url.PathEscape(service.ExportFilename)
	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+encoded+`"; filename*=UTF-8''`+encoded)

	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
