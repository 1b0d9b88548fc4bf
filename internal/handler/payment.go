package handler

import (
	"errors"
	"io"
	"merchant-phone-search/internal/client"
	"merchant-phone-search/internal/dto"
	"merchant-phone-search/internal/middleware"
	"merchant-phone-search/internal/model"
	"merchant-phone-search/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	tier := model.MembershipType(req.MembershipType)
	if tier != model.MembershipStandard && tier != model.MembershipPremium {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid membership type")
	}

	result, err := h.paymentService.CreateOrder(ctx, middleware.UserID(c), tier, c.RealIP())
	if err != nil {
		if errors.Is(err, service.ErrProviderOrder) {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

func (h *PaymentHandler) QueryOrder(c echo.Context) error {
	ctx := c.Request().Context()

	outTradeNo := c.QueryParam("outTradeNo")
	if outTradeNo == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "outTradeNo is required")
	}

	status, err := h.paymentService.QueryOrder(ctx, middleware.UserID(c), outTradeNo)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    status,
	})
}

// Notify receives the provider's asynchronous XML payment notification. The
// response is always HTTP 200; the provider reads return_code only.
func (h *PaymentHandler) Notify(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.Blob(http.StatusOK, "text/xml", ackXML(service.Ack{
			ReturnCode: "FAIL", ReturnMsg: "unreadable body",
		}))
	}

	ack := h.paymentService.HandleNotification(c.Request().Context(), body)
	return c.Blob(http.StatusOK, "text/xml", ackXML(ack))
}

func ackXML(ack service.Ack) []byte {
	return client.EncodeXMLFields(map[string]string{
		"return_code": ack.ReturnCode,
		"return_msg":  ack.ReturnMsg,
	})
}
