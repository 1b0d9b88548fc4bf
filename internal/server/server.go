package server

import (
	"context"

	"merchant-phone-search/internal/handler"
	appmiddleware "merchant-phone-search/internal/middleware"
	"merchant-phone-search/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

type Server struct {
	echo           *echo.Echo
	authHandler    *handler.AuthHandler
	searchHandler  *handler.SearchHandler
	exportHandler  *handler.ExportHandler
	paymentHandler *handler.PaymentHandler
	jwtSecret      string
}

func NewServer(
	authService service.AuthService,
	searchService service.SearchService,
	exportService service.ExportService,
	paymentService service.PaymentService,
	jwtSecret string,
) *Server {
	e := echo.New()

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("request")
			return nil
		},
	}))

	s := &Server{
		echo:           e,
		authHandler:    handler.NewAuthHandler(authService),
		searchHandler:  handler.NewSearchHandler(searchService, authService),
		exportHandler:  handler.NewExportHandler(exportService),
		paymentHandler: handler.NewPaymentHandler(paymentService),
		jwtSecret:      jwtSecret,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	auth := appmiddleware.JWTAuth(s.jwtSecret)

	api.GET("/search", s.searchHandler.Search, auth)
	api.GET("/districts", s.searchHandler.Districts)

	api.POST("/auth/send-code", s.authHandler.SendCode)
	api.POST("/auth/verify-code", s.authHandler.VerifyCode)
	api.GET("/auth/me", s.authHandler.Me, auth)

	api.POST("/export", s.exportHandler.Export, auth)

	// -------- payment --------
	payment := api.Group("/payment")
	payment.POST("/create-order", s.paymentHandler.CreateOrder, auth)
	payment.GET("/query-order", s.paymentHandler.QueryOrder, auth)

	// provider webhook, unauthenticated by design
	payment.POST("/notify", s.paymentHandler.Notify)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
