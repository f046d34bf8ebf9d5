package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func NewRouter(admission *AdmissionHandler, paystack *PaystackHandler, jwtSecret []byte, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			logger.Debug("request", attrs...)
			return nil
		},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")
	api.POST("/payments/paystack/webhook", paystack.Webhook)

	authed := api.Group("", JWTAuth(jwtSecret, logger))
	authed.POST("/events/:eventId/queue", admission.JoinQueue)
	authed.GET("/events/:eventId/queue/position", admission.QueuePosition)
	authed.GET("/events/:eventId/availability", admission.Availability)
	authed.GET("/events/:eventId/tickets/me", admission.MyTickets)
	authed.POST("/queue/:entryId/release", admission.Release)

	// Finalize needs proof of payment: end users reach it only through the
	// signed Paystack webhook.
	authed.POST("/queue/:entryId/purchase", admission.Purchase, RequireRole(roleService, roleAdmin))

	admin := authed.Group("/admin", AdminOnly)
	admin.POST("/events/:eventId/promote", admission.PromoteEvent)

	return e
}
