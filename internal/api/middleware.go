package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const contextLanguageKey = "language"

func (handler *Handler) LanguageMiddleware(c *fiber.Ctx) error {
	language := handler.i18n.Resolve(c.Get(fiber.HeaderAcceptLanguage), c.Query("lang"))
	c.Locals(contextLanguageKey, language)
	c.Set(fiber.HeaderContentLanguage, language)
	return c.Next()
}

func (handler *Handler) currentLanguage(c *fiber.Ctx) string {
	if language, ok := c.Locals(contextLanguageKey).(string); ok && language != "" {
		return language
	}
	return handler.i18n.DefaultLanguage()
}

// MetricsMiddleware records request counts and latency by matched route.
func (handler *Handler) MetricsMiddleware(c *fiber.Ctx) error {
	if handler.metrics == nil {
		return c.Next()
	}
	started := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if fiberErr, ok := err.(*fiber.Error); ok {
		status = fiberErr.Code
	}
	route := "unmatched"
	if matched := c.Route(); matched != nil && matched.Path != "/" {
		route = matched.Path
	}
	handler.metrics.ObserveRequest(c.Method(), route, status, time.Since(started))
	return err
}
