package handler_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/gema-rubric-api/internal/config"
	"github.com/noah-isme/gema-rubric-api/internal/handler"
)

type healthEnvelope struct {
	Success bool                   `json:"success"`
	Code    string                 `json:"code"`
	Data    handler.HealthResponse `json:"data"`
}

func TestHealthCheck(t *testing.T) {
	cfg := config.Config{AppName: "GEMA Rubric API", AppEnv: "test"}

	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(cfg, handler.HealthProbe{
		Name:  "redis",
		Check: func(context.Context) error { return nil },
	}))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/health", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload healthEnvelope
	decodeResponse(t, resp, &payload)
	assert.True(t, payload.Success)
	assert.Equal(t, "ok", payload.Data.Status)
	assert.Equal(t, cfg.AppName, payload.Data.Service)
	assert.Equal(t, "up", payload.Data.Dependencies["redis"])
	assert.WithinDuration(t, time.Now().UTC(), payload.Data.Timestamp, 2*time.Second)
}

func TestHealthCheckReportsDegradedDependency(t *testing.T) {
	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(config.Config{AppName: "GEMA Rubric API"},
		handler.HealthProbe{Name: "postgres", Check: func(context.Context) error { return errors.New("refused") }},
		handler.HealthProbe{Name: "redis", Check: func(context.Context) error { return nil }},
	))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/health", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var payload healthEnvelope
	decodeResponse(t, resp, &payload)
	assert.False(t, payload.Success)
	assert.Equal(t, "dependency_unavailable", payload.Code)
	assert.Equal(t, "degraded", payload.Data.Status)
	assert.Equal(t, "down", payload.Data.Dependencies["postgres"])
	assert.Equal(t, "up", payload.Data.Dependencies["redis"])
}
