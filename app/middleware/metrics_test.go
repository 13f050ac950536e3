package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requests(surface, method, route, status string) float64 {
	return testutil.ToFloat64(httpRequestsTotal.With(prometheus.Labels{
		"surface": surface, "method": method, "route": route, "status": status,
	}))
}

func TestSurface(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"/view/:token", "public"},
		{"/sign/:token/respond", "public"},
		{"/api/v1/documents/:id", "api"},
		{"/metrics", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			assert.Equal(t, tt.want, surface(tt.route))
		})
	}
}

func TestMetrics(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics())
	app.Get("/view/:token", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/api/v1/documents/:id", func(c fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "nope")
	})

	before := requests("public", "GET", "/view/:token", "200")
	resp, err := app.Test(httptest.NewRequest("GET", "/view/abc123", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, before+1, requests("public", "GET", "/view/:token", "200"))

	before = requests("api", "GET", "/api/v1/documents/:id", "418")
	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/documents/7", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.Equal(t, before+1, requests("api", "GET", "/api/v1/documents/:id", "418"))
}
