package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amirphl/docflow/app/dto"
	"github.com/amirphl/docflow/app/handlers"
	businessflow "github.com/amirphl/docflow/business_flow"
	"github.com/amirphl/docflow/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recentViewsFlow records the limit each ListRecentViews call receives
type recentViewsFlow struct {
	businessflow.TrackingFlow
	limits []int
}

func (f *recentViewsFlow) ListRecentViews(ctx context.Context, limit int) (*dto.ListRecentViewsResponse, error) {
	f.limits = append(f.limits, limit)
	return &dto.ListRecentViewsResponse{Views: []dto.RecentViewResponse{}}, nil
}

func recentViews(t *testing.T, h *handlers.TrackingHandler, query string) int {
	t.Helper()
	app := fiber.New()
	app.Get("/recent-views", h.ListRecentViews)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/recent-views"+query, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestTrackingHandler_ListRecentViewsLimit(t *testing.T) {
	t.Run("UnsetLimitFallsBackToDefaultPageSize", func(t *testing.T) {
		flow := &recentViewsFlow{}
		h := handlers.NewTrackingHandler(flow, 0)

		assert.Equal(t, http.StatusOK, recentViews(t, h, ""))
		assert.Equal(t, []int{utils.DefaultPageSize}, flow.limits)
	})

	t.Run("ConfiguredLimit", func(t *testing.T) {
		flow := &recentViewsFlow{}
		h := handlers.NewTrackingHandler(flow, 7)

		assert.Equal(t, http.StatusOK, recentViews(t, h, ""))
		assert.Equal(t, []int{7}, flow.limits)
	})

	t.Run("QueryOverridesLimit", func(t *testing.T) {
		flow := &recentViewsFlow{}
		h := handlers.NewTrackingHandler(flow, 7)

		assert.Equal(t, http.StatusOK, recentViews(t, h, "?limit=3"))
		assert.Equal(t, []int{3}, flow.limits)
	})

	t.Run("InvalidQueryLimit", func(t *testing.T) {
		flow := &recentViewsFlow{}
		h := handlers.NewTrackingHandler(flow, 7)

		assert.Equal(t, http.StatusBadRequest, recentViews(t, h, "?limit=0"))
		assert.Empty(t, flow.limits)
	})
}
