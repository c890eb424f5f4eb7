package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/yont-erp/yont-erp/internal/authz"
	"github.com/yont-erp/yont-erp/internal/geo"
	jobmetrics "github.com/yont-erp/yont-erp/internal/jobs"
)

// NewGeoRefreshHandler returns the handler for TaskGeoRefresh. It loads a
// fresh hierarchy snapshot and swaps it into the engine atomically;
// in-flight evaluations keep seeing the old snapshot until the swap.
func NewGeoRefreshHandler(service *geo.Service, engine *authz.Engine, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("geo_refresh")
		var payload GeoRefreshPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				_ = tracker.End(err)
				return asynq.SkipRetry
			}
		}
		if err := service.Refresh(ctx, engine); err != nil {
			logger.Error("geo refresh", slog.Any("error", err))
			return tracker.End(err)
		}
		if payload.Reason != "" {
			logger.Info("geo refresh complete", slog.String("reason", payload.Reason))
		}
		return tracker.End(nil)
	}
}
