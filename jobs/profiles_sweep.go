package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/yont-erp/yont-erp/internal/jobs"
	"github.com/yont-erp/yont-erp/internal/profiles"
)

// NewProfilesSweepHandler returns the handler for TaskProfilesSweep. Users
// deactivated after their profile was built keep a cached (now denied at
// the gate) profile; the sweep drops those entries so the registry does not
// grow without bound.
func NewProfilesSweepHandler(repo profiles.Repository, registry *profiles.Registry, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("profiles_sweep")
		ids, err := repo.ListInactiveUserIDs(ctx)
		if err != nil {
			logger.Error("profiles sweep", slog.Any("error", err))
			return tracker.End(err)
		}
		for _, id := range ids {
			registry.Drop(id)
		}
		if len(ids) > 0 {
			logger.Info("profiles sweep complete", slog.Int("dropped", len(ids)))
		}
		return tracker.End(nil)
	}
}
