package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/puckboard/internal/config"
	"github.com/codr1/puckboard/internal/tracker"
)

const refreshJobTimeout = 2 * time.Minute

// RegisterRefreshJob schedules periodic source refreshes. The tracker
// skips sources whose fingerprints have not changed, so a frequent
// schedule stays cheap when nobody edited the files. A failed refresh
// leaves the previous snapshots in place.
func RegisterRefreshJob(trk *tracker.Tracker, cfg config.RefreshConfig) error {
	if trk == nil {
		return fmt.Errorf("refresh job requires tracker")
	}

	jobName := "source_refresh"
	jobLogger := log.With().
		Str("component", "source_refresh_job").
		Str("job_name", jobName).
		Str("cron", cfg.Schedule).
		Logger()

	_, err := AddJob(jobName, cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshJobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		result, err := trk.Refresh(ctx)
		if err != nil {
			jobLogger.Error().Err(err).Msg("Source refresh failed, keeping previous snapshots")
			return
		}
		jobLogger.Info().
			Bool("roster_imported", result.RosterImported).
			Bool("stats_imported", result.StatsImported).
			Bool("used_fallback", result.UsedFallback).
			Msg("Source refresh completed")
	})
	return err
}
