package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/puckboard/internal/config"
	"github.com/codr1/puckboard/internal/email"
	"github.com/codr1/puckboard/internal/tracker"
)

const digestJobTimeout = time.Minute

// RegisterDigestJob schedules the standings digest email. Each run
// renders the leaderboard from the latest snapshots and mails it to
// the configured recipients.
func RegisterDigestJob(trk *tracker.Tracker, client email.EmailSender, cfg config.DigestConfig) error {
	if trk == nil {
		return fmt.Errorf("digest job requires tracker")
	}
	if client == nil {
		return fmt.Errorf("digest job requires email client")
	}
	if len(cfg.Recipients) == 0 {
		return fmt.Errorf("digest job requires recipients")
	}

	jobName := "standings_digest"
	jobLogger := log.With().
		Str("component", "standings_digest_job").
		Str("job_name", jobName).
		Str("cron", cfg.Schedule).
		Logger()

	_, err := AddJob(jobName, cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), digestJobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		board, err := trk.Leaderboard(ctx)
		if errors.Is(err, tracker.ErrNoData) {
			jobLogger.Info().Msg("Digest skipped, no snapshots imported yet")
			return
		}
		if err != nil {
			jobLogger.Error().Err(err).Msg("Failed to compute leaderboard for digest")
			return
		}

		rows := make([]email.DigestRow, 0, len(board.Standings))
		for _, standing := range board.Standings {
			rows = append(rows, email.DigestRow{
				Rank:    standing.Rank,
				Team:    standing.Team,
				Goals:   standing.TotalGoals,
				Assists: standing.TotalAssists,
				Points:  standing.TotalPoints,
			})
		}

		message := email.BuildStandingsDigest(email.DigestDetails{
			GeneratedAt:  board.GeneratedAt,
			Rows:         rows,
			RosterSource: board.Roster.Source,
			StatsSource:  board.Stats.Source,
			Unmatched:    board.Unmatched,
		})
		email.SendStandingsDigest(ctx, client, cfg.Recipients, message, &jobLogger)
		jobLogger.Info().
			Int("teams", len(rows)).
			Int("recipients", len(cfg.Recipients)).
			Msg("Standings digest dispatched")
	})
	return err
}
