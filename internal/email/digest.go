package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const digestEmailTimeout = 10 * time.Second

// DigestEmail is a rendered standings digest ready to send.
type DigestEmail struct {
	Subject string
	Body    string
}

// DigestRow is one team line in the digest table, already ranked and
// ordered by the caller.
type DigestRow struct {
	Rank    int
	Team    string
	Goals   int
	Assists int
	Points  int
}

type DigestDetails struct {
	GeneratedAt  time.Time
	Rows         []DigestRow
	RosterSource string
	StatsSource  string
	Unmatched    int
}

// BuildStandingsDigest renders the standings as an aligned plain-text
// table. Recipients read these in monospace mail clients, so the body
// keeps fixed-width columns instead of HTML.
func BuildStandingsDigest(details DigestDetails) DigestEmail {
	generated := details.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}

	subject := fmt.Sprintf("Fantasy Standings for %s", generated.Format("Monday, Jan 2, 2006"))

	lines := []string{
		fmt.Sprintf("Standings as of %s.", generated.Format("Jan 2, 2006 15:04 MST")),
		"",
		fmt.Sprintf("%-5s %-24s %4s %4s %4s", "Rank", "Team", "G", "A", "P"),
	}
	for _, row := range details.Rows {
		lines = append(lines, fmt.Sprintf("%-5d %-24s %4d %4d %4d",
			row.Rank, row.Team, row.Goals, row.Assists, row.Points))
	}

	if details.Unmatched > 0 {
		lines = append(lines, "",
			fmt.Sprintf("%d roster players have no tournament stats yet.", details.Unmatched))
	}

	if details.RosterSource != "" || details.StatsSource != "" {
		lines = append(lines, "",
			fmt.Sprintf("Roster source: %s", orUnknown(details.RosterSource)),
			fmt.Sprintf("Stats source: %s", orUnknown(details.StatsSource)))
	}

	return DigestEmail{
		Subject: subject,
		Body:    strings.Join(lines, "\n"),
	}
}

func orUnknown(source string) string {
	if strings.TrimSpace(source) == "" {
		return "unknown"
	}
	return source
}

// SendStandingsDigest delivers the digest to every recipient
// asynchronously. A canceled context skips the send entirely; an
// individual delivery failure is logged and does not stop the rest.
func SendStandingsDigest(ctx context.Context, client EmailSender, recipients []string, message DigestEmail, logger *zerolog.Logger) {
	if client == nil || len(recipients) == 0 {
		return
	}
	if message.Subject == "" || message.Body == "" {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	for _, recipient := range recipients {
		recipient = strings.TrimSpace(recipient)
		if recipient == "" {
			continue
		}
		go func(recipient string) {
			sendCtx, cancel := newEmailContext(ctx, digestEmailTimeout)
			defer cancel()
			if err := client.Send(sendCtx, recipient, message.Subject, message.Body); err != nil {
				if logger != nil {
					logger.Error().Err(err).Str("recipient", recipient).Msg("Failed to send standings digest")
				}
				return
			}
			if logger != nil {
				logger.Info().Str("recipient", recipient).Msg("Standings digest sent")
			}
		}(recipient)
	}
}
