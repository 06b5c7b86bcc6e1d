package request

import (
	"mime"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// TeamFromQuery returns the trimmed team filter from the query string.
// An absent or blank parameter means no filter.
func TeamFromQuery(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("team"))
}

// ParseStatsFormat validates a stats format name. The empty string
// selects the CSV default.
func ParseStatsFormat(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return "csv", true
	case "csv":
		return "csv", true
	case "html":
		return "html", true
	}
	return "", false
}

// StatsFormatFromRequest resolves the payload format of a stats
// upload: an explicit format query parameter wins, then the request
// Content-Type, then the CSV default.
func StatsFormatFromRequest(r *http.Request) (string, bool) {
	if raw := r.URL.Query().Get("format"); strings.TrimSpace(raw) != "" {
		return ParseStatsFormat(raw)
	}

	contentType := strings.TrimSpace(r.Header.Get("Content-Type"))
	if contentType == "" {
		return "csv", true
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		log.Ctx(r.Context()).
			Debug().
			Err(err).
			Str("content_type", contentType).
			Msg("Failed to parse Content-Type")
		return "", false
	}

	switch mediaType {
	case "text/html":
		return "html", true
	case "text/csv", "application/csv", "text/plain", "application/octet-stream":
		return "csv", true
	}
	return "", false
}
