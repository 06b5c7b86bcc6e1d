// internal/api/imports/handlers.go
package imports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/puckboard/internal/api/apiutil"
	"github.com/codr1/puckboard/internal/ratelimit"
	"github.com/codr1/puckboard/internal/request"
	"github.com/codr1/puckboard/internal/tracker"
)

const (
	importQueryTimeout = 15 * time.Second
	// importBodyLimit caps upload size well above any plausible
	// tournament export.
	importBodyLimit = 5 << 20
	uploadSource    = "upload"
)

var (
	trk        *tracker.Tracker
	limiter    *ratelimit.Limiter
	trustProxy bool
	initOnce   sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(t *tracker.Tracker, l *ratelimit.Limiter, trust bool) {
	if t == nil {
		return
	}
	initOnce.Do(func() {
		trk = t
		limiter = l
		trustProxy = trust
	})
}

func loadTracker() *tracker.Tracker {
	return trk
}

// importEnvelope is the JSON alternative to a raw CSV/HTML body, for
// clients that paste content instead of uploading a file.
type importEnvelope struct {
	Source  string `json:"source"`
	Format  string `json:"format"`
	Content string `json:"content"`
}

// importPayload is a parsed upload, whichever way it arrived.
type importPayload struct {
	source string
	format string
	data   []byte
}

// POST /api/v1/imports/roster
func HandleImportRoster(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	t, ip, ok := importGate(w, r)
	if !ok {
		return
	}

	payload, err := readImportPayload(w, r)
	if err != nil {
		respondImportError(w, r, err, "Failed to read roster upload")
		return
	}
	if payload.format == "html" {
		http.Error(w, "Roster imports must be CSV", http.StatusUnsupportedMediaType)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), importQueryTimeout)
	defer cancel()

	snap, err := t.ImportRoster(ctx, payload.source, payload.data)
	if errors.Is(err, tracker.ErrSourceInvalid) {
		logger.Warn().Err(err).Msg("Rejected roster upload")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to store roster upload")
		http.Error(w, "Failed to import roster", http.StatusInternalServerError)
		return
	}

	if limiter != nil {
		limiter.RecordImport(ip)
	}
	if err := apiutil.WriteJSON(w, http.StatusCreated, snap); err != nil {
		logger.Error().Err(err).Str("snapshot_id", snap.ID).Msg("Failed to write roster import response")
	}
}

// POST /api/v1/imports/stats
func HandleImportStats(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	t, ip, ok := importGate(w, r)
	if !ok {
		return
	}

	payload, err := readImportPayload(w, r)
	if err != nil {
		respondImportError(w, r, err, "Failed to read stats upload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), importQueryTimeout)
	defer cancel()

	snap, err := t.ImportStats(ctx, payload.source, payload.format, payload.data)
	if errors.Is(err, tracker.ErrSourceInvalid) {
		logger.Warn().Err(err).Msg("Rejected stats upload")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to store stats upload")
		http.Error(w, "Failed to import stats", http.StatusInternalServerError)
		return
	}

	if limiter != nil {
		limiter.RecordImport(ip)
	}
	if err := apiutil.WriteJSON(w, http.StatusCreated, snap); err != nil {
		logger.Error().Err(err).Str("snapshot_id", snap.ID).Msg("Failed to write stats import response")
	}
}

// importGate handles the checks shared by both import endpoints:
// method, handler initialization, and the per-IP rate limit.
func importGate(w http.ResponseWriter, r *http.Request) (*tracker.Tracker, string, bool) {
	logger := log.Ctx(r.Context())

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, "", false
	}

	t := loadTracker()
	if t == nil {
		logger.Error().Msg("Tracker not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, "", false
	}

	ip := ratelimit.GetClientIP(r, trustProxy)
	if limiter != nil {
		result := limiter.CheckImport(ip)
		if !result.Allowed {
			ratelimit.LogLimitExceeded(ip, result.Reason)
			w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter/time.Second)+1))
			http.Error(w, "Too many imports", http.StatusTooManyRequests)
			return nil, "", false
		}
	}

	return t, ip, true
}

// readImportPayload parses an upload body. A JSON Content-Type selects
// the envelope form; anything else is treated as the raw table bytes
// with the format resolved from the query or the Content-Type.
func readImportPayload(w http.ResponseWriter, r *http.Request) (importPayload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, importBodyLimit)

	mediaType := ""
	if contentType := strings.TrimSpace(r.Header.Get("Content-Type")); contentType != "" {
		parsed, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return importPayload{}, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid Content-Type header", Err: err}
		}
		mediaType = parsed
	}

	if mediaType == "application/json" {
		var envelope importEnvelope
		if err := apiutil.DecodeJSON(r, &envelope); err != nil {
			return importPayload{}, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid JSON body", Err: err}
		}

		content, err := apiutil.RequireTrimmedField(envelope.Content, "content")
		if err != nil {
			return importPayload{}, apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
		}
		format, ok := request.ParseStatsFormat(envelope.Format)
		if !ok {
			return importPayload{}, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "format must be csv or html"}
		}
		source := strings.TrimSpace(envelope.Source)
		if source == "" {
			source = uploadSource
		}
		return importPayload{source: source, format: format, data: []byte(content)}, nil
	}

	format, ok := request.StatsFormatFromRequest(r)
	if !ok {
		return importPayload{}, apiutil.HandlerError{Status: http.StatusUnsupportedMediaType, Message: "Unsupported stats format"}
	}

	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return importPayload{}, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Failed to read request body", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return importPayload{}, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Empty request body"}
	}
	return importPayload{source: uploadSource, format: format, data: data}, nil
}

func respondImportError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logger := log.Ctx(r.Context())

	var herr apiutil.HandlerError
	if errors.As(err, &herr) {
		logger.Warn().Err(herr.Err).Msg(herr.Message)
		http.Error(w, herr.Message, herr.Status)
		return
	}
	logger.Error().Err(err).Msg(fallback)
	http.Error(w, fallback, http.StatusInternalServerError)
}
