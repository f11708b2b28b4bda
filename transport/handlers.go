package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-inbox/core"
	glog "github.com/goliatone/go-logger/glog"
)

const defaultMaxBodyBytes int64 = 1 << 20 // 1 MiB

// InboxService is the slice of the ingestion service the HTTP surface needs.
type InboxService interface {
	Ingest(ctx context.Context, req core.IngestRequest) (core.IngestResult, error)
	ListMessages(ctx context.Context, req core.ListRequest) (core.ListPage, error)
	GetStats(ctx context.Context) (core.Stats, error)
	Ready(ctx context.Context) bool
	Config() core.Config
}

type Handler struct {
	service      InboxService
	logger       glog.Logger
	maxBodyBytes int64
}

func NewHandler(service InboxService, logger glog.Logger) *Handler {
	return &Handler{
		service:      service,
		logger:       glog.Ensure(logger),
		maxBodyBytes: defaultMaxBodyBytes,
	}
}

// Webhook ingests one signed delivery. Duplicates are acknowledged exactly
// like first deliveries so providers stop retrying.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	signatureHeader := h.service.Config().Server.SignatureHeader

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		writeError(w, transportError(
			"transport: request body is unreadable or too large",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"limit_bytes": h.maxBodyBytes},
		))
		return
	}

	result, err := h.service.Ingest(r.Context(), core.IngestRequest{
		Body:      body,
		Signature: r.Header.Get(signatureHeader),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	switch result.Outcome {
	case core.IngestOutcomeCreated, core.IngestOutcomeDuplicate:
		writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
	case core.IngestOutcomeInvalidSignature:
		writeError(w, transportError(
			"invalid webhook signature",
			goerrors.CategoryAuth,
			http.StatusUnauthorized,
			nil,
		))
	case core.IngestOutcomeValidationError:
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
			Status:     "error",
			Violations: result.FieldErrors,
		})
	default:
		writeError(w, transportError(
			"transport: unknown ingestion outcome",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"outcome": string(result.Outcome)},
		))
	}
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.service.ListMessages(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(page))
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsToResponse(stats))
}

func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "alive"})
}

// Ready reports 503 until both the webhook secret and the storage backend
// are usable, so deployments hold traffic from an unconfigured instance.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"secret":  "ok",
		"storage": "ok",
	}
	healthy := true

	if !h.service.Config().SecretConfigured() {
		checks["secret"] = "missing"
		healthy = false
	}
	if !h.service.Ready(r.Context()) {
		checks["storage"] = "unavailable"
		healthy = false
	}

	status := http.StatusOK
	label := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		label = "unavailable"
	}
	writeJSON(w, status, readinessResponse{Status: label, Checks: checks})
}

func parseListRequest(r *http.Request) (core.ListRequest, error) {
	query := r.URL.Query()
	req := core.ListRequest{}

	req.Filter.From = strings.TrimSpace(query.Get("from"))
	req.Filter.Query = query.Get("q")

	if raw := strings.TrimSpace(query.Get("since")); raw != "" {
		since, err := core.ParseTimestamp(raw)
		if err != nil {
			return core.ListRequest{}, transportError(
				"since must be an ISO-8601 UTC timestamp",
				goerrors.CategoryBadInput,
				http.StatusBadRequest,
				map[string]any{"since": raw},
			)
		}
		req.Filter.Since = &since
	}

	// A present but out-of-range window parameter is a caller contract
	// violation; only an absent parameter falls back to the default limit.
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := parseIntParam(raw, "limit")
		if err != nil {
			return core.ListRequest{}, err
		}
		if limit < 1 || limit > core.MaxListLimit {
			return core.ListRequest{}, transportError(
				fmt.Sprintf("limit must be between 1 and %d", core.MaxListLimit),
				goerrors.CategoryBadInput,
				http.StatusBadRequest,
				map[string]any{"limit": limit},
			)
		}
		req.Limit = limit
	}

	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		offset, err := parseIntParam(raw, "offset")
		if err != nil {
			return core.ListRequest{}, err
		}
		if offset < 0 {
			return core.ListRequest{}, transportError(
				"offset must be >= 0",
				goerrors.CategoryBadInput,
				http.StatusBadRequest,
				map[string]any{"offset": offset},
			)
		}
		req.Offset = offset
	}

	return req, nil
}

func parseIntParam(raw string, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, transportError(
			name+" must be an integer",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{name: raw},
		)
	}
	return value, nil
}
