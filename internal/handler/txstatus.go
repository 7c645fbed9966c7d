package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/perflog/perflog/internal/handler/dto"
	"github.com/perflog/perflog/internal/model"
	"github.com/perflog/perflog/internal/repository"
	"github.com/perflog/perflog/internal/stream"
)

const maxHashLength = 100

// BatchSubmitter forwards an accepted batch to the tx status pipeline.
// Implemented by *bus.Bus and *stream.Publisher.
type BatchSubmitter interface {
	SubmitBatch(ctx context.Context, subs []model.RawTxSubmission) error
}

// TxStatusReader defines the audit queries served over HTTP.
type TxStatusReader interface {
	GetTxStatus(ctx context.Context, hash string) (*model.DetailedTxStatus, error)
	ListTxStatuses(ctx context.Context, filter repository.TxStatusFilter) ([]*model.DetailedTxStatus, error)
}

// TxStatusHandler handles tx status ingestion and audit endpoints.
type TxStatusHandler struct {
	submitter BatchSubmitter
	reader    TxStatusReader
	logger    *slog.Logger
}

// NewTxStatusHandler creates a new TxStatusHandler.
// A nil reader disables the audit endpoints.
func NewTxStatusHandler(submitter BatchSubmitter, reader TxStatusReader, logger *slog.Logger) *TxStatusHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TxStatusHandler{
		submitter: submitter,
		reader:    reader,
		logger:    logger.With("component", "txstatus.handler"),
	}
}

// Ingest accepts a batch of raw submissions.
// POST /api/v1/tx-status
func (h *TxStatusHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var subs []model.RawTxSubmission
	if err := json.NewDecoder(r.Body).Decode(&subs); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "body must be a JSON array of submissions")
		return
	}

	if err := stream.ValidateBatchPayload(stream.BatchPayload{Submissions: subs}); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BATCH", err.Error())
		return
	}

	if err := h.submitter.SubmitBatch(r.Context(), subs); err != nil {
		h.logger.Error("failed to submit tx batch",
			"batch_size", len(subs),
			"error", err,
		)
		writeError(w, http.StatusServiceUnavailable, "SUBMIT_FAILED", "batch could not be queued")
		return
	}

	writeJSON(w, http.StatusAccepted, dto.IngestResponse{Accepted: len(subs)})
}

// Get returns one recorded status by hash.
// GET /api/v1/tx-status/{hash}
func (h *TxStatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "RECORDING_DISABLED", "tx status recording is disabled")
		return
	}

	hash := strings.TrimSpace(chi.URLParam(r, "hash"))
	if hash == "" || len(hash) > maxHashLength {
		writeError(w, http.StatusBadRequest, "INVALID_HASH", "invalid tx hash")
		return
	}

	status, err := h.reader.GetTxStatus(r.Context(), hash)
	if err != nil {
		if errors.Is(err, repository.ErrTxStatusNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "tx status not found")
			return
		}
		h.logger.Error("failed to get tx status", "hash", hash, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to get tx status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// List returns recorded statuses, newest first.
// GET /api/v1/tx-status?type=...&accepted=...&limit=...
func (h *TxStatusHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "RECORDING_DISABLED", "tx status recording is disabled")
		return
	}

	filter, msg := parseTxStatusFilter(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, "INVALID_FILTER", msg)
		return
	}

	rows, err := h.reader.ListTxStatuses(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list tx statuses", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list tx statuses")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTxStatusListResponse(rows))
}

// parseTxStatusFilter reads query parameters. It returns a message when a
// parameter is invalid.
func parseTxStatusFilter(r *http.Request) (repository.TxStatusFilter, string) {
	q := r.URL.Query()
	var filter repository.TxStatusFilter

	for _, raw := range q["type"] {
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if !model.TxType(t).IsValid() {
				return filter, "unknown type: " + t
			}
			filter.Types = append(filter.Types, t)
		}
	}

	if v := q.Get("accepted"); v != "" {
		accepted, err := strconv.Atoi(v)
		if err != nil {
			return filter, "accepted must be an integer"
		}
		filter.Accepted = &accepted
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 || limit > repository.MaxListLimit {
			return filter, "limit must be between 1 and " + strconv.Itoa(repository.MaxListLimit)
		}
		filter.Limit = limit
	}

	return filter, ""
}
