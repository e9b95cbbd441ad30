package assessment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
	"github.com/vitalpath-ai/platform/pkg/common/logger"
	"github.com/vitalpath-ai/platform/pkg/common/models"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/assessments", h.handleSubmit).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/assessments", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/assessments/{id}", h.handlePoll).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/assessments/{id}", h.handleCancel).Methods(http.MethodDelete)
	router.HandleFunc("/api/v1/assessments/{id}/report", h.handleReport).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/conditions", h.handleConditions).Methods(http.MethodGet)
}

// pollResponse wraps a record with the collapsed processing status.
type pollResponse struct {
	Status string `json:"status"`
	*Record
}

func (h *HTTPHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid assessment payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := h.service.Submit(r.Context(), req)
	if err != nil {
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, models.SubmitResponse{
		JobID:       rec.ID,
		State:       string(rec.State),
		SubmittedAt: rec.CreatedAt,
	})
}

func (h *HTTPHandler) handlePoll(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.service.Poll(r.Context(), id)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pollResponse{Status: rec.Status(), Record: rec})
}

func (h *HTTPHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, pollResponse{Status: rec.Status(), Record: rec})
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := h.service.List(r.Context(), limit)
	if err != nil {
		writeFault(w, err)
		return
	}
	out := make([]pollResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, pollResponse{Status: rec.Status(), Record: rec})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) handleReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	report, err := h.service.Report(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotReady) {
			rec, perr := h.service.Poll(r.Context(), id)
			if perr != nil {
				writeFault(w, perr)
				return
			}
			writeJSON(w, http.StatusConflict, pollResponse{Status: rec.Status(), Record: rec})
			return
		}
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *HTTPHandler) handleConditions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conditions": h.service.Conditions(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeFault maps the error taxonomy onto HTTP statuses: not found and
// duplicates get their dedicated codes, resource pressure maps to 503
// so callers know to retry, internal faults stay opaque.
func writeFault(w http.ResponseWriter, err error) {
	var f *fault.Fault
	if !errors.As(err, &f) {
		logger.Log.WithError(err).Error("unhandled assessment error")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	status := http.StatusBadRequest
	switch {
	case f.Code == fault.CodeNotFound:
		status = http.StatusNotFound
	case f.Code == fault.CodeDuplicateJob:
		status = http.StatusConflict
	case f.Class == fault.ClassResource:
		status = http.StatusServiceUnavailable
	case f.Class == fault.ClassInternal:
		logger.Log.WithError(f).Error("internal assessment error")
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]interface{}{"error": errorDetail(f)})
}
