package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/api/request"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/api/response"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/apperrors"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/validation"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/worker"
)

// WorkerHandler exposes the worker's task queue and progress stream over HTTP.
// It plays the UI side of the two message channels.
type WorkerHandler struct {
	worker *worker.Worker
}

// NewWorkerHandler creates a new WorkerHandler with the provided worker.
func NewWorkerHandler(w *worker.Worker) *WorkerHandler {
	return &WorkerHandler{worker: w}
}

// SubmitTask validates and enqueues a task, returning its assigned ID.
func (h *WorkerHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateSubmitTask(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	task := model.Task{
		ID:          uuid.NewString(),
		Type:        model.TaskType(strings.TrimSpace(req.Type)),
		Path:        req.Path,
		Symbol:      strings.ToUpper(strings.TrimSpace(req.Symbol)),
		PreferCache: req.PreferCache,
	}
	if err := h.worker.Enqueue(task); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, apperrors.ErrQueueFull) {
			status = http.StatusTooManyRequests
		}
		response.RespondError(w, status, "failed to enqueue task", err.Error())
		return
	}
	response.RespondJSON(w, http.StatusAccepted, map[string]string{"id": task.ID})
}

// Progress drains progress messages newer than the `after` cursor.
func (h *WorkerHandler) Progress(w http.ResponseWriter, r *http.Request) {
	after := int64(0)
	if param := r.URL.Query().Get("after"); param != "" {
		parsed, err := strconv.ParseInt(param, 10, 64)
		if err != nil || parsed < 0 {
			response.RespondError(w, http.StatusBadRequest, "invalid after cursor", param)
			return
		}
		after = parsed
	}

	messages := h.worker.Hub().After(after)
	response.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"latest":   h.worker.Hub().LatestSeq(),
	})
}
