package handlers

import (
	"net/http"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/api/request"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/api/response"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/apperrors"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
)

// DeveloperHandler exposes the worker log for debugging. The archived
// progress stream lets a developer reconstruct what the worker did without
// having watched the progress queue live.
type DeveloperHandler struct {
	logRepo *repository.LogRepository
}

// NewDeveloperHandler creates a new DeveloperHandler with the provided repository.
func NewDeveloperHandler(logRepo *repository.LogRepository) *DeveloperHandler {
	return &DeveloperHandler{logRepo: logRepo}
}

// GetLogs returns worker log entries matching the query filters.
func (h *DeveloperHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	filters, err := request.ParseLogFilters(
		r.URL.Query().Get("level"),
		r.URL.Query().Get("category"),
		r.URL.Query().Get("startDate"),
		r.URL.Query().Get("endDate"),
		r.URL.Query().Get("source"),
		r.URL.Query().Get("message"),
		r.URL.Query().Get("sortDir"),
		r.URL.Query().Get("limit"),
	)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "Invalid filter parameters", err.Error())
		return
	}

	logs, err := h.logRepo.Query(r.Context(), filters)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveLogs.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, logs)
}
