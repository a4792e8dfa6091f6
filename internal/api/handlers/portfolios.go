package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/api/request"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/apperrors"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/api/response"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/service"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/validation"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/worker"
)

// PortfolioHandler handles portfolio read endpoints and the event append
// mutation. Appending an event is the UI write path: it updates the event log,
// marks the symbol dirty, and enqueues a warm task; the worker owns every
// derived cache write.
type PortfolioHandler struct {
	portfolioRepo  *repository.PortfolioRepository
	valuesService  *service.ValuesService
	summaryService *service.SummaryService
	worker         *worker.Worker
}

// NewPortfolioHandler creates a new PortfolioHandler with the provided dependencies.
func NewPortfolioHandler(
	portfolioRepo *repository.PortfolioRepository,
	valuesService *service.ValuesService,
	summaryService *service.SummaryService,
	w *worker.Worker,
) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioRepo:  portfolioRepo,
		valuesService:  valuesService,
		summaryService: summaryService,
		worker:         w,
	}
}

// PortfolioListing is one entry of the portfolio list response.
type PortfolioListing struct {
	Path             string   `json:"path"`
	Name             string   `json:"name"`
	DividendReinvest bool     `json:"dividendReinvest"`
	Symbols          []string `json:"symbols"`
}

// Portfolios lists all portfolio files with their symbols.
func (h *PortfolioHandler) Portfolios(w http.ResponseWriter, r *http.Request) {
	listings := []PortfolioListing{}
	for _, path := range h.portfolioRepo.List() {
		portfolio, err := h.portfolioRepo.Load(path)
		if err != nil {
			response.RespondError(w, http.StatusInternalServerError, "failed to load portfolio", err.Error())
			return
		}
		listings = append(listings, PortfolioListing{
			Path:             path,
			Name:             portfolio.Name,
			DividendReinvest: portfolio.DividendReinvest,
			Symbols:          portfolio.Symbols(),
		})
	}
	response.RespondJSON(w, http.StatusOK, listings)
}

// Summary returns the per-holding summary for one portfolio file.
func (h *PortfolioHandler) Summary(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	summary, err := h.summaryService.Summarize(path)
	if err != nil {
		if errors.Is(err, apperrors.ErrPortfolioNotFound) {
			response.RespondError(w, http.StatusNotFound, err.Error(), nil)
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to summarize portfolio", err.Error())
		return
	}
	response.RespondJSON(w, http.StatusOK, summary)
}

// Values returns a symbol's cached value series.
func (h *PortfolioHandler) Values(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidSymbol.Error(), nil)
		return
	}
	rows, err := h.valuesService.Read(symbol)
	if err != nil {
		if errors.Is(err, apperrors.ErrHoldingNotFound) || errors.Is(err, apperrors.ErrValuesCacheNotFound) {
			response.RespondError(w, http.StatusNotFound, err.Error(), nil)
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to read values", err.Error())
		return
	}
	response.RespondJSON(w, http.StatusOK, rows)
}

// AppendEvent validates and appends one event to a portfolio file, then marks
// the affected symbol dirty and enqueues a warm task.
func (h *PortfolioHandler) AppendEvent(w http.ResponseWriter, r *http.Request) {
	var req request.AppendEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateAppendEvent(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	portfolio, err := h.portfolioRepo.Load(req.Path)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to load portfolio", err.Error())
		return
	}

	event := model.Event{
		Date:   strings.TrimSpace(req.Date),
		Type:   model.EventType(req.Type),
		Shares: req.Shares,
		Price:  req.Price,
		Amount: req.Amount,
		Note:   req.Note,
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol != "" {
		holding := portfolio.EnsureHolding(symbol)
		holding.Events = append(holding.Events, event)
	} else {
		portfolio.CashEvents = append(portfolio.CashEvents, event)
	}

	if err := h.portfolioRepo.Save(portfolio, req.Path); err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to save portfolio", err.Error())
		return
	}

	if symbol != "" {
		if err := h.valuesService.MarkDirty(symbol); err != nil {
			response.RespondError(w, http.StatusInternalServerError, "failed to mark symbol dirty", err.Error())
			return
		}
		// Prefetch before warming so a symbol appended for the first time has
		// a price history to value against.
		_ = h.worker.Enqueue(model.Task{
			ID:     uuid.NewString(),
			Type:   model.TaskPrefetchSymbol,
			Symbol: symbol,
		})
	}

	// Best effort: valuation refresh also happens on the maintenance timer.
	_ = h.worker.Enqueue(model.Task{
		ID:   uuid.NewString(),
		Type: model.TaskWarmValues,
		Path: req.Path,
	})

	response.RespondJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}
