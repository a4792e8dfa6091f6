package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/api/handlers"
	custommiddleware "github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/api/middleware"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/config"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/service"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/worker"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	db *sql.DB,
	portfolioRepo *repository.PortfolioRepository,
	logRepo *repository.LogRepository,
	valuesService *service.ValuesService,
	summaryService *service.SummaryService,
	backgroundWorker *worker.Worker,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(db)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/worker", func(r chi.Router) {
			workerHandler := handlers.NewWorkerHandler(backgroundWorker)
			r.Post("/task", workerHandler.SubmitTask)
			r.Get("/progress", workerHandler.Progress)
		})

		r.Route("/portfolio", func(r chi.Router) {
			portfolioHandler := handlers.NewPortfolioHandler(portfolioRepo, valuesService, summaryService, backgroundWorker)
			r.Get("/", portfolioHandler.Portfolios)
			r.Get("/summary", portfolioHandler.Summary)
			r.Get("/values", portfolioHandler.Values)
			r.Post("/event", portfolioHandler.AppendEvent)
		})

		developerHandler := handlers.NewDeveloperHandler(logRepo)
		r.Get("/logs", developerHandler.GetLogs)
	})

	return r
}
