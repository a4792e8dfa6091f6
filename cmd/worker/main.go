package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/api"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/config"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/database"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/market"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/service"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/worker"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/yahoo"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open the worker log database and bring its schema up to date
	db, err := database.Open(cfg.Storage.LogDB)
	if err != nil {
		log.Fatalf("Failed to open log database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate log database: %v", err)
	}

	layout, err := repository.NewLayout(cfg.Storage.DataDir, cfg.Storage.CacheDir)
	if err != nil {
		log.Fatalf("Failed to prepare data directories: %v", err)
	}

	// Create repositories
	portfolioRepo := repository.NewPortfolioRepository(layout)
	valuesRepo := repository.NewValuesRepository(layout)
	priceRepo := repository.NewPriceRepository(layout)
	seenRepo := repository.NewDividendSeenRepository(layout)
	logRepo := repository.NewLogRepository(db)
	dirtyStore := repository.NewFileDirtyStore(layout)

	// Create gateway and services
	gateway := market.NewGateway(yahoo.NewFinanceClient(), priceRepo)
	valuesService := service.NewValuesService(portfolioRepo, valuesRepo, gateway, dirtyStore)
	dividendService := service.NewDividendService(portfolioRepo, seenRepo, gateway)
	journalService := service.NewJournalService(portfolioRepo, valuesRepo)
	summaryService := service.NewSummaryService(portfolioRepo, valuesRepo, priceRepo)

	// Create the background worker
	hub := worker.NewProgressHub(logRepo)
	backgroundWorker := worker.New(
		portfolioRepo,
		valuesService,
		dividendService,
		journalService,
		gateway,
		hub,
		cfg.Worker.MaintenanceInterval,
		cfg.Worker.RealtimeInterval,
	)

	// Create router and HTTP server
	router := api.NewRouter(db, portfolioRepo, logRepo, valuesService, summaryService, backgroundWorker, cfg)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Nightly full refresh: ingest dividends, then rewarm everything.
	scheduler := cron.New()
	_, err = scheduler.AddFunc("30 6 * * *", func() {
		for _, task := range []model.Task{
			{ID: uuid.NewString(), Type: model.TaskIngestDividends},
			{ID: uuid.NewString(), Type: model.TaskWarmValues},
		} {
			if err := backgroundWorker.Enqueue(task); err != nil {
				log.Printf("Scheduled %s not enqueued: %v", task.Type, err)
			}
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule nightly refresh: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Starting worker (data: %s, cache: %s)", cfg.Storage.DataDir, cfg.Storage.CacheDir)
		if err := backgroundWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		scheduler.Start()
		<-ctx.Done()
		scheduler.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Exited with error: %v", err)
	}
	log.Println("Worker exited")
}
