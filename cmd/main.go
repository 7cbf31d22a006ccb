package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"transcriptor/pkg/api"
	"transcriptor/pkg/budget"
	"transcriptor/pkg/config"
	"transcriptor/pkg/history"
	"transcriptor/pkg/logging"
	"transcriptor/pkg/storage"
	"transcriptor/pkg/transcribe"
)

func main() {
	logger := logging.New("transcriptor")
	cfg := config.Load()

	store, err := storage.NewStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer store.Close()

	ledger := budget.NewLedger(store, cfg.Budget.DailyLimitUSD)
	hist := history.NewLog(store)
	jobs := storage.NewJobStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := transcribe.NewEngine(cfg, ledger, nil)
	handlers := api.NewHandlers(ctx, engine, jobs, ledger, hist,
		filepath.Join(cfg.CacheDir, "uploads"))

	router := mux.NewRouter()
	router.HandleFunc("/transcriptions", handlers.SubmitHandler).Methods("POST")
	router.HandleFunc("/transcriptions/{id}", handlers.GetJobHandler).Methods("GET")
	router.HandleFunc("/transcriptions/{id}/srt", handlers.GetSRTHandler).Methods("GET")
	router.HandleFunc("/transcriptions/{id}/text", handlers.GetTextHandler).Methods("GET")
	router.HandleFunc("/budget", handlers.GetBudgetHandler).Methods("GET")
	router.HandleFunc("/budget/limit", handlers.SetBudgetLimitHandler).Methods("PUT")
	router.HandleFunc("/history", handlers.GetHistoryHandler).Methods("GET")
	router.HandleFunc("/models", handlers.GetModelsHandler).Methods("GET")
	router.HandleFunc("/ws", handlers.WebSocketHandler)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel() // interrupts in-flight transcriptions between pipeline steps

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", "error", err)
	}

	logger.Info("server exited")
}
