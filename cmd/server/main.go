package main

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/cryptogram/internal/api"
	"github.com/vytor/cryptogram/internal/cipher"
	"github.com/vytor/cryptogram/internal/config"
	"github.com/vytor/cryptogram/internal/db"
	"github.com/vytor/cryptogram/internal/logger"
	"github.com/vytor/cryptogram/internal/repository/sqlite"
	"github.com/vytor/cryptogram/internal/seed"
	"github.com/vytor/cryptogram/internal/services"
	"github.com/vytor/cryptogram/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	if err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}

	log.Info("cryptogram server starting")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("user_id=%s", cfg.UserID)
	log.Debug("max_mistakes=%d", cfg.MaxMistakes)
	log.Debug("write_queue_size=%d", cfg.WriteQueueSize)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	seedValue := cfg.RandomSeed
	if seedValue == 0 {
		seedValue = randomSeed()
	}

	quoteRepo := sqlite.NewQuoteRepository(database.DB, rand.New(rand.NewSource(seedValue)))
	sessionRepo := sqlite.NewSessionRepository(database.DB)
	statsRepo := sqlite.NewStatisticsRepository(database.DB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.SeedQuotes {
		n, err := seed.IfEmpty(ctx, quoteRepo)
		if err != nil {
			log.Error("failed to seed quotes: %v", err)
			os.Exit(1)
		}
		if n > 0 {
			log.Info("seeded %d quotes", n)
		}
	}

	// One writer keeps statistics updates strictly sequential.
	writePool := worker.NewPool(1, cfg.WriteQueueSize)
	writePool.Start(ctx)

	engine := cipher.New(cipher.WithSeed(seedValue + 1))
	quoteService := services.NewQuoteService(quoteRepo, cfg.DailySalt)
	statsService := services.NewStatsService(statsRepo, writePool)
	gameService := services.NewGameService(engine, quoteService, sessionRepo, statsService, services.GameOptions{
		UserID:      cfg.UserID,
		MaxMistakes: cfg.MaxMistakes,
	})

	srv := &api.Server{
		GameService:  gameService,
		QuoteService: quoteService,
		StatsService: statsService,
		DB:           database,
		WriteQueue:   writePool,
		UserID:       cfg.UserID,
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	// Pending statistics writes drain before the database closes.
	log.Debug("stopping write pool")
	writePool.Stop()

	log.Info("cryptogram server stopped")
}

func randomSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
