package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/antisybil"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/config"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/data"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/engine"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/reputation"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/scheduler"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/treasury"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/webserver"
)

func main() {
	cfg := config.Load()
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	db := data.MustDatabase(cfg.DSN)
	if err := data.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := data.SeedTreasury(db, cfg.Challenge.InitialTreasuryBalance); err != nil {
		log.Fatalf("seed treasury: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb = data.MustRedis(cfg.RedisURL)
	}

	var source antisybil.Source = antisybil.StubSource{}
	if cfg.WalletRPCURL != "" {
		source = antisybil.NewRPCSource(cfg.WalletRPCURL)
	}

	store := data.NewStore(db, logger)
	gate := antisybil.NewGate(cfg.AntiSybil, source, rdb, logger)
	tre := treasury.New(db, logger)
	rep := reputation.NewTracker(db, logger)
	eng := engine.New(db, store, tre, rep, gate, cfg.Challenge, logger)

	ctx, cancel := context.WithCancel(context.Background())
	sweeper := scheduler.NewSweeper(eng, scheduler.Config{
		Interval: cfg.SweepInterval,
		Logger:   logger,
	})
	sweeper.Start(ctx)

	router := webserver.New(cfg, eng)
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("DOW challenge engine listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
