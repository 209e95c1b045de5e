package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Spok95/paperstock/internal/config"
	"github.com/Spok95/paperstock/internal/domain/catalog"
	"github.com/Spok95/paperstock/internal/domain/consumption"
	"github.com/Spok95/paperstock/internal/domain/issuance"
	"github.com/Spok95/paperstock/internal/domain/materials"
	"github.com/Spok95/paperstock/internal/domain/stock"
	"github.com/Spok95/paperstock/internal/infra/db"
	httpx "github.com/Spok95/paperstock/internal/infra/http"
	"github.com/Spok95/paperstock/internal/infra/logger"
	"github.com/Spok95/paperstock/internal/infra/metrics"
	"github.com/Spok95/paperstock/internal/infra/notify"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("paperstock", pflag.ExitOnError)
	config.Flags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.LoadWithFlags(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	loc := cfg.Location()

	if err := db.Migrate(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	log.Info("db connected")

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	} else {
		m = metrics.Nop()
	}

	notifier, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.AdminChatID, log)
	if err != nil {
		// склад работает и без уведомлений
		log.Warn("telegram unavailable", "err", err)
		notifier = notify.Nop{}
	}

	catalogRepo := catalog.NewRepo(pool)
	txRepo := consumption.NewRepo(pool)

	ledger := materials.NewLedger(materials.NewRepo(pool), log,
		materials.WithCatalog(catalogRepo),
		materials.WithMetrics(m),
		materials.WithPageSize(cfg.App.PageSize),
	)
	engine := issuance.NewEngine(ledger, issuance.NewRepo(pool), issuance.NewDraftRepo(pool), log,
		issuance.WithNotifier(notifier),
		issuance.WithMetrics(m),
		issuance.WithOverIssue(cfg.App.AllowOverIssue),
	)
	report := stock.NewService(ledger, txRepo, log, m, cfg.App.PageSize, loc)

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpx.NewRouter(httpx.Deps{
		Catalog:       catalogRepo,
		Ledger:        ledger,
		Issuance:      engine,
		Stock:         report,
		Transactions:  txRepo,
		Log:           log,
		Location:      loc,
		ExposeMetrics: cfg.Metrics.Enabled,
	})

	srv := httpx.New(cfg.HTTP.Addr, router)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr, "timezone", loc.String())

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
