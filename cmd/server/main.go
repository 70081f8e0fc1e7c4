package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-coordinator/internal/config"
	"github.com/iliyamo/seat-hold-coordinator/internal/database"
	"github.com/iliyamo/seat-hold-coordinator/internal/handler"
	"github.com/iliyamo/seat-hold-coordinator/internal/logger"
	"github.com/iliyamo/seat-hold-coordinator/internal/middleware"
	"github.com/iliyamo/seat-hold-coordinator/internal/repository"
	"github.com/iliyamo/seat-hold-coordinator/internal/router"
	"github.com/iliyamo/seat-hold-coordinator/internal/service"
	"github.com/iliyamo/seat-hold-coordinator/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New("seat-hold-coordinator", cfg.Env)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	if err := utils.CheckAdminKeyHash(cfg.AdminKeyHash); err != nil {
		return err
	}
	if cfg.AdminKeyHash == "" {
		log.Warn("ADMIN_KEY_HASH not set; admin login disabled")
	}

	opts := service.Options{
		HoldDuration: cfg.Hold.Duration,
		SaveTimeout:  cfg.Hold.SaveTimeout,
		Logger:       log,
	}

	// Catalog and booking storage: MySQL when configured, otherwise a
	// generated grid and process memory.
	var catalog service.CatalogSource = service.GridCatalog{
		Keys: cfg.Hold.ChartKeys,
		Rows: cfg.Hold.ChartRows,
		Cols: cfg.Hold.ChartCols,
	}
	var booked service.BookedSeatSource
	if cfg.DBEnabled() {
		db, err := database.Open(ctx, database.Options{
			User:            cfg.DBUser,
			Pass:            cfg.DBPass,
			Host:            cfg.DBHost,
			Port:            cfg.DBPort,
			Name:            cfg.DBName,
			MaxOpenConns:    cfg.DBPool.MaxOpenConns,
			MaxIdleConns:    cfg.DBPool.MaxIdleConns,
			ConnMaxLifetime: cfg.DBPool.ConnMaxLifetime,
			PingTimeout:     cfg.DBPool.PingTimeout,
		})
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			return err
		}
		bookings := repository.NewBookingRepo(db)
		catalog = repository.NewCatalogRepo(db)
		booked = bookings
		opts.Bookings = bookings
		log.Info("mysql storage enabled", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
	} else {
		log.Warn("DB_HOST not set; bookings are kept in memory only")
	}

	if cfg.Queue.Enabled {
		pub := service.NewAMQPPublisher(cfg.Queue.URL, log)
		defer pub.Close()
		opts.Events = pub
	}

	charts, err := service.LoadCharts(ctx, catalog, booked, opts)
	if err != nil {
		return err
	}
	if len(charts.Keys()) == 0 {
		log.Warn("no charts loaded")
	}

	sweeper, err := service.NewSweeper(charts, cfg.Hold.SweepInterval, log)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer func() { _ = sweeper.Shutdown() }()

	rdb := config.NewRedisClient(ctx)
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Warn("redis unavailable; rate limiting and caching disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.HTTPTimeout
	e.Server.WriteTimeout = cfg.HTTPTimeout
	e.Validator = handler.NewRequestValidator()
	e.Use(middleware.RequestID(), middleware.Logger(log))

	router.Register(e, router.Deps{
		JWTSecret: cfg.JWTSecret,
		RateLimit: cfg.RateLimit,
		Cache:     cfg.Cache,
		Redis:     rdb,
		Logger:    log,
		Sessions:  handler.NewSessionHandler(cfg.JWTSecret, cfg.SessionTTL),
		Charts:    handler.NewChartHandler(charts),
		Admin:     handler.NewAdminHandler(cfg.JWTSecret, cfg.AdminKeyHash, charts, sweeper),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
			zap.Strings("charts", charts.Keys()), zap.Duration("hold", cfg.Hold.Duration))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
