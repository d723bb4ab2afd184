// Command orderdesk runs the order management API: it wires the order
// store, the OPAC gateways, the per-user lock, and the notification
// dispatcher into the HTTP server and handles graceful shutdown.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/liblend/orderdesk/internal/features/command/advanceorder"
	"github.com/liblend/orderdesk/internal/features/command/placeorder"
	"github.com/liblend/orderdesk/internal/features/command/updateorder"
	"github.com/liblend/orderdesk/internal/features/command/withdraworder"
	"github.com/liblend/orderdesk/internal/features/query/borrowedbooks"
	"github.com/liblend/orderdesk/internal/features/query/checkorder"
	"github.com/liblend/orderdesk/internal/features/query/listorders"
	"github.com/liblend/orderdesk/internal/features/query/ordersbystatus"
	"github.com/liblend/orderdesk/internal/features/query/orderstats"
	"github.com/liblend/orderdesk/internal/shell/config"
	"github.com/liblend/orderdesk/internal/shell/httpapi"
	"github.com/liblend/orderdesk/internal/shell/notify"
	"github.com/liblend/orderdesk/internal/shell/opac"
	"github.com/liblend/orderdesk/internal/shell/orderstore"
	"github.com/liblend/orderdesk/internal/shell/userlock"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("service failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, loadErr := config.Load(configPath)
	if loadErr != nil {
		return loadErr
	}

	logger := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, poolErr := config.NewPGXPool(ctx, cfg.Postgres)
	if poolErr != nil {
		return poolErr
	}
	defer pool.Close()

	redisClient, redisErr := config.NewRedisClient(ctx, cfg.Redis)
	if redisErr != nil {
		return redisErr
	}
	defer func() { _ = redisClient.Close() }()

	store, storeErr := orderstore.NewFromPGXPool(pool, orderstore.WithLogger(logger))
	if storeErr != nil {
		return storeErr
	}

	if cfg.Postgres.EnsureSchema {
		if schemaErr := store.EnsureSchema(ctx); schemaErr != nil {
			return schemaErr
		}
	}

	opacClient := opac.NewClient(
		cfg.OPAC.BaseURL,
		cfg.OPAC.InternalToken,
		cfg.OPAC.Collections,
		opac.WithTimeout(cfg.OPAC.Timeout),
		opac.WithLogger(logger),
	)

	locker := newLocker(cfg.Lock, pool, logger)
	dispatcher := newDispatcher(cfg.Notify, logger)

	handlers := buildHandlers(store, opacClient, locker, dispatcher)

	sessions := httpapi.NewSessionCache(redisClient, cfg.Redis.ProfileTTL)

	serverOpts := []httpapi.Option{httpapi.WithLogger(logger)}
	if dispatcher != nil {
		serverOpts = append(serverOpts, httpapi.WithDigest(dispatcher))
	}

	api := httpapi.NewServer(handlers, opacClient, sessions, serverOpts...)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		serveErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			return shutdownErr
		}

		return nil
	case serveErr := <-serveErrCh:
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}

		return nil
	}
}

func buildHandlers(
	store orderstore.OrderStore,
	opacClient *opac.Client,
	locker userlock.Locker,
	dispatcher *notify.Dispatcher,
) httpapi.Handlers {

	var placeOpts []placeorder.Option
	var advanceOpts []advanceorder.Option
	if dispatcher != nil {
		placeOpts = append(placeOpts, placeorder.WithNotifier(dispatcher))
		advanceOpts = append(advanceOpts, advanceorder.WithNotifier(dispatcher, opacClient))
	}

	place := placeorder.NewCommandHandler(store, opacClient, locker, placeOpts...)
	update := updateorder.NewCommandHandler(store, opacClient, locker)
	withdraw := withdraworder.NewCommandHandler(store, locker)
	advance := advanceorder.NewCommandHandler(store, opacClient, locker, advanceOpts...)

	list := listorders.NewQueryHandler(store)
	staffBoard := ordersbystatus.NewQueryHandler(store)
	check := checkorder.NewQueryHandler(store, opacClient)
	borrowed := borrowedbooks.NewQueryHandler(store)
	stats := orderstats.NewQueryHandler(store)

	return httpapi.Handlers{
		PlaceOrder:    place,
		UpdateOrder:   update,
		WithdrawOrder: withdraw,
		AdvanceOrder:  advance,
		ListOrders:    list,
		StaffOrders:   staffBoard,
		CheckOrder:    check,
		BorrowedBooks: borrowed,
		OrderStats:    stats,
	}
}

func newLocker(cfg config.LockConfig, pool *pgxpool.Pool, logger *slog.Logger) userlock.Locker {
	var locker userlock.Locker
	if cfg.Backend == config.LockBackendAdvisory {
		locker = userlock.NewAdvisoryLocker(pool, logger)
	} else {
		locker = userlock.NewInProcessLocker()
	}

	return userlock.WithTimeout(locker, cfg.AcquireTimeout)
}

func newDispatcher(cfg config.NotifyConfig, logger *slog.Logger) *notify.Dispatcher {
	if !cfg.Enabled {
		return nil
	}

	sender := notify.NewSMTPSender(cfg.SMTPAddr, cfg.From, nil)
	hours := notify.WorkingHours{
		WeekdayStart:  cfg.WeekdayStart,
		WeekdayEnd:    cfg.WeekdayEnd,
		SaturdayStart: cfg.SaturdayStart,
		SaturdayEnd:   cfg.SaturdayEnd,
	}

	return notify.NewDispatcher(sender, hours, cfg.StaffMail, notify.WithLogger(logger))
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, options)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, options)
	}

	return slog.New(handler)
}
