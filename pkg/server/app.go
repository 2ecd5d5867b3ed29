package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"LendPulse/internal/usecase"
	pkgch "LendPulse/pkg/clickhouse"
	"LendPulse/pkg/config"
	xhttp "LendPulse/pkg/http"
	pkgkafka "LendPulse/pkg/kafka"
	applogger "LendPulse/pkg/logger"
	pkgqueue "LendPulse/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	collector   *usecase.AccountCollector
	scanner     *usecase.ObligationScanner
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	recheck     *pkgqueue.RedisQueue
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	ReportProc  *usecase.ReportProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	collector *usecase.AccountCollector,
	scanner *usecase.ObligationScanner,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	recheck *pkgqueue.RedisQueue,
) *App {
	return &App{
		cfg:       cfg,
		collector: collector,
		scanner:   scanner,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
		recheck:   recheck,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// init app logger (console info by default)
	l, _ := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})

	// Setup Echo HTTP server using pkg/http and register routes via handler
	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start the account stream collector
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("account collector started",
			applogger.String("program", a.cfg.RPC.Program),
			applogger.String("market", a.cfg.Monitor.Market))
	}

	// Start the periodic market scanner
	if a.scanner != nil {
		go func() {
			if err := a.scanner.Run(ctx); err != nil {
				l.Error("scanner error", applogger.Error(err))
			}
		}()
		l.Info("obligation scanner started", applogger.String("market", a.cfg.Monitor.Market))
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start recheck queue workers
	if a.recheck != nil {
		if err := a.recheck.Start(); err != nil {
			l.Error("recheck queue start error", applogger.Error(err))
		} else {
			a.recheck.StartRetryProcessor()
			l.Info("recheck queue workers started")
		}
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return err
	}
	l.Info("shutting down...")

	// Stop collector (pipeline + stream)
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop recheck workers before closing their backing stores
	if a.recheck != nil {
		if err := a.recheck.Stop(shutdownCtx); err != nil {
			l.Warn("recheck queue stop error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close report processor resources (publisher/storage)
	if a.ReportProc != nil {
		a.ReportProc.Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
