package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"catat/internal/backend"
	"catat/internal/cli"
	apphttp "catat/internal/http"
	"catat/internal/ledger"
	applog "catat/internal/log"
	"catat/internal/notifier"
	"catat/internal/scheduler"
	"catat/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger := cli.LoadConfig(applog.ComponentApp)
	cli.MustValidate(logger, cfg.Validate())

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	var bookOpts []ledger.Option
	if res.Publisher != nil {
		bookOpts = append(bookOpts, ledger.WithPublisher(res.Publisher))
	}
	book := ledger.NewBook(res.Ledger, bookOpts...)

	whatsapp := notifier.NewWhatsAppClient(cfg.GraphAPIBaseURL, cfg.PhoneNumberID, cfg.PageAccessToken, cfg.NotifyTimeout)
	var caller services.Caller
	if cfg.VoiceEnabled() {
		caller = notifier.NewTwilioCaller(cfg.TwilioAPIBaseURL, cfg.TwilioAccountSID, cfg.TwilioAuthToken,
			cfg.TwilioPhoneNumber, cfg.VoiceScriptURL, cfg.NotifyTimeout)
	} else {
		logger.Info("Twilio not configured, reminders will not place calls")
	}
	delivery := services.NewReminderDelivery(whatsapp, caller)

	var schedOpts []scheduler.Option
	if res.Reminders != nil {
		schedOpts = append(schedOpts, scheduler.WithStore(res.Reminders))
	} else {
		logger.Warn("Reminders are kept in memory and will be lost on restart", "backend", res.Type)
	}
	sched := scheduler.New(delivery.Deliver, schedOpts...)
	if n, err := sched.Restore(ctx); err != nil {
		logger.Error("Failed to restore reminders", applog.FieldError, err)
	} else if n > 0 {
		logger.Info("Reminders restored", "count", n)
	}

	executor := services.NewExecutor(book, sched, services.WithLocation(cfg.Location()))

	ready := make(map[string]apphttp.ReadinessCheck, len(res.Ready))
	for name, check := range res.Ready {
		ready[name] = apphttp.ReadinessCheck(check)
	}
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Executor:    executor,
		Messenger:   whatsapp,
		VerifyToken: cfg.VerifyToken,
		Logger:      logger,
		Ready:       ready,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting catat server",
			applog.FieldOperation, applog.OpStartup,
			"port", cfg.Port,
			"backend", res.Type,
			"events", res.Publisher != nil,
			"voice", cfg.VoiceEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Stop intake first so no new reminders arrive while timers drain.
		err := srv.Shutdown(shutdownCtx)
		if serr := sched.Stop(shutdownCtx); serr != nil {
			err = errors.Join(err, serr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
