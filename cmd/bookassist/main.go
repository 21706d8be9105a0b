package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	openai "github.com/sashabaranov/go-openai"

	"github.com/invizible/bookassist/internal/app"
	"github.com/invizible/bookassist/internal/calendar"
	"github.com/invizible/bookassist/internal/chat"
	"github.com/invizible/bookassist/internal/clock"
	"github.com/invizible/bookassist/internal/config"
	transporthttp "github.com/invizible/bookassist/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()

	configPath := flag.String("config", "", "path to bookassist.toml (optional)")
	sweepOnce := flag.Bool("sweep-once", false, "run a single sweep pass and exit")
	dryRun := flag.Bool("dry-run", false, "with -sweep-once, compute actions without mutating")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, err := calendar.NewGoogleGateway(ctx, calendar.Credentials{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURI:  cfg.Google.RedirectURI,
		RefreshToken: cfg.Google.RefreshToken,
	})
	if err != nil {
		log.Fatalf("calendar gateway: %v", err)
	}

	clk := clock.NewSystem()
	holdSvc := app.NewHoldService(gateway, clk,
		app.WithDefaultCalendar(cfg.Calendar.ID),
		app.WithDefaultTimeZone(cfg.Calendar.TimeZone),
		app.WithHoldTTL(time.Duration(cfg.Calendar.HoldTTLMinutes)*time.Minute),
	)
	sweepSvc := app.NewSweepService(gateway, clk, cfg.Calendar.ID)
	statusSvc := app.NewStatusService(gateway, clk, cfg.Calendar.ID)

	if *sweepOnce {
		result, err := sweepSvc.Sweep(ctx, app.SweepInput{
			SendUpdates: cfg.Sweep.SendUpdates,
			DryRun:      *dryRun,
			SinceDays:   1,
		})
		if err != nil {
			log.Fatalf("sweep: %v", err)
		}
		out, _ := json.MarshalIndent(result, "", "  ")
		os.Stdout.Write(append(out, '\n'))
		return
	}

	var orchestrator *chat.Orchestrator
	if cfg.Chat.APIKey != "" {
		orchestrator = chat.NewOrchestrator(
			openai.NewClient(cfg.Chat.APIKey),
			gateway,
			holdSvc,
			chat.Config{
				Model:             cfg.Chat.Model,
				Temperature:       float32(cfg.Chat.Temperature),
				DefaultCalendarID: cfg.Calendar.ID,
				DefaultTimeZone:   cfg.Calendar.TimeZone,
				DefaultTTLMinutes: cfg.Calendar.HoldTTLMinutes,
			},
		)
	} else {
		logger.Printf("WARN: OPENAI_API_KEY not set, chat endpoint disabled")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", transporthttp.HealthHandler)
	mux.Handle("/api/hold", transporthttp.HandleHold(holdSvc))
	mux.Handle("/api/availability", transporthttp.HandleAvailability(gateway, cfg.Calendar.ID, cfg.Calendar.TimeZone))
	mux.Handle("/api/sweep", transporthttp.HandleSweep(sweepSvc, cfg.Sweep.Secret))
	mux.Handle("/api/holds/status", transporthttp.HandleHoldsStatus(statusSvc))
	mux.Handle("/api/events/list", transporthttp.HandleEventsList(statusSvc))
	mux.Handle("/api/diag/calendar", transporthttp.HandleDiagCalendar(gateway, cfg.Sweep.Secret, cfg.Calendar.ID, cfg.Calendar.TimeZone))
	if orchestrator != nil {
		mux.Handle("/api/chat", transporthttp.HandleChat(orchestrator))
	}

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	var scheduler *cron.Cron
	if cfg.Sweep.Cron != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.Sweep.Cron, func() {
			// Look back a day so holds whose slot already passed still expire.
			result, err := sweepSvc.Sweep(context.Background(), app.SweepInput{
				SendUpdates: cfg.Sweep.SendUpdates,
				SinceDays:   1,
			})
			if err != nil {
				logger.Printf("sweep error: %v (examined=%d)", err, result.Examined)
				return
			}
			logger.Printf("sweep done examined=%d confirmed=%d deleted=%d",
				result.Examined, result.Confirmed, result.Deleted)
		})
		if err != nil {
			log.Fatalf("sweep schedule %q: %v", cfg.Sweep.Cron, err)
		}
		scheduler.Start()
		logger.Printf("sweep scheduled: %s", cfg.Sweep.Cron)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	logger.Printf("bookassist listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server error: %v", err)
		}
	case <-ctx.Done():
		logger.Printf("shutdown signal received, stopping server")
	}

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("server shutdown error: %v", err)
	}
	logger.Printf("server stopped")
}
