package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/LeonardoBeccarini/invernadero/internal/metrics"
	"github.com/LeonardoBeccarini/invernadero/internal/services/monitor/advisor"
	"github.com/LeonardoBeccarini/invernadero/internal/services/monitor/app"
	"github.com/LeonardoBeccarini/invernadero/internal/services/monitor/console"
	"github.com/LeonardoBeccarini/invernadero/internal/services/monitor/mirror"
	"github.com/LeonardoBeccarini/invernadero/internal/services/monitor/ops"
	"github.com/LeonardoBeccarini/invernadero/pkg/mqtt"
)

func main() {
	// .env opzionale, le variabili già esportate vincono
	_ = godotenv.Load()

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := log.New(os.Stderr, "monitor ", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	appCfg := app.Config{
		BaseURL:         cfg.BaseURL,
		HTTPTimeout:     time.Duration(cfg.HTTPTimeoutMs) * time.Millisecond,
		PollInterval:    cfg.PollInterval,
		Placeholder:     cfg.Placeholder,
		OperatorName:    cfg.OperatorName,
		AdvisorTerse:    cfg.AdvisorTerse,
		BreakerFailures: cfg.CBFails,
		BreakerOpenFor:  time.Duration(cfg.CBOpenMs) * time.Millisecond,
		BreakerInterval: time.Duration(cfg.CBIntervalMs) * time.Millisecond,
		Logger:          logger,
	}

	upstream, err := app.NewUpstream(appCfg, m)
	if err != nil {
		log.Fatalf("upstream: %v", err)
	}

	var adv app.Advisor = upstream
	if cfg.AdvisorBackend == BackendOpenAI {
		oa, err := advisor.NewOpenAI(advisor.Config{
			APIKey:  cfg.OpenAIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Logger:  logger,
		}, upstream)
		if err != nil {
			log.Fatalf("advisor: %v", err)
		}
		adv = oa
	}

	ui := app.NewDispatcher(64)
	term := console.New(os.Stdout)
	sinks := app.MultiSink{term}

	var broker ops.Broker
	var commands *mqtt.Consumer
	if cfg.MQTTHost != "" {
		client, err := mqtt.NewConn(ctx, mqtt.Config{
			Host:     cfg.MQTTHost,
			Port:     cfg.MQTTPort,
			User:     cfg.MQTTUser,
			Password: cfg.MQTTPassword,
			// suffisso univoco: più monitor sullo stesso broker
			ClientID: cfg.MQTTClientID + "-" + uuid.NewString()[:8],
			Logger:   logger,
		})
		if err != nil {
			// il mirror è accessorio: si continua senza
			logger.Printf("mirror disabled: %v", err)
		} else {
			broker = client
			mir := mirror.NewSink(
				mqtt.NewPublisher(client, mirror.Topic(cfg.MQTTPrefix, mirror.TopicDisplay), true),
				mqtt.NewPublisher(client, mirror.Topic(cfg.MQTTPrefix, mirror.TopicAdvice), false),
				time.Duration(cfg.MQTTDedupS)*time.Second,
				logger,
			)
			go mir.Run(ctx)
			sinks = append(sinks, mir)
			commands = mqtt.NewConsumer(client, mirror.Topic(cfg.MQTTPrefix, mirror.TopicCommand), logger)
		}
	}

	poller := app.NewPoller(upstream, ui, appCfg, m)
	screen := app.NewScreen(ctx, appCfg, ui, sinks, poller, upstream, adv, m)

	uiDone := make(chan struct{})
	go func() {
		defer close(uiDone)
		ui.Run(ctx)
	}()

	if commands != nil {
		go func() {
			if err := mirror.ServeCommands(ctx, commands, ui, screen, logger); err != nil {
				logger.Printf("mirror commands: %v", err)
			}
		}()
	}

	if cfg.OpsPort != "" {
		deps := ops.Deps{
			Poller:   poller,
			Breakers: upstream,
			Broker:   broker,
			MaxAge:   3 * cfg.PollInterval,
		}
		go func() {
			if err := ops.Serve(ctx, ":"+cfg.OpsPort, ops.NewRouter(deps, m.Handler()), os.Stdout, logger); err != nil {
				logger.Printf("ops server: %v", err)
			}
		}()
	}

	fmt.Fprintln(os.Stdout, app.Help)
	// la schermata è in primo piano da subito
	ui.Post(ctx, screen.Resume)

	err = term.ReadCommands(ctx, os.Stdin, ui, screen)
	switch {
	case err == nil:
		// stdin chiuso (servizio senza terminale): si resta in polling fino al segnale
		logger.Printf("stdin closed, polling until signal")
		<-ctx.Done()
	case errors.Is(err, console.ErrQuit), errors.Is(err, context.Canceled):
	default:
		logger.Printf("console: %v", err)
	}

	if !ui.Call(context.Background(), screen.Pause) {
		poller.Stop()
	}
	stop()
	<-uiDone
	logger.Printf("bye")
}
