package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fairwaylab/coursemapper/internal/changefeed"
	"github.com/fairwaylab/coursemapper/internal/config"
	"github.com/fairwaylab/coursemapper/internal/editor"
	"github.com/fairwaylab/coursemapper/internal/gateway"
	"github.com/fairwaylab/coursemapper/internal/gateway/redisstore"
	"github.com/fairwaylab/coursemapper/internal/history"
	"github.com/fairwaylab/coursemapper/internal/logger"
	"github.com/fairwaylab/coursemapper/internal/metrics"
	"github.com/fairwaylab/coursemapper/internal/observability"
	"github.com/fairwaylab/coursemapper/internal/server"
	"github.com/fairwaylab/coursemapper/internal/store"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "coursemapperd",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting coursemapperd",
		"addr", cfg.Addr,
		"version", Version,
		"redis", cfg.RedisAddr,
		"autosave_interval", cfg.AutosaveInterval.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	cli, err := redisstore.New(connectCtx, cfg.RedisAddr)
	cancel()
	if err != nil {
		appLog.Error("redis connect failed", "err", err)
		return 1
	}
	defer func() { _ = cli.Close() }()

	gw, err := gateway.NewRedisCourseStore(cli, cfg.GatewayCacheSize, appLog)
	if err != nil {
		appLog.Error("gateway setup failed", "err", err)
		return 1
	}

	st := store.New()
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	courses, err := gw.LoadAll(loadCtx)
	cancel()
	if err != nil {
		appLog.Error("initial load failed", "err", err)
		return 1
	}
	st.ReplaceAll(courses)
	appLog.Info("courses loaded", "count", len(courses))

	ed := editor.New(st, appLog)
	hist := history.New(st, cfg.HistoryCapacity)

	source := logger.NewID()

	var notify gateway.Notifier
	if cfg.Changefeed.Enabled {
		pub, err := changefeed.NewPublisher(cfg.Changefeed.BrokerList(), cfg.Changefeed.Topic, source, appLog)
		if err != nil {
			appLog.Error("changefeed publisher setup failed", "err", err)
			return 1
		}
		defer func() { _ = pub.Close() }()
		notify = pub

		if inv, ok := gw.(changefeed.Invalidator); ok {
			consumer := changefeed.NewConsumer(changefeed.Config{
				Brokers: cfg.Changefeed.BrokerList(),
				Topic:   cfg.Changefeed.Topic,
				GroupID: cfg.Changefeed.GroupID,
				Source:  source,
			}, appLog, inv)
			go func() {
				if err := consumer.Start(ctx); err != nil {
					appLog.Error("changefeed consumer stopped", "err", err)
				}
			}()
		}
	}

	autosaver := gateway.NewAutosaver(st, gw, notify, cfg.AutosaveInterval, appLog)
	go autosaver.Run(ctx)

	deps := server.Deps{
		Store:   st,
		Editor:  ed,
		History: hist,
		Gateway: gw,
		Notify:  notify,
		Ready: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return cli.Ping(pingCtx)
		},
	}
	if cfg.MetricsEnabled {
		deps.Metrics = metrics.Init(metrics.Config{Path: cfg.MetricsPath}).Handler()
	}

	if err := server.Run(ctx, cfg, appLog, deps); err != nil {
		appLog.Error("server error", "err", err)
		return 1
	}
	return 0
}
