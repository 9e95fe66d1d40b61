package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zllovesuki/subpulse/auth"
	"github.com/zllovesuki/subpulse/broker"
	"github.com/zllovesuki/subpulse/config"
	"github.com/zllovesuki/subpulse/db"
	"github.com/zllovesuki/subpulse/external"
	"github.com/zllovesuki/subpulse/report"
	"github.com/zllovesuki/subpulse/sink"
	"github.com/zllovesuki/subpulse/source"
	"github.com/zllovesuki/subpulse/spec"
	"github.com/zllovesuki/subpulse/task"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v7"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Build-time injected variables
var (
	Version = ""
)

func main() {
	var logger *zap.Logger
	var environment string
	var dotFile string
	var err error

	configPath := flag.String("config", "", "path to the configuration file")
	once := flag.Bool("once", false, "compute a single report, print it and exit")
	issueToken := flag.String("issue-token", "", "print a report API token for the given subject and exit")
	flag.Parse()

	// Determine running environment and initialize structural logger
	env := os.Getenv("ENV")
	if "production" == env {
		dotFile = ".env.production"
		environment = "production"
		logger, err = zap.NewProduction()
	} else {
		dotFile = ".env.development"
		environment = "development"
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		log.Fatalf("Cannot initialize logger: %v\n", err)
	}
	logger = logger.With(zap.String("Version", Version))

	// Initialize sentry for error reporting
	if err := sentry.Init(sentry.ClientOptions{
		Environment: environment,
		Debug:       environment == "development",
	}); err != nil {
		log.Fatalf("Cannot initialize sentry: %v\n", err)
	}
	defer sentry.Flush(time.Second * 2)

	// Attach sentry to zap so we can do automatic error capturing
	cfg := zapsentry.Configuration{
		Level: zapcore.ErrorLevel,
		Tags: map[string]string{
			"component": "reporter",
		},
	}
	core, err := zapsentry.NewCore(cfg, zapsentry.NewSentryClientFromClient(sentry.CurrentHub().Client()))
	if err != nil {
		logger.Warn("Cannot attach sentry to logger",
			zap.Error(err),
		)
	} else {
		logger = zapsentry.AttachCoreToLogger(core, logger)
	}

	defer logger.Sync()

	// Load secrets from dotFile, the config file and SUBPULSE_* variables may provide them instead
	if err := godotenv.Load(dotFile); err != nil {
		logger.Info("No .env file loaded",
			zap.String("File", dotFile),
		)
	}

	conf, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Cannot load configuration",
			zap.Error(err),
		)
	}
	windows, err := conf.Definitions()
	if err != nil {
		logger.Fatal("Invalid window configuration",
			zap.Error(err),
		)
	}
	location, err := conf.Location()
	if err != nil {
		logger.Fatal("Invalid timezone",
			zap.Error(err),
		)
	}
	plans, err := conf.PlanSet()
	if err != nil {
		logger.Fatal("Invalid plans",
			zap.Error(err),
		)
	}
	filter, err := conf.Predicate()
	if err != nil {
		logger.Fatal("Invalid customer filter",
			zap.Error(err),
		)
	}

	var apiAuth *auth.Auth
	if conf.APISecret != "" {
		apiAuth, err = auth.New(auth.Options{
			Logger:        logger,
			JWTSigningKey: conf.APISecret,
		})
		if err != nil {
			logger.Fatal("Cannot initialize API authentication",
				zap.Error(err),
			)
		}
	}

	if *issueToken != "" {
		if apiAuth == nil {
			logger.Fatal("api_secret is required to issue tokens")
		}
		token, err := apiAuth.CreateToken(*issueToken, spec.DefaultTokenTTL)
		if err != nil {
			logger.Fatal("Cannot issue token",
				zap.Error(err),
			)
		}
		fmt.Println(token)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the data source
	var stripeSource *source.Stripe
	if conf.StripeKey != "" {
		stripeSource, err = source.NewStripe(source.StripeOptions{
			Client: external.NewStripeClient(conf.StripeKey, logger),
			Logger: logger,
		})
		if err != nil {
			logger.Fatal("Cannot initialize Stripe source",
				zap.Error(err),
			)
		}
	}

	var dataSource spec.Source
	if stripeSource != nil {
		dataSource = stripeSource
	}
	var mirrorTask *task.MirrorTask
	if conf.Source == config.SourceMirror {
		gormDB, err := db.New(db.Options{
			PostgresURI: conf.PostgresURI,
			SQLitePath:  conf.SQLitePath,
			Logger:      logger,
		})
		if err != nil {
			logger.Fatal("Cannot connect to database",
				zap.Error(err),
			)
		}
		mirror, err := source.NewMirror(source.MirrorOptions{
			DB:     gormDB,
			Logger: logger,
		})
		if err != nil {
			logger.Fatal("Cannot initialize mirror",
				zap.Error(err),
			)
		}
		dataSource = mirror

		if stripeSource != nil {
			mirrorTask, err = task.NewMirrorTask(task.MirrorOptions{
				Mirror:   mirror,
				Upstream: stripeSource,
				Logger:   logger,
				Interval: conf.Interval,
			})
			if err != nil {
				logger.Fatal("Cannot get mirror task",
					zap.Error(err),
				)
			}
		}
	}

	if conf.RedisURI != "" {
		redisOptions, err := redis.ParseURL(conf.RedisURI)
		if err != nil {
			logger.Fatal("Invalid Redis URI",
				zap.Error(err),
			)
		}
		if conf.RedisPassword != "" {
			redisOptions.Password = conf.RedisPassword
		}
		redisClient := redis.NewClient(redisOptions)
		defer redisClient.Close()

		dataSource, err = source.NewCache(source.CacheOptions{
			Source: dataSource,
			Redis:  redisClient,
			Logger: logger,
			TTL:    conf.CacheTTL,
		})
		if err != nil {
			logger.Fatal("Cannot initialize snapshot cache",
				zap.Error(err),
			)
		}
	}

	// Initialize metric sinks
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promSink, err := sink.NewPrometheus(sink.PrometheusOptions{
		Registerer: registry,
	})
	if err != nil {
		logger.Fatal("Cannot register Prometheus gauges",
			zap.Error(err),
		)
	}
	sinks := sink.Multi{promSink}
	if environment == "development" {
		sinks = append(sinks, sink.NewLog(logger))
	}
	if conf.AMQPURI != "" {
		amqpBroker, err := broker.NewAMQPBroker(logger, conf.AMQPURI)
		if err != nil {
			logger.Fatal("Cannot connect to Broker",
				zap.Error(err),
			)
		}
		defer amqpBroker.Close()
		sinks = append(sinks, amqpBroker)
	}

	builderOptions := report.Options{
		Source:   dataSource,
		Sink:     sinks,
		Logger:   logger,
		Windows:  windows,
		Plans:    plans,
		Filter:   filter,
		Location: location,
		Parallel: conf.Parallel,
	}
	if stripeSource != nil {
		builderOptions.Verifier = stripeSource
	}
	builder, err := report.NewBuilder(builderOptions)
	if err != nil {
		logger.Fatal("Cannot initialize report builder",
			zap.Error(err),
		)
	}
	if err := builder.Verify(ctx); err != nil {
		logger.Fatal("Cannot verify configured plans",
			zap.Error(err),
		)
	}

	if *once {
		if mirrorTask != nil {
			mirrorTask.SyncOnce(ctx)
		}
		r, err := builder.Run(ctx, time.Now())
		if err != nil {
			logger.Fatal("Cannot compute report",
				zap.Error(err),
			)
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report.Tree(r)); err != nil {
			logger.Fatal("Cannot print report",
				zap.Error(err),
			)
		}
		return
	}

	reportTask, err := task.NewReportTask(task.ReportOptions{
		Runner:   builder,
		Logger:   logger,
		Interval: conf.Interval,
	})
	if err != nil {
		logger.Fatal("Cannot get report task",
			zap.Error(err),
		)
	}

	reportRouter, err := report.NewService(report.ServiceOptions{
		Provider: reportTask,
		Gatherer: registry,
		Auth:     apiAuth,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Report Service Router",
			zap.Error(err),
		)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	if mirrorTask != nil {
		go mirrorTask.Run(ctx)
	}
	go reportTask.Run(ctx)

	srv := &http.Server{
		Handler: reportRouter.Router(),
		Addr:    conf.ListenAddr,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Cannot serve report API",
				zap.Error(err),
			)
		}
	}()

	logger.Info("Reporter started",
		zap.String("Addr", conf.ListenAddr),
		zap.Duration("Interval", conf.Interval),
		zap.String("Source", conf.Source),
	)

	<-c
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}
