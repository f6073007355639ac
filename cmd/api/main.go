package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/api"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/auth"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/config"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/domain"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/form"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/host"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/notify"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/persistence/memory"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/persistence/postgres"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/resolver"
	httptransport "github.com/jfederico/moodle-bbbext-bnurl/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "flexurl-api").Logger()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	target, err := domain.ParseTarget(cfg.Target)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid FLEXURL_TARGET")
	}
	widget, err := form.ParseWidget(cfg.ValueWidget)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid FLEXURL_VALUE_WIDGET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo     domain.ParameterRepository
		accessor host.Accessor
	)
	switch cfg.Store {
	case config.StoreMemory:
		hostData := memory.NewHostData(cfg.HostBaseURL)
		hostData.Seed()
		repo = memory.NewRepository(cfg.Table)
		accessor = hostData
		logger.Warn().Msg("using in-memory store; parameters are lost on restart")
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()
		repo = postgres.NewRepository(pool, cfg.Table)
		accessor = postgres.NewHostAccessor(pool, cfg.HostBaseURL)
	default:
		logger.Fatal().Str("store", cfg.Store).Msg("unknown STORE")
	}

	opts := []domain.Option{
		domain.WithTarget(target),
		domain.WithLogger(logger.With().Str("component", "lifecycle").Logger()),
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer := notify.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()
		opts = append(opts, domain.WithPublisher(notify.NewPublisher(producer, cfg.EventsTopic, cfg.PublishTimeout)))
	} else {
		logger.Info().Msg("KAFKA_BROKERS empty; change events disabled")
	}

	service := domain.NewService(repo, accessor, resolver.Default(), opts...)

	handler := api.NewHandler(service,
		api.WithEnabledNamespaces(cfg.AvailableInfo),
		api.WithWidget(widget),
		api.WithLogger(logger),
	)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	requestLogger := httptransport.RequestLogger(logger)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, requestLogger(authMiddleware.Wrap(mux)))

	logger.Info().Str("store", cfg.Store).Str("target", string(target)).Msg("flexurl api starting")
	if err := httptransport.Serve(ctx, server, cfg.ShutdownTimeout, logger); err != nil {
		logger.Error().Err(err).Msg("server error")
	}
}
