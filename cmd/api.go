package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/config"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/api"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/auth"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/cache"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/messaging"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/metrics"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/models"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/notifier"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/repository"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/search"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/service"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/tracing"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server the floor stations talk to`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache, _ = cache.NewRedisCache(config.RedisConfig{})
	}
	defer redisCache.Close()

	changeNotifier, err := notifier.NewRedisNotifier(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize change notifier, sessions will rely on polling")
		changeNotifier, _ = notifier.NewRedisNotifier(config.RedisConfig{})
	}
	defer changeNotifier.Close()

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = &tracing.NewRelicTracer{}
	}

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search indexing")
		elasticClient, _ = search.NewElasticClient(config.ElasticConfig{})
	}

	bus, err := messaging.NewClient(cfg.Azure)
	if err != nil {
		return err
	}
	defer bus.Close(context.Background())

	metricsCollector := metrics.NewMetrics()

	requestService := service.NewRequestService(
		repository.NewRequestRepository(db),
		repository.NewIDGenerator(),
		redisCache,
		elasticClient,
		bus,
		changeNotifier,
		metricsCollector,
		tracer,
	)
	rosterService := service.NewRosterService(repository.NewRosterRepository(db))
	authenticator := auth.NewStaticAuthenticator(cfg.Auth.Users)

	server := api.NewServer(cfg, requestService, rosterService, authenticator, metricsCollector)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}

func initDatabase(cfg config.Config) (*gorm.DB, error) {
	// TranslateError maps driver unique violations onto gorm.ErrDuplicatedKey,
	// which the repository turns into ErrDuplicate
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := models.SetupModels(db); err != nil {
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying DB connection")
	}

	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	return db, nil
}
