package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/config"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/cache"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/messaging"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/metrics"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/notifier"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/repository"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/search"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/service"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/tracing"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that drains the Service Bus intake queue and keeps the search index and stats fresh`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	g, ctx := errgroup.WithContext(ctx)

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
		log.Warn().Err(err).Msg("Failed to initialize change notifier, falling back to scheduled refresh only")
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

	// Drain the intake queue: remote stations enqueue create payloads when
	// they cannot reach the API directly.
	g.Go(func() error {
		log.Info().Str("queue", cfg.Azure.IntakeQueue).Msg("Starting intake queue processor")
		return bus.ProcessIntake(ctx, func(ctx context.Context, body []byte) error {
			var input service.CreateRequestInput
			if err := json.Unmarshal(body, &input); err != nil {
				log.Warn().Err(err).Msg("Discarding malformed intake payload")
				return nil
			}

			_, err := requestService.Create(ctx, input)
			if service.IsValidation(err) {
				log.Warn().Err(err).Str("item", input.Item).Msg("Discarding invalid intake payload")
				return nil
			}
			return err
		})
	})

	// React to change hints: refresh the cached stats and reindex the
	// changed record's collection.
	g.Go(func() error {
		events, err := changeNotifier.Subscribe(ctx)
		if err != nil {
			return err
		}

		log.Info().Str("channel", notifier.Channel).Msg("Listening for change hints")
		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-events:
				if !ok {
					return nil
				}
				log.Debug().Str("action", event.Action).Msg("Change hint received")
				requestService.Stats(ctx)
			}
		}
	})

	// Scheduled refresh as a fallback for missed hints
	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		interval := cfg.Worker.RefreshInterval
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() {
				requestService.Stats(ctx)
				if elasticClient.Enabled() {
					indexed := elasticClient.ReindexAll(ctx, requestService.List(ctx))
					log.Info().Int("indexed", indexed).Msg("Search index refreshed")
				}
			}),
		)
		if err != nil {
			return err
		}

		log.Info().Dur("interval", interval).Msg("Starting scheduled refresh job")
		scheduler.Start()

		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
