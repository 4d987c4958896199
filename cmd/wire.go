package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/ace/internal/adapters/cron"
	"github.com/okian/ace/internal/adapters/http/api"
	"github.com/okian/ace/internal/adapters/http/swagger"
	"github.com/okian/ace/internal/adapters/repository"
	"github.com/okian/ace/internal/adapters/source"
	service "github.com/okian/ace/internal/app"
	"github.com/okian/ace/internal/config"
	"github.com/okian/ace/internal/domain/calendar"
	"github.com/okian/ace/internal/domain/rating"
	"github.com/okian/ace/internal/domain/ruleset"
	"github.com/okian/ace/pkg/logger"
	"github.com/okian/ace/pkg/retry"
)

// application holds the wired components of the service.
type application struct {
	store     repository.Store
	svc       *service.Service
	scheduler *cron.Scheduler
	handler   http.Handler
	logger    logger.Logger
}

func newApplication(ctx context.Context, cfg *config.Config, log logger.Logger) (*application, error) {
	store, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return nil, err
	}

	cal, err := calendar.FromConfig(cfg.Calendar)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	mode, err := rating.ParseMode(cfg.Predictor.Mode)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	rulesets := ruleset.NewRegistry(ruleset.WithLogger(log.Named("ruleset")))
	log.Info(ctx, "rulesets loaded", logger.Any("years", rulesets.Years()))

	w := cfg.Rating.Weights
	weights := rating.Weights{
		Consistency:     w.Consistency,
		Dominance:       w.Dominance,
		RecordAlignment: w.RecordAlignment,
		Veteran:         w.Veteran,
		Event:           w.Event,
	}
	calc := rating.NewCalculator(
		rating.WithK(cfg.Rating.K),
		rating.WithQualImportance(cfg.Rating.QualImportance),
		rating.WithPlayoffImportance(cfg.Rating.PlayoffImportance),
		rating.WithDecay(cfg.Rating.Decay),
		rating.WithWeights(weights),
		rating.WithRegistry(rulesets),
		rating.WithLogger(log.Named("rating")),
	)
	predictor := rating.NewPredictor(
		rating.WithMode(mode),
		rating.WithAllianceMean(rating.AllianceMean(cfg.Predictor.AllianceMean)),
		rating.WithUncertaintyDamping(cfg.Predictor.UncertaintyDamping),
		rating.WithSimpleSteepness(cfg.Predictor.SimpleSteepness),
	)

	src := source.NewTBAClient(cfg.Source.BaseURL, cfg.Source.AuthKey,
		source.WithTimeout(cfg.Source.Timeout),
		source.WithRetryPolicy(retry.New(
			retry.WithMaxAttempts(cfg.Source.MaxAttempts),
			retry.WithDelays(cfg.Source.BaseDelay, cfg.Source.MaxDelay),
		)),
		source.WithLogger(log.Named("source")),
	)

	svc := service.New(src, store,
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithCalculator(calc),
		service.WithAggregator(rating.NewAggregator(weights)),
		service.WithPredictor(predictor),
		service.WithCalendar(cal),
		service.WithReadAttempts(cfg.Store.MaxAttempts),
		service.WithLogger(log.Named("service")),
	)

	year := cfg.CurrentYear
	scheduler := cron.New(cfg.RecalcInterval, func(ctx context.Context) error {
		_, err := svc.RecalculateSeason(ctx, year)
		return err
	}, cron.WithName("recalculate-"+strconv.Itoa(year)), cron.WithLogger(log.Named("cron")))

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithMaxLimit(cfg.MaxLeaderboardLimit),
		api.WithDefaultYear(year),
		api.WithLogger(log.Named("api")),
	).Register(ctx, mux)

	return &application{
		store:     store,
		svc:       svc,
		scheduler: scheduler,
		handler:   mux,
		logger:    log,
	}, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, log logger.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return repository.NewMemoryStore(), nil
	case config.DriverSQLite, config.DriverPostgres:
		s, err := repository.Open(ctx, cfg.Driver, cfg.DSN, repository.WithLogger(log.Named("repository")))
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", repository.ErrUnsupportedDriver, cfg.Driver)
	}
}

// close stops the scheduler, drains running recalculations and releases the
// store, in that order.
func (a *application) close(ctx context.Context) {
	if err := a.scheduler.Shutdown(); err != nil {
		a.logger.Error(ctx, "scheduler shutdown failed", logger.Error(err))
	}
	drainCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := a.svc.Shutdown(drainCtx); err != nil {
		a.logger.Error(ctx, "service shutdown failed", logger.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error(ctx, "store close failed", logger.Error(err))
	}
}
