package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"SocialPoster/internal/config"
	"SocialPoster/internal/domain"
	"SocialPoster/internal/infrastructure/dedup"
	"SocialPoster/internal/infrastructure/feed"
	"SocialPoster/internal/infrastructure/history"
	"SocialPoster/internal/infrastructure/llm"
	"SocialPoster/internal/infrastructure/render"
	"SocialPoster/internal/infrastructure/social"
	"SocialPoster/internal/infrastructure/storage"
	"SocialPoster/internal/logging"
	"SocialPoster/internal/ports"
	"SocialPoster/internal/server"
	"SocialPoster/internal/usecase"
)

const (
	headlineSetKey = "used_headlines"
	quizSetPrefix  = "used_"
	quizSetSuffix  = "_quizzes"
)

// Application wires config into adapters, use cases, and the HTTP surface.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	rdb        *redis.Client
	pipeline   *usecase.Pipeline
	producer   *usecase.Producer
	quizzes    func(language string) *usecase.QuizPipeline
	publishers map[domain.Platform]ports.Publisher
	history    ports.OutcomeRepository
	server     *server.Server
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	headlineStore := dedup.NewStore(rdb, headlineSetKey, cfg.Pipeline.HeadlineTTL(), logging.Component(baseLogger, "dedup"))
	source := feed.NewSource(cfg.Feeds, cfg.Pipeline.PerFeedTimeout(), logging.Component(baseLogger, "feed"))
	model := llm.NewClient(cfg.OpenAI, logging.Component(baseLogger, "llm"))

	renderer := render.NewClient(cfg.Render)
	uploader := storage.NewClient(cfg.Storage)
	producer := usecase.NewProducer(renderer, uploader, cfg.Storage.PlaceholderURL, cfg.Pipeline.TagBlock, logging.Component(baseLogger, "producer"))

	var outcomes ports.OutcomeRepository
	if cfg.Database.DSN != "" {
		repo, err := history.Open(cfg.Database.DSN)
		if err != nil {
			baseLogger.Warn("history disabled", "error", err)
		} else {
			outcomes = repo
		}
	}

	orchestrator := usecase.NewOrchestrator(cfg.Pipeline.InterPostDelay(), outcomes, logging.Component(baseLogger, "orchestrator"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:       source,
		Store:        headlineStore,
		Selector:     model,
		Producer:     producer,
		Orchestrator: orchestrator,
		MaxPosts:     cfg.Pipeline.MaxPosts,
		Logger:       logging.Component(baseLogger, "pipeline"),
	})

	publishers := map[domain.Platform]ports.Publisher{
		domain.PlatformInstagram: social.NewInstagramPublisher(cfg.Instagram, logging.Component(baseLogger, "instagram")),
		domain.PlatformTwitter:   social.NewTwitterPublisher(cfg.Twitter, logging.Component(baseLogger, "twitter")),
	}

	// Quiz fingerprint sets are per language, so the pipeline is built on
	// demand; everything but the store is shared.
	quizzes := func(language string) *usecase.QuizPipeline {
		store := dedup.NewStore(rdb, quizSetPrefix+language+quizSetSuffix, cfg.Pipeline.QuizTTL(), logging.Component(baseLogger, "dedup"))
		return usecase.NewQuizPipeline(model, store, producer, orchestrator, logging.Component(baseLogger, "quiz"))
	}

	a := &Application{
		cfg:        cfg,
		logger:     baseLogger,
		rdb:        rdb,
		pipeline:   pipeline,
		producer:   producer,
		quizzes:    quizzes,
		publishers: publishers,
		history:    outcomes,
	}
	a.server = server.New(server.Deps{
		Pipeline:   pipeline,
		Quiz:       quizzes,
		Producer:   producer,
		Publishers: publishers,
		History:    outcomes,
		Logger:     logging.Component(baseLogger, "server"),
	})
	return a
}

// Serve runs the HTTP surface until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start(a.cfg.Server.Addr)
	}()

	select {
	case <-ctx.Done():
		return a.server.Stop(context.Background())
	case err := <-errCh:
		return err
	}
}

// RunOnce executes a single pipeline pass against the requested platforms.
func (a *Application) RunOnce(ctx context.Context, platforms []string) (domain.Report, error) {
	publishers, err := a.resolve(platforms)
	if err != nil {
		return domain.Report{}, err
	}
	return a.pipeline.Run(ctx, publishers)
}

// RunQuiz executes a single quiz pass for language.
func (a *Application) RunQuiz(ctx context.Context, language string) (domain.Report, error) {
	publishers, err := a.resolve(nil)
	if err != nil {
		return domain.Report{}, err
	}
	return a.quizzes(language).Run(ctx, language, publishers)
}

func (a *Application) resolve(platforms []string) ([]ports.Publisher, error) {
	if len(platforms) == 0 {
		platforms = []string{string(domain.PlatformInstagram), string(domain.PlatformTwitter)}
	}
	out := make([]ports.Publisher, 0, len(platforms))
	for _, name := range platforms {
		pub, ok := a.publishers[domain.Platform(name)]
		if !ok {
			return nil, fmt.Errorf("unknown platform %q", name)
		}
		out = append(out, pub)
	}
	return out, nil
}

// Close releases the redis connection.
func (a *Application) Close() error {
	return a.rdb.Close()
}
