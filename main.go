package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	api "onlyjobs-backend/cmd/api"
	appDelivery "onlyjobs-backend/internal/application/delivery"
	appRepo "onlyjobs-backend/internal/application/repository"
	appUsecase "onlyjobs-backend/internal/application/usecase"
	authUsecase "onlyjobs-backend/internal/auth/usecase"
	credentialDelivery "onlyjobs-backend/internal/credential/delivery"
	credentialRepo "onlyjobs-backend/internal/credential/repository"
	credentialUsecase "onlyjobs-backend/internal/credential/usecase"
	emailDelivery "onlyjobs-backend/internal/email/delivery"
	emailRepo "onlyjobs-backend/internal/email/repository"
	"onlyjobs-backend/internal/email/scheduler"
	emailUsecase "onlyjobs-backend/internal/email/usecase"
	notificationDelivery "onlyjobs-backend/internal/notification/delivery"
	notificationdomain "onlyjobs-backend/internal/notification/domain"
	notificationRepo "onlyjobs-backend/internal/notification/repository"
	notificationUsecase "onlyjobs-backend/internal/notification/usecase"
	"onlyjobs-backend/pkg/ai"
	"onlyjobs-backend/pkg/config"
	"onlyjobs-backend/pkg/database"
	"onlyjobs-backend/pkg/fcm"
	"onlyjobs-backend/pkg/firebase"
	"onlyjobs-backend/pkg/gmail"
	"onlyjobs-backend/pkg/logger"
	"onlyjobs-backend/pkg/queue"
	"onlyjobs-backend/pkg/retry"
	"onlyjobs-backend/pkg/utils/crypto"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// broker is a queue backend usable for both publishing and consuming.
type broker interface {
	queue.Publisher
	queue.Subscriber
}

func newBroker(ctx context.Context, cfg *config.Config, topic, subscription, stream string, log *zap.Logger) (broker, error) {
	switch cfg.QueueBackend {
	case "nats":
		js, err := queue.NewJetStream(cfg.NatsURL, stream, topic, log)
		if err != nil {
			return nil, err
		}
		if err := js.EnsureStream(); err != nil {
			_ = js.Close()
			return nil, err
		}
		return js, nil
	case "pubsub":
		ps, err := queue.NewPubSub(ctx, cfg.GoogleProjectID, topic, subscription, cfg.GoogleCredentials, log)
		if err != nil {
			return nil, err
		}
		if err := ps.EnsureTopic(ctx); err != nil {
			_ = ps.Close()
			return nil, err
		}
		return ps, nil
	default:
		return nil, fmt.Errorf("unknown QUEUE_BACKEND %q", cfg.QueueBackend)
	}
}

func newAnalyticsSink(ctx context.Context, cfg *config.Config, db *gorm.DB) (appRepo.AnalyticsSink, func() error, error) {
	switch cfg.AnalyticsSink {
	case "postgres":
		if db == nil {
			return nil, nil, fmt.Errorf("ANALYTICS_SINK=postgres needs DATABASE_URL")
		}
		return appRepo.NewPostgresSink(db), func() error { return nil }, nil
	case "bigquery":
		var opts []option.ClientOption
		if cfg.GoogleCredentials != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentials))
		}
		client, err := bigquery.NewClient(ctx, cfg.GoogleProjectID, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create bigquery client: %w", err)
		}
		sink := appRepo.NewBigQuerySink(client, cfg.BigQueryDataset, cfg.BigQueryTable, cfg.BigQueryLocation)
		return sink, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown ANALYTICS_SINK %q", cfg.AnalyticsSink)
	}
}

func newVerifier(ctx context.Context, cfg *config.Config, clients *firebase.Clients) (authUsecase.IdentityVerifier, error) {
	switch cfg.IdentityProvider {
	case "jwt":
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("IDENTITY_PROVIDER=jwt needs JWT_SECRET")
		}
		return authUsecase.NewJWTVerifier(cfg.JWTSecret), nil
	case "jwks":
		return authUsecase.NewJWKSVerifier(ctx, cfg.JWKSURL)
	case "firebase":
		return authUsecase.NewFirebaseVerifier(clients.Auth), nil
	default:
		return nil, fmt.Errorf("unknown IDENTITY_PROVIDER %q", cfg.IdentityProvider)
	}
}

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := firebase.NewClients(ctx, cfg.GoogleProjectID, cfg.GoogleCredentials, cfg.FirestoreDatabaseID, log)
	if err != nil {
		log.Fatal("failed to initialize firebase", zap.Error(err))
	}
	defer func() { _ = clients.Close() }()

	sealer := crypto.NewSealer(cfg.TokenEncryptionKey)
	if !sealer.Enabled() {
		log.Warn("TOKEN_ENCRYPTION_KEY not set, tokens are stored unsealed")
	}

	// Postgres is optional: it backs device tokens and, when chosen, analytics.
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := db.AutoMigrate(&notificationdomain.DeviceToken{}); err != nil {
			log.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	// Credential store
	credentials := credentialRepo.NewFirestoreCredentialRepository(clients.Firestore, cfg.CredentialCollection, sealer)
	staging := credentialRepo.NewFirestoreStagingRepository(clients.Firestore, cfg.StagingCollection, sealer)
	oauth := gmail.NewOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
	credentialUc := credentialUsecase.NewCredentialUsecase(credentials, staging, oauth, credentialUsecase.Options{
		StagingTTL:  cfg.StagingTTL,
		SweepAge:    cfg.StagingSweepAge,
		StateSecret: []byte(cfg.OAuthStateSecret),
	}, log)

	// Fetch engine and publisher
	ingest, err := newBroker(ctx, cfg, cfg.PubSubTopic, cfg.PubSubSubscription, cfg.NatsStream, log)
	if err != nil {
		log.Fatal("failed to initialize queue", zap.String("backend", cfg.QueueBackend), zap.Error(err))
	}
	defer func() { _ = ingest.Close() }()

	fetchUc := emailUsecase.NewFetchUsecase(
		credentialUc,
		emailRepo.NewFirestoreCursorRepository(clients.Firestore, cfg.CursorCollection),
		gmail.NewService(oauth, log),
		emailUsecase.NewEnvelopePublisher(ingest),
		emailUsecase.FetchOptions{
			MaxPerRun:           cfg.FetchMaxPerRun,
			IncrementalPageSize: int64(cfg.FetchIncrementalPage),
			BackfillPageSize:    int64(cfg.FetchBackfillPage),
			DetailDelay:         cfg.FetchDetailDelay,
			DetailConcurrency:   cfg.FetchDetailConcurrency,
			UserConcurrency:     cfg.FetchUserConcurrency,
			Label:               cfg.FetchLabel,
			ContentLimit:        cfg.FetchContentLimit,
		},
		log,
	)

	fetchScheduler := scheduler.NewFetchScheduler(fetchUc, cfg.FetchInterval, log)
	fetchScheduler.Start(ctx)
	defer fetchScheduler.Stop()

	// Classification intake
	classifier, err := ai.NewClassifier(ctx, ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
		MaxChars:      cfg.ClassifierMaxChars,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize classifier", zap.String("provider", cfg.AIProvider), zap.Error(err))
	}
	log.Info("classifier initialized", zap.String("provider", cfg.AIProvider))

	analytics, closeAnalytics, err := newAnalyticsSink(ctx, cfg, db)
	if err != nil {
		log.Fatal("failed to initialize analytics sink", zap.Error(err))
	}
	defer func() { _ = closeAnalytics() }()

	policy := retry.Policy{
		MaxAttempts:     cfg.RetryMaxAttempts,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
	}
	coordinator := appUsecase.NewCoordinator(
		analytics,
		appRepo.NewFirestoreSink(clients.Firestore, cfg.DocumentExcerptLength),
		policy,
		log,
	)

	var notifier appUsecase.Notifier
	var notificationHandler *notificationDelivery.NotificationHandler
	if db != nil {
		notificationUc := notificationUsecase.NewNotificationUsecase(
			notificationRepo.NewDeviceTokenRepository(db),
			fcm.NewClient(clients.Messaging, log),
			log,
		)
		notifier = notificationUc
		notificationHandler = notificationDelivery.NewNotificationHandler(notificationUc, log)
	} else {
		log.Warn("DATABASE_URL not set, device notifications disabled")
	}

	var ready queue.Publisher
	if cfg.ReadyTopic != "" {
		readyBroker, err := newBroker(ctx, cfg, cfg.ReadyTopic, "", cfg.NatsStream+"_READY", log)
		if err != nil {
			log.Warn("ready events disabled", zap.String("topic", cfg.ReadyTopic), zap.Error(err))
		} else {
			defer func() { _ = readyBroker.Close() }()
			ready = readyBroker
		}
	}

	intakeUc := appUsecase.NewIntakeUsecase(classifier, coordinator, notifier, ready, log)

	if cfg.QueuePullEnabled {
		consumer := appDelivery.NewConsumer(ingest, intakeUc, policy, log)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error("pull consumer stopped", zap.Error(err))
			}
		}()
	}

	verifier, err := newVerifier(ctx, cfg, clients)
	if err != nil {
		log.Fatal("failed to initialize identity verifier", zap.String("provider", cfg.IdentityProvider), zap.Error(err))
	}

	// Initialize HTTP handler
	handler := api.NewHandler(
		verifier,
		credentialDelivery.NewCredentialHandler(credentialUc, cfg.FrontendRedirectURL, log),
		emailDelivery.NewFetchHandler(fetchUc),
		appDelivery.NewPushHandler(intakeUc, log),
		notificationHandler,
		log,
	)

	log.Info("server starting", zap.String("port", cfg.Port))
	if err := handler.Start(ctx, ":"+cfg.Port); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
